package fsm

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	d, err := s.Load(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, d)

	in := &Dialog{Flow: "register", State: "email", ChatID: 1}
	in.Set("full_name", "Ivan Petrov")
	in.Files = []string{"a"}
	require.NoError(t, s.Save(ctx, in))

	// mutations after Save are not visible
	in.Set("full_name", "changed")

	out, err := s.Load(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "register", out.Flow)
	assert.Equal(t, State("email"), out.State)
	assert.Equal(t, "Ivan Petrov", out.Get("full_name"))
	assert.Equal(t, []string{"a"}, out.Files)

	other, err := s.Load(ctx, 2)
	require.NoError(t, err)
	assert.Nil(t, other)

	require.NoError(t, s.Clear(ctx, 1))
	out, err = s.Load(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	exerciseStore(t, NewRedisStore(rdb, time.Hour))
}

func TestRedisStoreExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	s := NewRedisStore(rdb, time.Minute)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &Dialog{Flow: "register", State: "name", ChatID: 5}))
	assert.True(t, mr.Exists("kiprej:dialog:5"))

	mr.FastForward(2 * time.Minute)

	d, err := s.Load(ctx, 5)
	require.NoError(t, err)
	assert.Nil(t, d)
}
