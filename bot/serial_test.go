package bot

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiprej-bot/fsm"
	"kiprej-bot/services"
	"kiprej-bot/testutil"
)

// slowStore delays every load the way a network round trip would.
type slowStore struct {
	*fsm.MemoryStore
}

func (s slowStore) Load(ctx context.Context, chatID int64) (*fsm.Dialog, error) {
	d, err := s.MemoryStore.Load(ctx, chatID)
	time.Sleep(2 * time.Millisecond)
	return d, err
}

func photoUpdate(chatID int64, fileID string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: chatID},
		Chat:      &tgbotapi.Chat{ID: chatID},
		Photo:     []tgbotapi.PhotoSize{{FileID: fileID}},
	}}
}

func newAlbumBot(t *testing.T, api *fakeAPI, chatIDs ...int64) (*Bot, slowStore) {
	store := slowStore{fsm.NewMemoryStore()}
	b := New(api, services.New(testutil.NewDB(t), nil), store, Options{Workers: 8})
	for _, id := range chatIDs {
		require.NoError(t, store.Save(context.Background(), &fsm.Dialog{
			Flow: flowAddProduct, State: "images", ChatID: id, UserID: id,
		}))
	}
	return b, store
}

func TestRunKeepsAlbumPhotosInOrder(t *testing.T) {
	api := &fakeAPI{updates: make(chan tgbotapi.Update)}
	b, store := newAlbumBot(t, api, 7, -100500)

	done := make(chan error, 1)
	go func() { done <- b.Run(context.Background()) }()

	var want, wantGroup []string
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("file%d", i)
		want = append(want, telegramFile+id)
		api.updates <- photoUpdate(7, id)

		groupID := fmt.Sprintf("group%d", i)
		wantGroup = append(wantGroup, telegramFile+groupID)
		api.updates <- photoUpdate(-100500, groupID)
	}
	close(api.updates)
	require.NoError(t, <-done)

	d, err := store.Load(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, want, d.Files)

	d, err = store.Load(context.Background(), -100500)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, wantGroup, d.Files)
}

func TestConcurrentUpdatesOfOneChatAreSerialised(t *testing.T) {
	b, store := newAlbumBot(t, &fakeAPI{}, 7)

	var wg sync.WaitGroup
	var want []string
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("file%d", i)
		want = append(want, telegramFile+id)
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.HandleUpdate(context.Background(), photoUpdate(7, id))
		}()
	}
	wg.Wait()

	d, err := store.Load(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.ElementsMatch(t, want, d.Files)
	assert.Zero(t, b.chats.size())
}

func TestLaneOfStaysInRange(t *testing.T) {
	for _, id := range []int64{0, 1, 7, -1, -100500, 1<<62 + 3} {
		lane := laneOf(id, 8)
		assert.GreaterOrEqual(t, lane, 0)
		assert.Less(t, lane, 8)
		assert.Equal(t, lane, laneOf(id, 8))
	}
}

func TestChatOf(t *testing.T) {
	assert.Equal(t, int64(7), chatOf(photoUpdate(7, "x")))
	assert.Equal(t, int64(9), chatOf(tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		From: &tgbotapi.User{ID: 3}, Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 9}},
	}}))
	assert.Equal(t, int64(3), chatOf(tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{From: &tgbotapi.User{ID: 3}}}))
	assert.Zero(t, chatOf(tgbotapi.Update{}))
}
