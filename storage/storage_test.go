package storage

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "7_abc.jpg", sanitizeFilename("7_abc.jpg"))
	assert.NotContains(t, sanitizeFilename("my file (1)@#$.jpg"), " ")
	assert.Len(t, sanitizeFilename(strings.Repeat("a", 200)), 100)
	assert.Equal(t, "file", sanitizeFilename(""))
	assert.Equal(t, "file", sanitizeFilename("."))
	assert.Equal(t, "file", sanitizeFilename(".."))
	assert.Equal(t, ".._.._etc_passwd", sanitizeFilename("../../etc/passwd"))
}

func TestLocalSaveAndDelete(t *testing.T) {
	l, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	ref, err := l.Save(context.Background(), "7_photo.jpg", strings.NewReader("jpeg-bytes"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(l.Dir, "7_photo.jpg"), ref)

	data, err := os.ReadFile(ref)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))

	require.NoError(t, l.Delete(context.Background(), ref))
	_, err = os.Stat(ref)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, l.Delete(context.Background(), ref), "already deleted file counts as deleted")
}

func TestLocalSaveRefusesOverwrite(t *testing.T) {
	l, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	_, err = l.Save(context.Background(), "a.jpg", strings.NewReader("1"), "image/jpeg")
	require.NoError(t, err)
	_, err = l.Save(context.Background(), "a.jpg", strings.NewReader("2"), "image/jpeg")
	assert.Error(t, err)
}

func TestLocalDeleteOutsideDir(t *testing.T) {
	l, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	outside := filepath.Join(t.TempDir(), "victim.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))

	assert.Error(t, l.Delete(context.Background(), outside))
	assert.Error(t, l.Delete(context.Background(), l.Dir))
	_, err = os.Stat(outside)
	assert.NoError(t, err)
}

func TestExtractObjectPath(t *testing.T) {
	path, err := ExtractObjectPath("https://storage.googleapis.com/bucket/products/7_x.jpg")
	require.NoError(t, err)
	assert.Equal(t, "products/7_x.jpg", path)

	_, err = ExtractObjectPath("https://example.com/bucket/x.jpg")
	assert.Error(t, err)
	_, err = ExtractObjectPath("https://storage.googleapis.com/bucket")
	assert.Error(t, err)
}

func TestIsPrivateIP(t *testing.T) {
	cases := map[string]bool{
		"10.0.0.1":    true,
		"172.16.0.1":  true,
		"192.168.1.1": true,
		"127.0.0.1":   true,
		"::1":         true,
		"8.8.8.8":     false,
		"1.1.1.1":     false,
	}
	for ip, want := range cases {
		assert.Equal(t, want, isPrivateIP(net.ParseIP(ip)), ip)
	}
}

func TestFetchImageRejectsUnsafeURLs(t *testing.T) {
	ctx := context.Background()
	for _, u := range []string{"ftp://example.com/a.jpg", "http://localhost/a.jpg", "http://127.0.0.1/a.jpg", "http:///nohost"} {
		_, _, _, err := FetchImage(ctx, http.DefaultClient, u)
		assert.Error(t, err, u)
	}
}

func TestFetchImageContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/photo.png":
			w.Header().Set("Content-Type", "image/png")
			w.Write([]byte("png"))
		case "/page":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte("<html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	body, contentType, ext, err := fetchImage(context.Background(), srv.Client(), srv.URL+"/photo.png")
	require.NoError(t, err)
	defer body.Close()
	assert.Equal(t, "image/png", contentType)
	assert.Equal(t, ".png", ext)

	_, _, _, err = fetchImage(context.Background(), srv.Client(), srv.URL+"/page")
	assert.Error(t, err)

	_, _, _, err = fetchImage(context.Background(), srv.Client(), srv.URL+"/missing")
	assert.Error(t, err)
}
