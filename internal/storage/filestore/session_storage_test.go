package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/larder/internal/interfaces"
	"github.com/ternarybob/larder/internal/models"
)

func newTestStorage(t *testing.T) *SessionStorage {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "cookies.json")
	return NewSessionStorage(path, arbor.NewLogger())
}

func sampleCookies(tag string, n int) []models.Cookie {
	cookies := make([]models.Cookie, 0, n)
	for i := 0; i < n; i++ {
		cookies = append(cookies, models.Cookie{
			Name:   fmt.Sprintf("cookie-%03d", i),
			Value:  fmt.Sprintf("%s-%03d-%s", tag, i, "0123456789abcdef0123456789abcdef"),
			Domain: ".amazon.com",
			Path:   "/",
		})
	}
	return cookies
}

func TestSessionStorage_LoadNeverWritten(t *testing.T) {
	store := newTestStorage(t)

	s, err := store.Load(context.Background())
	assert.Nil(t, s)
	assert.ErrorIs(t, err, interfaces.ErrSessionNotFound)
	assert.False(t, store.Exists(context.Background()))
}

func TestSessionStorage_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	cookies := []models.Cookie{
		{Name: "session-id", Value: "131-0000000", Domain: ".amazon.com", Path: "/", Secure: true, HTTPOnly: true},
		{Name: "ubid-main", Value: "132-2222222", Domain: ".amazon.com", Path: "/"},
		{Name: "lc-main", Value: "en_US"},
	}

	require.NoError(t, store.Save(ctx, cookies))
	assert.True(t, store.Exists(ctx))

	s, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, cookies, s.Cookies)
	assert.Equal(t, models.SessionFormatVersion, s.Version)
	assert.False(t, s.CapturedAt.IsZero())
}

func TestSessionStorage_SaveCollapsesDuplicates(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	require.NoError(t, store.Save(ctx, []models.Cookie{
		{Name: "a", Value: "old"},
		{Name: "b", Value: "2"},
		{Name: "a", Value: "new"},
	}))

	s, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Cookie{{Name: "a", Value: "new"}, {Name: "b", Value: "2"}}, s.Cookies)
}

func TestSessionStorage_SaveSupersedes(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	require.NoError(t, store.Save(ctx, sampleCookies("first", 5)))
	require.NoError(t, store.Save(ctx, sampleCookies("second", 2)))

	s, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleCookies("second", 2), s.Cookies)
}

func TestSessionStorage_Clear(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	require.NoError(t, store.Save(ctx, sampleCookies("x", 1)))
	require.NoError(t, store.Clear(ctx))

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, interfaces.ErrSessionNotFound)

	// Clearing again is fine
	assert.NoError(t, store.Clear(ctx))
}

func TestSessionStorage_FilePermissionsAndNoTempLeftovers(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	ctx := context.Background()
	store := newTestStorage(t)

	require.NoError(t, store.Save(ctx, sampleCookies("x", 3)))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSessionStorage_LoadUnrecognisedEncoding(t *testing.T) {
	store := newTestStorage(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(store.Path()), 0o700))
	require.NoError(t, os.WriteFile(store.Path(), []byte{0x80, 0x04, 0x95}, 0o600))

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, models.ErrFormat)
}

func TestSessionStorage_SaveFailsOnUnwritableLocation(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	store := NewSessionStorage(filepath.Join(blocker, "cookies.json"), arbor.NewLogger())

	err := store.Save(context.Background(), sampleCookies("x", 1))
	assert.ErrorIs(t, err, models.ErrPersistence)
}

// Readers racing a writer must only ever see a complete payload: the old one or the new one.
func TestSessionStorage_ConcurrentLoadDuringSave(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	oldCookies := sampleCookies("old", 200)
	newCookies := sampleCookies("new", 150)
	require.NoError(t, store.Save(ctx, oldCookies))

	const readers = 8
	const rounds = 40

	var wg sync.WaitGroup
	stop := make(chan struct{})
	errs := make(chan error, readers)

	for r := 0; r < readers; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				s, err := store.Load(ctx)
				if err != nil {
					errs <- err
					return
				}
				if !assert.ObjectsAreEqual(oldCookies, s.Cookies) && !assert.ObjectsAreEqual(newCookies, s.Cookies) {
					errs <- fmt.Errorf("observed partial payload with %d cookies", len(s.Cookies))
					return
				}
			}
		}()
	}

	for i := 0; i < rounds; i++ {
		next := newCookies
		if i%2 == 1 {
			next = oldCookies
		}
		require.NoError(t, store.Save(ctx, next))
	}
	close(stop)
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}
