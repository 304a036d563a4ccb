package identity

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/causetrail/internal/cause"
	"github.com/roach88/causetrail/internal/store"
)

type failingSource struct{}

func (failingSource) ListUsers(context.Context) ([]store.User, error) {
	return nil, errors.New("boom")
}

func TestDirectory_DisplayName(t *testing.T) {
	d := NewDirectory(store.User{ID: "foo", DisplayName: "Foo Bar"})

	name, ok := d.DisplayName("foo")
	assert.True(t, ok)
	assert.Equal(t, "Foo Bar", name)

	_, ok = d.DisplayName("abc123")
	assert.False(t, ok)
}

func TestDirectory_PutIgnoresSystemID(t *testing.T) {
	d := NewDirectory()
	d.Put(store.User{ID: "", DisplayName: "root"})
	d.Put(store.User{ID: "amy", DisplayName: "Amy"})

	assert.Equal(t, 1, d.Len())
	_, ok := d.DisplayName("")
	assert.False(t, ok)
}

func TestDirectory_RendersUserCauses(t *testing.T) {
	d := NewDirectory(store.User{ID: "foo", DisplayName: "Foo Bar"})
	r := cause.NewRenderer(d)

	tests := []struct {
		name string
		c    cause.Cause
		want string
	}{
		{"known user", cause.UserCause("foo"), "Started by user Foo Bar"},
		{"unknown user", cause.UserCause("abc123"), "Started by user unknown or anonymous"},
		{"system", cause.SystemUserCause(), "Started by user SYSTEM"},
		{"anonymous", cause.AnonymousUserCause(), "Started by user unknown or anonymous"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Describe(tt.c))
		})
	}
}

func TestLoad_FromStore(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.PutUser(ctx, store.User{ID: "foo", DisplayName: "Foo Bar"}))
	require.NoError(t, s.PutUser(ctx, store.User{ID: "bob", DisplayName: "Bob"}))

	d, err := Load(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Len())
	name, ok := d.DisplayName("bob")
	assert.True(t, ok)
	assert.Equal(t, "Bob", name)
}

func TestLoad_SourceError(t *testing.T) {
	_, err := Load(context.Background(), failingSource{})
	assert.ErrorContains(t, err, "boom")
}

func TestDirectory_ConcurrentAccess(t *testing.T) {
	d := NewDirectory()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			d.Put(store.User{ID: "foo", DisplayName: "Foo"})
		}()
		go func() {
			defer wg.Done()
			d.DisplayName("foo")
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, d.Len())
}
