package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ledgerbook/internal/ledgererr"
	"github.com/roach88/ledgerbook/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "slots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := DefaultServerConfig()
	cfg.RateLimit = 1000
	srv := httptest.NewServer(NewServer(st, zerolog.Nop(), cfg).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPSlot_RoundTrip(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	slot := NewHTTPSlot(srv.URL, "alice", time.Second)

	require.NoError(t, slot.Ping(ctx))

	_, ok, err := slot.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, slot.Put(ctx, `{"version":"1.0","customers":[]}`))
	require.NoError(t, slot.Put(ctx, `{"version":"1.0","customers":[1]}`))

	blob, ok, err := slot.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"version":"1.0","customers":[1]}`, blob)
}

func TestHTTPSlot_PerIdentityIsolation(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	alice := NewHTTPSlot(srv.URL, "alice", time.Second)
	bob := NewHTTPSlot(srv.URL, "bob", time.Second)

	require.NoError(t, alice.Put(ctx, `{"owner":"alice"}`))

	_, ok, err := bob.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "bob must not see alice's backup")

	require.NoError(t, bob.Put(ctx, `{"owner":"bob"}`))

	blob, _, err := alice.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"owner":"alice"}`, blob)
}

func TestServer_RequiresBearer(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + BackupPath)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, _, err = NewHTTPSlot(srv.URL, "", time.Second).Get(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ledgererr.ErrNetworkOrAuthUnavailable), "got %v", err)
}

func TestServer_RejectsNonJSONBody(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodPut, srv.URL+BackupPath, strings.NewReader("not json"))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer alice")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHTTPSlot_Unreachable(t *testing.T) {
	srv := newTestServer(t)
	url := srv.URL
	srv.Close()

	slot := NewHTTPSlot(url, "alice", time.Second)

	err := slot.Put(context.Background(), `{}`)
	assert.True(t, errors.Is(err, ledgererr.ErrNetworkOrAuthUnavailable), "got %v", err)

	err = slot.Ping(context.Background())
	assert.True(t, errors.Is(err, ledgererr.ErrNetworkOrAuthUnavailable), "got %v", err)
}

func TestBurstFor(t *testing.T) {
	tests := []struct {
		limit float64
		want  int
	}{
		{0.1, 1},
		{0.4, 1},
		{0.75, 2},
		{10, 20},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, burstFor(tt.limit), "limit %v", tt.limit)
	}
}

func TestServer_FractionalRateLimitAdmitsFirstRequest(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "slots.db"))
	require.NoError(t, err)
	defer st.Close()

	cfg := DefaultServerConfig()
	cfg.RateLimit = 0.2
	srv := httptest.NewServer(NewServer(st, zerolog.Nop(), cfg).Handler())
	defer srv.Close()

	slot := NewHTTPSlot(srv.URL, "alice", time.Second)
	_, ok, err := slot.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = slot.Get(context.Background())
	require.Error(t, err, "second request inside the window is rate limited")
}
