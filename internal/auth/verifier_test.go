package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"carelink-binding/internal/domain"
	"carelink-binding/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPrincipal_CanOperateOn(t *testing.T) {
	assert.False(t, (*Principal)(nil).CanOperateOn("elder-1"))

	owner := &Principal{PrincipalID: "elder-1"}
	assert.True(t, owner.CanOperateOn("elder-1"))
	assert.False(t, owner.CanOperateOn("elder-2"))

	admin := &Principal{PrincipalID: "admin-1", Elevated: true}
	assert.True(t, admin.CanOperateOn("elder-2"))
}

func TestStaticVerifier(t *testing.T) {
	v := &StaticVerifier{Principal: Principal{PrincipalID: "dev", Elevated: true}}

	p, err := v.Verify(context.Background(), "any-token")
	require.NoError(t, err)
	assert.Equal(t, "dev", p.PrincipalID)

	_, err = v.Verify(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func newVerifierFixture(t *testing.T, handler http.HandlerFunc, withCache bool) *RemoteVerifier {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	var cache store.KV
	if withCache {
		mr := miniredis.RunT(t)
		cache = store.NewRedisKV(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	}
	return NewRemoteVerifier(server.URL, cache, time.Minute, zap.NewNop())
}

func TestRemoteVerifier_Verify(t *testing.T) {
	v := newVerifierFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/verify", r.URL.Path)
		assert.Equal(t, "Bearer good-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"principal_id":"elder-1","elevated":false}`))
	}, false)

	p, err := v.Verify(context.Background(), "good-token")
	require.NoError(t, err)
	assert.Equal(t, "elder-1", p.PrincipalID)
	assert.False(t, p.Elevated)
}

func TestRemoteVerifier_RejectsNonOKAndEmptyPrincipal(t *testing.T) {
	v := newVerifierFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}, false)
	_, err := v.Verify(context.Background(), "bad-token")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	v = newVerifierFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"principal_id":""}`))
	}, false)
	_, err = v.Verify(context.Background(), "empty-principal")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = v.Verify(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestRemoteVerifier_CachesVerifiedToken(t *testing.T) {
	var hits int32
	v := newVerifierFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"principal_id":"user-1","elevated":true}`))
	}, true)

	first, err := v.Verify(context.Background(), "cached-token")
	require.NoError(t, err)
	second, err := v.Verify(context.Background(), "cached-token")
	require.NoError(t, err)

	assert.Equal(t, first.PrincipalID, second.PrincipalID)
	assert.True(t, second.Elevated)
	// 第二次命中缓存，不再访问远端
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}
