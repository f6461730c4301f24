package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	relay_errors "github.com/customeros/metricsrelay/internal/errors"
	"github.com/customeros/metricsrelay/internal/logger"
	"github.com/customeros/metricsrelay/internal/models"
)

type fakeIdentity struct {
	mu    sync.Mutex
	calls int
	user  *models.User
	err   error
}

func (f *fakeIdentity) GetSelfInfo(_ context.Context, _ string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	user := *f.user
	return &user, nil
}

func (f *fakeIdentity) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// recordingCache counts accesses so tests can assert the cache was not touched.
type recordingCache struct {
	*Cache
	gets, sets int
}

func (r *recordingCache) Get(key string) (models.User, bool) {
	r.gets++
	return r.Cache.Get(key)
}

func (r *recordingCache) Set(key string, user models.User, ttl time.Duration) {
	r.sets++
	r.Cache.Set(key, user, ttl)
}

func newRecordingCache() *recordingCache {
	return &recordingCache{Cache: NewCache(10).(*Cache)}
}

func testLogger() logger.Logger {
	return logger.WrapZapLogger(zap.NewNop())
}

func bearer(t *testing.T, email string) string {
	return "Bearer " + signedToken(t, jwt.MapClaims{"email": email})
}

func TestVerify_NoTokenOptional(t *testing.T) {
	identity := &fakeIdentity{}
	v := NewVerifier(identity, NewCache(10), time.Minute, testLogger())

	user, err := v.Verify(context.Background(), "", true)

	require.NoError(t, err)
	assert.Nil(t, user)
	assert.Equal(t, 0, identity.Calls())
}

func TestVerify_NoTokenRequired(t *testing.T) {
	v := NewVerifier(&fakeIdentity{}, NewCache(10), time.Minute, testLogger())

	_, err := v.Verify(context.Background(), "", false)

	classified, ok := relay_errors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, 401, classified.StatusCode)
	assert.Equal(t, "Unauthorized", classified.Message)
}

func TestVerify_MalformedTokenSkipsCache(t *testing.T) {
	identity := &fakeIdentity{}
	cache := newRecordingCache()
	v := NewVerifier(identity, cache, time.Minute, testLogger())

	_, err := v.Verify(context.Background(), "Bearer not.a.jwt", true)

	assert.True(t, relay_errors.IsKind(err, relay_errors.AuthTokenInvalid))
	assert.Equal(t, 0, cache.gets)
	assert.Equal(t, 0, cache.sets)
	assert.Equal(t, 0, identity.Calls())
}

func TestVerify_MissThenHit(t *testing.T) {
	identity := &fakeIdentity{user: &models.User{SubjectID: "42", Enabled: true}}
	cache := newRecordingCache()
	v := NewVerifier(identity, cache, time.Minute, testLogger())
	token := bearer(t, "jane@example.org")

	first, err := v.Verify(context.Background(), token, false)
	require.NoError(t, err)
	second, err := v.Verify(context.Background(), token, false)
	require.NoError(t, err)

	assert.Equal(t, "42", first.SubjectID)
	assert.Equal(t, "42", second.SubjectID)
	assert.Equal(t, 1, identity.Calls())
	assert.Equal(t, 1, cache.sets)
}

func TestVerify_CachedDisabledUserIsForbidden(t *testing.T) {
	identity := &fakeIdentity{}
	cache := NewCache(10)
	cache.Set("jane@example.org", models.User{SubjectID: "42", Enabled: false}, time.Minute)
	v := NewVerifier(identity, cache, time.Minute, testLogger())

	_, err := v.Verify(context.Background(), bearer(t, "jane@example.org"), false)

	classified, ok := relay_errors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, 403, classified.StatusCode)
	assert.Equal(t, 0, identity.Calls())
}

func TestVerify_FetchedDisabledUserIsForbiddenAndCached(t *testing.T) {
	identity := &fakeIdentity{user: &models.User{SubjectID: "42", Enabled: false}}
	cache := NewCache(10)
	v := NewVerifier(identity, cache, time.Minute, testLogger())

	_, err := v.Verify(context.Background(), bearer(t, "jane@example.org"), true)

	assert.True(t, relay_errors.IsKind(err, relay_errors.AuthRejected))
	cached, ok := cache.Get("jane@example.org")
	assert.True(t, ok)
	assert.False(t, cached.Enabled)
}

func TestVerify_IdentityFailurePassesThrough(t *testing.T) {
	identity := &fakeIdentity{err: relay_errors.Unreachable("auth", errors.New("dial tcp: refused"))}
	cache := NewCache(10)
	v := NewVerifier(identity, cache, time.Minute, testLogger())

	_, err := v.Verify(context.Background(), bearer(t, "jane@example.org"), false)

	classified, ok := relay_errors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, 503, classified.StatusCode)
	assert.Equal(t, "Unable to contact auth service", classified.Message)
	assert.Equal(t, 0, cache.Len())
}

func TestVerify_DisabledCacheAlwaysAsksIdentity(t *testing.T) {
	identity := &fakeIdentity{user: &models.User{SubjectID: "42", Enabled: true}}
	v := NewVerifier(identity, NewCache(0), time.Minute, testLogger())
	token := bearer(t, "jane@example.org")

	for i := 0; i < 3; i++ {
		user, err := v.Verify(context.Background(), token, false)
		require.NoError(t, err)
		assert.Equal(t, "42", user.SubjectID)
	}
	assert.Equal(t, 3, identity.Calls())
}
