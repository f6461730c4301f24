package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	relay_errors "github.com/customeros/metricsrelay/internal/errors"
	"github.com/customeros/metricsrelay/services/upstream"
)

func TestGetSelfInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/register/user/v2/self/info", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"userSubjectId":"42","userEmail":"jane@example.org","enabled":true}`))
	}))
	defer srv.Close()

	user, err := NewIdentityService(srv.URL+"/", upstream.NewClient(0)).GetSelfInfo(context.Background(), "Bearer token")

	require.NoError(t, err)
	assert.Equal(t, "42", user.SubjectID)
	assert.True(t, user.Enabled)
	assert.Equal(t, "google:42", user.DistinctID())
}

func TestGetSelfInfo_LegacySubjectField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"subjectId":"7","enabled":false}`))
	}))
	defer srv.Close()

	user, err := NewIdentityService(srv.URL, upstream.NewClient(0)).GetSelfInfo(context.Background(), "Bearer token")

	require.NoError(t, err)
	assert.Equal(t, "7", user.SubjectID)
	assert.False(t, user.Enabled)
}

func TestGetSelfInfo_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewIdentityService(srv.URL, upstream.NewClient(0)).GetSelfInfo(context.Background(), "Bearer token")

	assert.True(t, relay_errors.IsKind(err, relay_errors.AuthRejected))
}

func TestGetSelfInfo_MissingSubject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"enabled":true}`))
	}))
	defer srv.Close()

	_, err := NewIdentityService(srv.URL, upstream.NewClient(0)).GetSelfInfo(context.Background(), "Bearer token")

	classified, ok := relay_errors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, "Failed to query auth service", classified.Message)
}
