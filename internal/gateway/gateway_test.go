package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCall_FailsClosedWithoutCredentials(t *testing.T) {
	gw := New(time.Second)

	_, err := gw.Call("http://auth.internal", true, Credentials{})
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestCall_NoAuthRequiredConnectsWithoutHeaders(t *testing.T) {
	var gotAuth, gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCookie = r.Header.Get("Cookie")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	gw := New(time.Second)
	call, err := gw.Call(srv.URL, false, Credentials{})
	require.NoError(t, err)

	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, call.Get(context.Background(), "/", &out))
	assert.True(t, out.OK)
	assert.Empty(t, gotAuth)
	assert.Empty(t, gotCookie)
}

func TestCall_ForwardsCredentialHeaders(t *testing.T) {
	var gotAuth, gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCookie = r.Header.Get("Cookie")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	gw := New(time.Second)
	creds := Credentials{Authorization: "Bearer abc", Cookie: "session_id=s1"}
	call, err := gw.Call(srv.URL, true, creds)
	require.NoError(t, err)

	var out struct{}
	require.NoError(t, call.Post(context.Background(), "/check", map[string]string{}, &out))
	assert.Equal(t, "Bearer abc", gotAuth)
	assert.Equal(t, "session_id=s1", gotCookie)
}

func TestCall_UpstreamErrorsAreTyped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	gw := New(time.Second)
	call, err := gw.Call(srv.URL, false, Credentials{})
	require.NoError(t, err)

	err = call.Get(context.Background(), "/missing", nil)
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestCall_ServerErrorsTripBreakerEventually(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	gw := New(time.Second)

	// Enough consecutive 5xx responses to open the breaker.
	var err error
	for i := 0; i < 10; i++ {
		call, callErr := gw.Call(srv.URL, false, Credentials{})
		require.NoError(t, callErr)
		err = call.Get(context.Background(), "/", nil)
		require.Error(t, err)
	}
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestFromRequestAndFromToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer xyz")
	r.Header.Set("Cookie", "session_id=s9")

	creds := FromRequest(r)
	assert.Equal(t, "Bearer xyz", creds.Authorization)
	assert.Equal(t, "session_id=s9", creds.Cookie)
	assert.False(t, creds.Empty())

	svc := FromToken("tok")
	assert.Equal(t, "Bearer tok", svc.Authorization)

	assert.True(t, Credentials{}.Empty())
}
