package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/abroad/client/internal/api"
	"github.com/example/abroad/client/internal/credstore"
	"github.com/example/abroad/client/internal/feedback"
)

const testToken = "tok-test-1"

var testUser = User{ID: "u1", Name: "Ada Park", Email: "ada@example.com", Role: RoleStudent}

// fakeAuthServer implements the auth endpoints against a single known
// account. It records the Authorization header of every request.
func fakeAuthServer(t *testing.T, auths *[]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*auths = append(*auths, r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/api/auth/login":
			var in struct {
				Email    string `json:"email"`
				Password string `json:"password"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			if in.Email != testUser.Email || in.Password != "s3cretpass" {
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "Invalid credentials"})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"success": true, "token": testToken, "user": testUser})
		case "/api/auth/signup":
			json.NewEncoder(w).Encode(map[string]any{"success": true, "token": testToken, "user": testUser})
		case "/api/auth/me":
			if r.Header.Get("Authorization") != "Bearer "+testToken {
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "Session expired"})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"user": testUser})
		case "/api/auth/logout":
			json.NewEncoder(w).Encode(map[string]any{"success": true})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestStore(t *testing.T, baseURL string) (*Store, *credstore.Store, *feedback.Recorder) {
	t.Helper()
	tokens := api.NewTokenHolder()
	client, err := api.NewClient(api.Options{
		BaseURL: baseURL,
		Tokens:  tokens,
		Retry:   &api.RetryConfig{MaxRetries: 0},
	})
	require.NoError(t, err)

	creds := credstore.New(filepath.Join(t.TempDir(), "token"))
	rec := feedback.NewRecorder()
	return NewStore(client, tokens, creds, rec, nil), creds, rec
}

// TestLoginSuccess tests that a successful login moves the store to
// LoggedIn, attaches the token to subsequent requests and persists it.
func TestLoginSuccess(t *testing.T) {
	var auths []string
	server := fakeAuthServer(t, &auths)
	defer server.Close()

	store, creds, rec := newTestStore(t, server.URL)
	assert.Equal(t, StateUnresolved, store.State())

	res := store.Login(context.Background(), testUser.Email, "s3cretpass")
	require.True(t, res.Success)

	assert.Equal(t, StateLoggedIn, store.State())
	assert.True(t, store.IsAuthenticated())
	assert.Equal(t, testToken, store.Token())
	assert.Equal(t, testUser.Email, store.User().Email)
	assert.Empty(t, store.Err())

	// Login request itself went out unauthenticated.
	assert.Equal(t, "", auths[0])

	// The token is persisted and attached to the next request.
	saved, err := creds.Load()
	require.NoError(t, err)
	assert.Equal(t, testToken, saved)

	_, err = store.GetProfile(context.Background())
	assert.Error(t, err) // the fake server has no profile endpoint
	assert.Equal(t, "Bearer "+testToken, auths[len(auths)-1])

	success := rec.ByLevel(feedback.LevelSuccess)
	require.NotEmpty(t, success)
	assert.Contains(t, success[0].Message, "Ada Park")
}

// TestLoginWrongPassword tests that a rejected login ends LoggedOut
// with the server message surfaced, and persists nothing.
func TestLoginWrongPassword(t *testing.T) {
	var auths []string
	server := fakeAuthServer(t, &auths)
	defer server.Close()

	store, creds, rec := newTestStore(t, server.URL)

	res := store.Login(context.Background(), testUser.Email, "wrong")
	require.False(t, res.Success)
	assert.Equal(t, "Invalid credentials", res.Message)

	assert.Equal(t, StateLoggedOut, store.State())
	assert.False(t, store.IsAuthenticated())
	assert.Nil(t, store.User())
	assert.Empty(t, store.Token())
	assert.Equal(t, "Invalid credentials", store.Err())
	assert.False(t, creds.Exists())

	errs := rec.ByLevel(feedback.LevelError)
	require.Len(t, errs, 1)
	assert.Equal(t, "Invalid credentials", errs[0].Message)
}

// TestLoginValidationFailure tests that invalid input never reaches the
// network.
func TestLoginValidationFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	store, _, _ := newTestStore(t, server.URL)

	res := store.Login(context.Background(), "not-an-email", "")
	require.False(t, res.Success)
	assert.Contains(t, res.Message, "email")
	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, StateLoggedOut, store.State())
}

// TestLoginServerDown tests the fallback message when the server is
// unreachable.
func TestLoginServerDown(t *testing.T) {
	server := fakeAuthServer(t, &[]string{})
	server.Close()

	store, _, _ := newTestStore(t, server.URL)

	res := store.Login(context.Background(), testUser.Email, "s3cretpass")
	require.False(t, res.Success)
	assert.Equal(t, "Unable to log in. Please try again.", res.Message)
	assert.Equal(t, StateLoggedOut, store.State())
}

// TestSignupSuccess tests account creation.
func TestSignupSuccess(t *testing.T) {
	var auths []string
	server := fakeAuthServer(t, &auths)
	defer server.Close()

	store, creds, _ := newTestStore(t, server.URL)

	res := store.Signup(context.Background(), SignupInput{
		Name:     "Ada Park",
		Email:    "ada@example.com",
		Password: "s3cretpass",
		Country:  "Germany",
		Degree:   "master",
	})
	require.True(t, res.Success)
	assert.Equal(t, StateLoggedIn, store.State())
	assert.True(t, creds.Exists())
}

// TestSignupValidation tests field-level validation messages.
func TestSignupValidation(t *testing.T) {
	store, _, _ := newTestStore(t, "http://localhost:1")

	res := store.Signup(context.Background(), SignupInput{
		Name:     "A",
		Email:    "ada@example.com",
		Password: "short",
		Country:  "Germany",
		Degree:   "diploma",
	})
	require.False(t, res.Success)
	assert.Contains(t, res.Message, "name: must be at least 2 characters")
	assert.Contains(t, res.Message, "password: must be at least 8 characters")
	assert.Contains(t, res.Message, "degree: must be one of")
}

// TestLogout tests that logout clears memory, the outgoing header and
// the persisted credential, and sends the token on the logout call.
func TestLogout(t *testing.T) {
	var auths []string
	server := fakeAuthServer(t, &auths)
	defer server.Close()

	store, creds, _ := newTestStore(t, server.URL)
	require.True(t, store.Login(context.Background(), testUser.Email, "s3cretpass").Success)

	store.Logout(context.Background())

	assert.Equal(t, StateLoggedOut, store.State())
	assert.False(t, store.IsAuthenticated())
	assert.Nil(t, store.User())
	assert.Empty(t, store.Token())
	assert.False(t, creds.Exists())

	// The logout request still carried the credential.
	assert.Equal(t, "Bearer "+testToken, auths[len(auths)-1])
}

// TestResolveNoToken tests the fast path straight to LoggedOut.
func TestResolveNoToken(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	store, _, _ := newTestStore(t, server.URL)
	assert.Equal(t, StateLoggedOut, store.Resolve(context.Background()))
	assert.Equal(t, int32(0), calls.Load())
}

// TestResolveValidToken tests session restoration from a persisted
// credential.
func TestResolveValidToken(t *testing.T) {
	var auths []string
	server := fakeAuthServer(t, &auths)
	defer server.Close()

	store, creds, _ := newTestStore(t, server.URL)
	require.NoError(t, creds.Save(testToken))

	assert.Equal(t, StateLoggedIn, store.Resolve(context.Background()))
	assert.True(t, store.IsAuthenticated())
	assert.Equal(t, testUser.ID, store.User().ID)
}

// TestResolveInvalidToken tests that an unverifiable token is discarded
// from memory and from disk.
func TestResolveInvalidToken(t *testing.T) {
	var auths []string
	server := fakeAuthServer(t, &auths)
	defer server.Close()

	store, creds, _ := newTestStore(t, server.URL)
	require.NoError(t, creds.Save("stale-token"))

	assert.Equal(t, StateLoggedOut, store.Resolve(context.Background()))
	assert.False(t, store.IsAuthenticated())
	assert.False(t, creds.Exists())
}

// TestLoadingStates tests the Loading accessor across states.
func TestLoadingStates(t *testing.T) {
	store, _, _ := newTestStore(t, "http://localhost:1")
	assert.False(t, store.Loading())

	store.mu.Lock()
	store.state = StateLoggingIn
	store.mu.Unlock()
	assert.True(t, store.Loading())

	store.mu.Lock()
	store.state = StateResolving
	store.mu.Unlock()
	assert.True(t, store.Loading())
}
