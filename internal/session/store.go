// Package session is the single source of truth for "who is logged in"
// and the sole owner of the durable credential. Every other component
// reads authentication state from here; none may write the credential
// directly.
package session

import (
	"context"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/example/abroad/client/internal/api"
	"github.com/example/abroad/client/internal/credstore"
	"github.com/example/abroad/client/internal/feedback"
)

// State is the session lifecycle state.
type State int

// Session states. A fresh store is Unresolved until Resolve has run.
const (
	StateUnresolved State = iota
	StateResolving
	StateLoggedOut
	StateLoggingIn
	StateSigningUp
	StateLoggedIn
)

func (s State) String() string {
	switch s {
	case StateUnresolved:
		return "unresolved"
	case StateResolving:
		return "resolving"
	case StateLoggedOut:
		return "logged-out"
	case StateLoggingIn:
		return "logging-in"
	case StateSigningUp:
		return "signing-up"
	case StateLoggedIn:
		return "logged-in"
	default:
		return "unknown"
	}
}

// Result is the outcome of an auth operation. Auth flows never return
// Go errors to the caller; the caller decides navigation from Result.
type Result struct {
	Success bool
	Message string
}

// Fallback messages when the server supplies none.
const (
	fallbackLoginMsg  = "Unable to log in. Please try again."
	fallbackSignupMsg = "Unable to create the account. Please try again."
)

// Store owns the session state machine and the durable credential.
//
// The token holder passed at construction is written exclusively by
// this store, keeping IsAuthenticated and the outgoing Authorization
// header in lockstep: both change under the same mutex.
//
// Thread Safety: safe for concurrent use.
type Store struct {
	api      *api.Client
	tokens   *api.TokenHolder
	creds    *credstore.Store
	notifier feedback.Notifier
	log      *zap.Logger
	validate *validator.Validate

	mu     sync.Mutex
	state  State
	user   *User
	token  string
	errMsg string

	// epoch guards against late network completions mutating a session
	// that was cleared while the request was in flight. Logout bumps
	// it; completions from an earlier epoch are dropped.
	epoch uint64
}

// NewStore creates a session store. Notifier and logger may be nil.
func NewStore(client *api.Client, tokens *api.TokenHolder, creds *credstore.Store, notifier feedback.Notifier, log *zap.Logger) *Store {
	if notifier == nil {
		notifier = feedback.Discard{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		api:      client,
		tokens:   tokens,
		creds:    creds,
		notifier: notifier,
		log:      log,
		validate: validator.New(),
		state:    StateUnresolved,
	}
}

// State returns the current lifecycle state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// User returns a copy of the current user, or nil when logged out.
func (s *Store) User() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Token returns the in-memory credential, or "" when logged out.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// IsAuthenticated reports whether both a user and a token are present.
func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil && s.token != ""
}

// Loading reports whether an auth operation is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateResolving || s.state == StateLoggingIn || s.state == StateSigningUp
}

// Err returns the last operation's error message, or "" if the last
// operation succeeded. Cleared when the next operation starts.
func (s *Store) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

type authResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Token   string `json:"token"`
	User    User   `json:"user"`
}

type meResponse struct {
	User User `json:"user"`
}

// Resolve restores the session from the persisted credential. Called
// once at startup. With no persisted token the store goes straight to
// LoggedOut; otherwise the token is verified against the server. An
// unverifiable token, for any reason including network failure, is
// treated as invalid and discarded, never retried silently.
func (s *Store) Resolve(ctx context.Context) State {
	s.mu.Lock()
	token, err := s.creds.Load()
	if err != nil {
		s.state = StateLoggedOut
		s.mu.Unlock()
		return StateLoggedOut
	}
	s.state = StateResolving
	s.errMsg = ""
	s.token = token
	s.tokens.Set(token)
	epoch := s.epoch
	s.mu.Unlock()

	var user User
	ok := false
	resp, err := s.api.Get(ctx, "/api/auth/me", nil)
	if err == nil && resp.OK() {
		var body meResponse
		if resp.Decode(&body) == nil && body.User.ID != "" {
			user = body.User
			ok = true
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		// A logout won the race; leave whatever state it produced.
		return s.state
	}
	if !ok {
		s.log.Info("persisted session could not be resolved, discarding token")
		s.clearAuthLocked()
		return StateLoggedOut
	}
	s.user = &user
	s.state = StateLoggedIn
	return StateLoggedIn
}

// Login authenticates with email and password. On success the token is
// persisted and attached to outgoing requests before Login returns. On
// failure the store ends LoggedOut with the server-supplied message
// (when present) recorded and surfaced.
func (s *Store) Login(ctx context.Context, email, password string) Result {
	in := loginInput{Email: email, Password: password}
	if verr := checkInput(s.validate, in); verr != nil {
		return s.failAuth(verr.Error())
	}

	epoch := s.begin(StateLoggingIn)
	resp, err := s.api.Post(ctx, "/api/auth/login", in)
	if err != nil {
		return s.completeAuthFailure(epoch, fallbackLoginMsg)
	}

	var body authResponse
	decodeErr := resp.Decode(&body)
	if !resp.OK() || decodeErr != nil || !body.Success || body.Token == "" {
		msg := api.ErrorMessage(resp.Body, fallbackLoginMsg)
		if msg == fallbackLoginMsg && body.Message != "" {
			msg = body.Message
		}
		return s.completeAuthFailure(epoch, msg)
	}
	return s.completeAuthSuccess(epoch, body.Token, body.User, "Welcome back, "+body.User.Name)
}

// Signup creates an account. Same contract as Login.
func (s *Store) Signup(ctx context.Context, in SignupInput) Result {
	if verr := checkInput(s.validate, in); verr != nil {
		return s.failAuth(verr.Error())
	}

	epoch := s.begin(StateSigningUp)
	resp, err := s.api.Post(ctx, "/api/auth/signup", in)
	if err != nil {
		return s.completeAuthFailure(epoch, fallbackSignupMsg)
	}

	var body authResponse
	decodeErr := resp.Decode(&body)
	if !resp.OK() || decodeErr != nil || body.Token == "" {
		msg := api.ErrorMessage(resp.Body, fallbackSignupMsg)
		return s.completeAuthFailure(epoch, msg)
	}
	return s.completeAuthSuccess(epoch, body.Token, body.User, "Account created for "+body.User.Email)
}

// Logout ends the session. The server-side invalidation call is
// best-effort; local state, the request header and the persisted
// credential are cleared unconditionally, so Logout never fails from
// the caller's perspective.
func (s *Store) Logout(ctx context.Context) {
	if _, err := s.api.Post(ctx, "/api/auth/logout", nil); err != nil {
		s.log.Debug("server-side logout failed", zap.Error(err))
	}

	s.mu.Lock()
	s.epoch++
	s.clearAuthLocked()
	s.mu.Unlock()

	s.notifier.Info("Logged out")
}

// begin moves the store into an in-flight auth state and returns the
// epoch to check on completion.
func (s *Store) begin(st State) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
	s.errMsg = ""
	return s.epoch
}

func (s *Store) completeAuthSuccess(epoch uint64, token string, user User, toast string) Result {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return Result{Success: false, Message: "session ended before the operation completed"}
	}
	s.user = &user
	s.token = token
	s.tokens.Set(token)
	s.state = StateLoggedIn
	s.errMsg = ""
	if err := s.creds.Save(token); err != nil {
		s.log.Warn("could not persist credential", zap.Error(err))
	}
	s.mu.Unlock()

	s.notifier.Success(toast)
	return Result{Success: true, Message: toast}
}

func (s *Store) completeAuthFailure(epoch uint64, msg string) Result {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return Result{Success: false, Message: "session ended before the operation completed"}
	}
	s.clearAuthLocked()
	s.errMsg = msg
	s.mu.Unlock()

	s.notifier.Error(msg)
	return Result{Success: false, Message: msg}
}

// failAuth records a pre-flight failure (client-side validation).
func (s *Store) failAuth(msg string) Result {
	s.mu.Lock()
	s.state = StateLoggedOut
	s.errMsg = msg
	s.mu.Unlock()

	s.notifier.Error(msg)
	return Result{Success: false, Message: msg}
}

// clearAuthLocked wipes user, in-memory token, outgoing header and the
// persisted credential. Callers hold s.mu.
func (s *Store) clearAuthLocked() {
	s.user = nil
	s.token = ""
	s.tokens.Clear()
	if err := s.creds.Clear(); err != nil {
		s.log.Warn("could not clear persisted credential", zap.Error(err))
	}
	s.state = StateLoggedOut
}
