package api

import "sync"

// TokenSource yields the credential to attach to outgoing requests.
// An empty token means the request goes out unauthenticated.
type TokenSource interface {
	Token() string
}

// TokenHolder is the canonical TokenSource implementation. It is owned
// by the session store: only the session store may call Set or Clear,
// while the HTTP client reads it on every request. This keeps the
// "authenticated iff a token is attached" contract in one place instead
// of a library-global default header.
type TokenHolder struct {
	mu    sync.RWMutex
	token string
}

// NewTokenHolder creates an empty holder.
func NewTokenHolder() *TokenHolder {
	return &TokenHolder{}
}

// Token returns the current credential, or "" when logged out.
func (h *TokenHolder) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

// Set replaces the credential.
func (h *TokenHolder) Set(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = token
}

// Clear removes the credential.
func (h *TokenHolder) Clear() {
	h.Set("")
}

// StaticToken is a fixed TokenSource, useful in tests.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }
