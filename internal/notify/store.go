// Package notify caches the current user's notifications with
// read/unread bookkeeping, kept fresh by polling.
//
// Mutations are optimistic: the local list and counter change first and
// the server request follows without blocking the caller. Failures are
// logged and tolerated; any divergence is corrected by the next poll
// cycle, so staleness is bounded by the polling interval.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/example/abroad/client/internal/api"
	"github.com/example/abroad/client/internal/feedback"
)

// Store holds the notification list and its denormalized unread
// counter. The counter always equals the number of unread entries in
// the list; every mutation updates both under one lock. Network I/O
// happens outside the lock.
//
// Thread Safety: safe for concurrent use.
type Store struct {
	api      *api.Client
	notifier feedback.Notifier
	log      *zap.Logger

	mu     sync.Mutex
	items  []Notification
	unread int
}

// NewStore creates a notification store. Logger and notifier may be nil.
func NewStore(client *api.Client, notifier feedback.Notifier, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	if notifier == nil {
		notifier = feedback.Discard{}
	}
	return &Store{api: client, notifier: notifier, log: log}
}

type listResponse struct {
	Success       bool           `json:"success"`
	Notifications []Notification `json:"notifications"`
}

// Fetch replaces the entire list with the server's view and recomputes
// the unread counter from scratch. Concurrent calls are safe: the last
// successful response wins, which is fine because each is an idempotent
// full replace.
func (s *Store) Fetch(ctx context.Context) error {
	resp, err := s.api.Get(ctx, "/api/notifications", nil)
	if err != nil {
		s.log.Warn("notification fetch failed", zap.Error(err))
		return err
	}
	if !resp.OK() {
		apiErr := api.NewError(resp, "could not load notifications")
		s.log.Warn("notification fetch rejected", zap.Int("status", resp.StatusCode))
		return apiErr
	}
	var lr listResponse
	if err := resp.Decode(&lr); err != nil {
		s.log.Warn("notification fetch returned malformed body", zap.Error(err))
		return err
	}

	unread := 0
	for _, n := range lr.Notifications {
		if !n.Read {
			unread++
		}
	}

	s.mu.Lock()
	s.items = lr.Notifications
	s.unread = unread
	s.mu.Unlock()
	return nil
}

// MarkRead flips one entry to read locally and fires the server request
// without blocking on its outcome. Calling it again for the same id is
// a no-op for the counter. No rollback on failure; the next poll cycle
// reconciles.
func (s *Store) MarkRead(ctx context.Context, id string) {
	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == id {
			if !s.items[i].Read {
				s.items[i].Read = true
				if s.unread > 0 {
					s.unread--
				}
			}
			break
		}
	}
	s.mu.Unlock()

	path := fmt.Sprintf("/api/notifications/%s/read", id)
	if resp, err := s.api.Patch(ctx, path, nil); err != nil {
		s.log.Warn("mark-read request failed", zap.String("id", id), zap.Error(err))
	} else if !resp.OK() && resp.StatusCode != http.StatusNotFound {
		s.log.Warn("mark-read rejected", zap.String("id", id), zap.Int("status", resp.StatusCode))
	}
}

// MarkAllRead marks every entry read and zeroes the counter, then
// notifies the server. Same optimistic contract as MarkRead.
func (s *Store) MarkAllRead(ctx context.Context) {
	s.mu.Lock()
	for i := range s.items {
		s.items[i].Read = true
	}
	s.unread = 0
	s.mu.Unlock()

	if resp, err := s.api.Patch(ctx, "/api/notifications/mark-all-read", nil); err != nil {
		s.log.Warn("mark-all-read request failed", zap.Error(err))
	} else if !resp.OK() {
		s.log.Warn("mark-all-read rejected", zap.Int("status", resp.StatusCode))
	}
}

// Delete removes an entry locally, decrementing the counter only when
// the removed entry was unread, then notifies the server.
func (s *Store) Delete(ctx context.Context, id string) {
	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == id {
			if !s.items[i].Read && s.unread > 0 {
				s.unread--
			}
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	path := fmt.Sprintf("/api/notifications/%s", id)
	if resp, err := s.api.Delete(ctx, path); err != nil {
		s.log.Warn("delete request failed", zap.String("id", id), zap.Error(err))
	} else if !resp.OK() && resp.StatusCode != http.StatusNotFound {
		s.log.Warn("delete rejected", zap.String("id", id), zap.Int("status", resp.StatusCode))
	}
}

// Add prepends a locally pushed entry, e.g. from a future push channel.
// Status-update entries additionally surface a transient message.
func (s *Store) Add(n Notification) {
	s.mu.Lock()
	s.items = append([]Notification{n}, s.items...)
	if !n.Read {
		s.unread++
	}
	s.mu.Unlock()

	if n.Type == TypeApplicationStatusUpdate {
		s.notifier.Info(n.Title)
	}
}

// Clear drops all cached entries, e.g. on logout.
func (s *Store) Clear() {
	s.mu.Lock()
	s.items = nil
	s.unread = 0
	s.mu.Unlock()
}

// Items returns a copy of the cached list in server order.
func (s *Store) Items() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, len(s.items))
	copy(out, s.items)
	return out
}

// UnreadCount returns the denormalized unread counter.
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}
