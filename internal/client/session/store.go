package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/charadev96/galleryclient/internal/client/api"
	"github.com/charadev96/galleryclient/internal/client/domain"
	shared "github.com/charadev96/galleryclient/internal/shared/domain"
)

// Backend is the part of the gallery API the store depends on. Requests
// must use the token attached with api.WithToken when present.
type Backend interface {
	Login(ctx context.Context, creds domain.Credentials) (string, error)
	CurrentUser(ctx context.Context) (domain.User, error)
	Logout(ctx context.Context) error
}

// Store owns the client's session. It is mutated only through its methods;
// network calls happen outside the lock and their results are dropped when
// the session has moved on in the meantime.
//
// A token passed to Rehydrate is written before the profile is fetched, so
// requests issued during validation are already authenticated. In that
// window the session is StateAuthenticating.
type Store struct {
	API    Backend
	Tokens domain.TokenRepository
	Logger *zerolog.Logger

	mu     sync.Mutex
	token  string
	user   *domain.User
	gen    uint64
	seq    uint64
	subs   []*subscriber
	flight singleflight.Group

	// notifyMu orders deliveries; delivered is the seq of the last change
	// handed to subscribers.
	notifyMu  sync.Mutex
	delivered uint64

	beforeFetch func(token string)
}

type subscriber struct {
	fn func(domain.Session)
}

// change is a session snapshot taken under mu together with its position in
// the sequence of changes.
type change struct {
	seq  uint64
	sess domain.Session
	subs []*subscriber
}

func (s *Store) logger() *zerolog.Logger {
	if s.Logger == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return s.Logger
}

// Token returns the current token, making the store an api.TokenSource.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Store) Snapshot() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) Authenticated() bool {
	return s.Snapshot().Authenticated()
}

func (s *Store) State() domain.State {
	return s.Snapshot().State()
}

// Subscribe registers fn to be called with the new session after every
// change. Subscribers see changes in the order they were made; a change
// superseded before it could be delivered is skipped. Calls happen outside
// the store lock but must not sign in, sign out or rehydrate synchronously.
func (s *Store) Subscribe(fn func(domain.Session)) (unsubscribe func()) {
	sub := &subscriber{fn: fn}
	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, other := range s.subs {
			if other == sub {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// SignIn exchanges credentials for a token, persists it and rehydrates the
// session from it. Login failures are returned as received from the API.
func (s *Store) SignIn(ctx context.Context, creds domain.Credentials) (domain.Session, error) {
	token, err := s.API.Login(ctx, creds)
	if err != nil {
		return s.Snapshot(), fmt.Errorf("failed to sign in: %w", err)
	}

	if s.Tokens != nil {
		if err := s.Tokens.Set(ctx, domain.TokenKey, token); err != nil {
			s.logger().Warn().
				Err(err).
				Msg("failed to persist token, session will not survive restart")
		}
	}

	if err := s.Rehydrate(ctx, token); err != nil {
		return s.Snapshot(), err
	}
	return s.Snapshot(), nil
}

// Rehydrate stores token (when non-empty) and validates the stored token by
// fetching the current profile. Without any token it does nothing.
//
// Only a 401 clears the session; any other failure leaves the state as it
// is and is returned.
func (s *Store) Rehydrate(ctx context.Context, token string) error {
	s.mu.Lock()
	changed := false
	if token != "" && token != s.token {
		s.token = token
		s.user = nil
		s.gen++
		changed = true
	}
	if s.token == "" {
		s.mu.Unlock()
		return nil
	}
	tok, gen := s.token, s.gen
	var c change
	if changed {
		c = s.changeLocked()
	}
	s.mu.Unlock()

	if changed {
		s.publish(c)
	}

	if s.beforeFetch != nil {
		s.beforeFetch(tok)
	}
	v, err, dup := s.flight.Do(tok, func() (any, error) {
		return s.API.CurrentUser(api.WithToken(ctx, tok))
	})
	if err != nil {
		if api.IsUnauthorized(err) {
			s.logger().Info().
				Msg("token rejected by server, clearing session")
			s.Invalidate(ctx, tok)
		}
		return fmt.Errorf("failed to validate session: %w", err)
	}
	user := v.(domain.User)

	s.mu.Lock()
	if gen != s.gen || tok != s.token {
		s.mu.Unlock()
		s.logger().Debug().
			Bool("shared", dup).
			Msg("dropped stale profile response")
		return nil
	}
	s.user = &user
	c = s.changeLocked()
	s.mu.Unlock()

	s.logger().Info().
		Int64("user", user.ID).
		Str("name", user.DisplayName()).
		Msg("session authenticated")
	s.publish(c)
	return nil
}

// SignOut asks the server to invalidate the token and clears the session
// whatever the outcome of that call. Signing out without a session is a
// no-op.
func (s *Store) SignOut(ctx context.Context) error {
	tok := s.Token()
	if tok != "" {
		if err := s.API.Logout(api.WithToken(ctx, tok)); err != nil {
			s.logger().Warn().
				Err(err).
				Msg("logout request failed, clearing local session anyway")
		}
	}

	s.mu.Lock()
	var c change
	cleared := s.clearLocked()
	if cleared {
		c = s.changeLocked()
	}
	s.mu.Unlock()

	if cleared {
		s.publish(c)
	}
	return s.forget(ctx)
}

// Invalidate clears the session if token is still the current one. It is
// meant to be hooked to 401 responses of any request.
func (s *Store) Invalidate(ctx context.Context, token string) {
	s.mu.Lock()
	if token == "" || token != s.token {
		s.mu.Unlock()
		return
	}
	s.clearLocked()
	c := s.changeLocked()
	s.mu.Unlock()

	s.publish(c)
	if err := s.forget(ctx); err != nil {
		s.logger().Warn().
			Err(err).
			Msg("failed to delete persisted token")
	}
}

func (s *Store) forget(ctx context.Context) error {
	if s.Tokens == nil {
		return nil
	}
	err := s.Tokens.Delete(ctx, domain.TokenKey)
	if err != nil && !errors.Is(err, shared.ErrNotExist) {
		return fmt.Errorf("failed to delete persisted token: %w", err)
	}
	return nil
}

func (s *Store) clearLocked() bool {
	if s.token == "" && s.user == nil {
		return false
	}
	s.token = ""
	s.user = nil
	s.gen++
	return true
}

func (s *Store) snapshotLocked() domain.Session {
	sess := domain.Session{Token: s.token}
	if s.user != nil {
		u := *s.user
		sess.User = &u
	}
	return sess
}

func (s *Store) changeLocked() change {
	s.seq++
	return change{
		seq:  s.seq,
		sess: s.snapshotLocked(),
		subs: append([]*subscriber(nil), s.subs...),
	}
}

// publish hands c to its subscribers unless a later change was delivered
// already.
func (s *Store) publish(c change) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if c.seq <= s.delivered {
		return
	}
	s.delivered = c.seq
	for _, sub := range c.subs {
		sub.fn(c.sess)
	}
}
