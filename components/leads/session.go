package leads

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// cacheLifecycle is the part of the quotation cache a session drives.
type cacheLifecycle interface {
	LoadGeneration(ctx context.Context, gen uint64) (QuotationPayload, error)
	Generation() uint64
	Invalidate()
}

// SessionOptions configures a Session.
type SessionOptions struct {
	Credentials CredentialChecker
	Storage     Storage
	Cache       cacheLifecycle
	Notifier    Notifier
	Telemetry   Telemetry
	Logger      *zerolog.Logger
	Now         func() time.Time
	NewID       func() string
}

// Session holds the authenticated identity and mirrors it to persistent storage.
type Session struct {
	credentials CredentialChecker
	storage     Storage
	cache       cacheLifecycle
	notifier    Notifier
	telemetry   Telemetry
	logger      zerolog.Logger
	now         func() time.Time
	newID       func() string

	mu       sync.RWMutex
	identity *Identity
	warming  sync.WaitGroup
}

// NewSession builds a logged-out session.
func NewSession(opts SessionOptions) *Session {
	s := &Session{
		credentials: opts.Credentials,
		storage:     opts.Storage,
		cache:       opts.Cache,
		notifier:    normalizeNotifier(opts.Notifier),
		telemetry:   normalizeTelemetry(opts.Telemetry),
		logger:      loggerOrNop(opts.Logger),
		now:         opts.Now,
		newID:       opts.NewID,
	}
	if s.credentials == nil {
		s.credentials = NewCredentialList(DefaultCredentials())
	}
	if s.storage == nil {
		s.storage = NewInMemoryStorage()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.NewString() }
	}
	return s
}

// Login authenticates the pair, persists the identity and starts warming the quotation cache.
// A rejected login returns an AuthError and leaves the current identity untouched.
func (s *Session) Login(ctx context.Context, email, password string) (Identity, error) {
	if email == "" || password == "" {
		notify(ctx, s.notifier, s.logger, LevelError, "session.missing_credentials", MsgMissingCredentials)
		return Identity{}, &AuthError{Email: email, Err: ErrMissingCredentials}
	}
	identity, ok := s.credentials.Authenticate(email, password)
	if !ok {
		s.telemetry.Record(ctx, EventLoginFailed, map[string]any{"email": email})
		s.logger.Warn().Str("email", email).Msg("login rejected")
		notify(ctx, s.notifier, s.logger, LevelError, "session.invalid_credentials", MsgInvalidCredentials)
		return Identity{}, &AuthError{Email: email, Err: ErrInvalidCredentials}
	}
	identity.SessionID = s.newID()
	identity.LoggedInAt = s.now().UTC()

	data, err := json.Marshal(identity)
	if err != nil {
		return Identity{}, fmt.Errorf("leads: encode identity: %w", err)
	}
	if err := s.storage.Save(ctx, SessionKey, data); err != nil {
		return Identity{}, fmt.Errorf("leads: persist session: %w", err)
	}

	s.mu.Lock()
	s.identity = &identity
	gen := s.cacheGeneration()
	s.mu.Unlock()

	s.telemetry.Record(ctx, EventLogin, map[string]any{"email": identity.Email})
	s.logger.Info().Str("email", identity.Email).Str("session_id", identity.SessionID).Msg("login accepted")
	notify(ctx, s.notifier, s.logger, LevelSuccess, "session.login", MsgLoginSuccess)
	s.warm(ctx, gen, true)
	return identity, nil
}

// Logout forgets the identity, removes it from storage and clears the quotation cache.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	var email string
	if s.identity != nil {
		email = s.identity.Email
	}
	s.identity = nil
	s.mu.Unlock()

	if s.cache != nil {
		s.cache.Invalidate()
	}
	var storeErr error
	if err := s.storage.Delete(ctx, SessionKey); err != nil {
		storeErr = fmt.Errorf("leads: clear persisted session: %w", err)
		s.logger.Error().Err(err).Msg("clear persisted session")
	}
	s.telemetry.Record(ctx, EventLogout, map[string]any{"email": email})
	notify(ctx, s.notifier, s.logger, LevelInfo, "session.logout", MsgLoggedOut)
	return storeErr
}

// Restore rehydrates a previously persisted identity without re-checking credentials and
// eagerly warms the cache. It reports whether an identity was restored. Corrupt entries are dropped.
func (s *Session) Restore(ctx context.Context) (bool, error) {
	data, ok, err := s.storage.Load(ctx, SessionKey)
	if err != nil {
		return false, fmt.Errorf("leads: load persisted session: %w", err)
	}
	if !ok {
		return false, nil
	}
	var identity Identity
	if err := json.Unmarshal(data, &identity); err != nil || identity.Email == "" {
		if err == nil {
			err = errors.New("identity has no email")
		}
		s.logger.Warn().Err(err).Msg("dropping unreadable persisted session")
		if delErr := s.storage.Delete(ctx, SessionKey); delErr != nil {
			s.logger.Error().Err(delErr).Msg("clear unreadable session")
		}
		return false, nil
	}
	if identity.SessionID == "" {
		identity.SessionID = s.newID()
	}

	s.mu.Lock()
	s.identity = &identity
	gen := s.cacheGeneration()
	s.mu.Unlock()

	s.telemetry.Record(ctx, EventRestore, map[string]any{"email": identity.Email})
	s.logger.Info().Str("email", identity.Email).Msg("session restored")
	s.warm(ctx, gen, false)
	return true, nil
}

// IsAuthenticated reports whether an identity is held in memory.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity != nil
}

// Current returns the active identity.
func (s *Session) Current() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return Identity{}, false
	}
	return *s.identity, true
}

// Matches reports whether sessionID belongs to the active identity.
func (s *Session) Matches(sessionID string) bool {
	if sessionID == "" {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.identity.SessionID), []byte(sessionID)) == 1
}

// Wait blocks until background cache warm-ups have finished.
func (s *Session) Wait() {
	s.warming.Wait()
}

// cacheGeneration is read while s.mu is held so a Logout that follows the identity change
// always invalidates past the returned generation.
func (s *Session) cacheGeneration() uint64 {
	if s.cache == nil {
		return 0
	}
	return s.cache.Generation()
}

// warm loads the cache in the background for generation gen. A logout in the meantime moves
// the generation, and the warm-up then neither fetches nor stores.
func (s *Session) warm(ctx context.Context, gen uint64, afterLogin bool) {
	if s.cache == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	s.warming.Add(1)
	go func() {
		defer s.warming.Done()
		_, err := s.cache.LoadGeneration(ctx, gen)
		if errors.Is(err, ErrStaleGeneration) {
			s.logger.Debug().Uint64("generation", gen).Msg("warm-up skipped after logout")
			return
		}
		if err != nil {
			s.logger.Warn().Err(err).Bool("after_login", afterLogin).Msg("quotation cache warm-up failed")
			if afterLogin {
				notify(ctx, s.notifier, s.logger, LevelWarning, "session.warmup", MsgLoginPartial)
			}
		}
	}()
}
