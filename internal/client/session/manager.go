// Package session keeps the desktop login alive: it persists the token,
// refreshes it in the background and drops it when the server or the local
// lifetime says it is over.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/skratchdot/open-golang/open"

	"github.com/pressify/reprint-hub/internal/client/api"
	"github.com/pressify/reprint-hub/internal/client/tokenstore"
	"github.com/pressify/reprint-hub/internal/core/domain"
)

// ErrNotSignedIn is returned when an operation needs a session and none exists.
var ErrNotSignedIn = errors.New("not signed in")

// API is the subset of the HTTP client the manager drives.
type API interface {
	Login(ctx context.Context, username, password string) (*api.AuthResponse, error)
	Logout(ctx context.Context, token string) error
	Refresh(ctx context.Context, token string) (*api.AuthResponse, error)
	Me(ctx context.Context, token string) (*domain.Profile, error)
	Validate(ctx context.Context, token string) (*domain.Profile, error)
	GenerateSSOCode(ctx context.Context, token string) (*api.SSOCode, error)
	ClientSettings(ctx context.Context) (*api.ClientSettings, error)
	SSOCallbackURL(code string) string
}

// Store persists the session between runs.
type Store interface {
	SaveLogin(ctx context.Context, token string, user domain.Profile) error
	UpdateToken(ctx context.Context, token string, user domain.Profile) error
	UpdateUser(ctx context.Context, user domain.Profile) error
	SaveLifetime(ctx context.Context, lifetime time.Duration) error
	Load(ctx context.Context) (*tokenstore.Session, error)
	Clear(ctx context.Context) error
}

type Options struct {
	RefreshInterval     time.Duration
	ExpiryCheckInterval time.Duration
	SessionLifetime     time.Duration
}

// State describes the current session for display.
type State struct {
	User      domain.Profile
	LoginTime time.Time
	ExpiresAt time.Time
	Encrypted bool
	// Offline is set when Restore kept the local session because the server
	// could not be reached.
	Offline bool
}

type Manager struct {
	api   API
	store Store
	log   zerolog.Logger
	opts  Options

	now     func() time.Time
	openURL func(string) error

	// refreshMu keeps one token rotation in flight at a time.
	refreshMu sync.Mutex

	mu       sync.Mutex
	current  *tokenstore.Session
	gen      uint64
	lifetime time.Duration
}

func NewManager(client API, store Store, opts Options, log zerolog.Logger) *Manager {
	return &Manager{
		api:      client,
		store:    store,
		log:      log,
		opts:     opts,
		now:      time.Now,
		openURL:  open.Run,
		lifetime: opts.SessionLifetime,
	}
}

// Login authenticates and stores the new session, then picks up the
// server's session lifetime when it is available.
func (m *Manager) Login(ctx context.Context, username, password string) (*domain.Profile, error) {
	res, err := m.api.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if err := m.store.SaveLogin(ctx, res.Token, res.User); err != nil {
		return nil, err
	}

	now := m.now()
	m.mu.Lock()
	m.gen++
	m.current = &tokenstore.Session{Token: res.Token, User: res.User, LoginTime: now, StoredAt: now}
	m.mu.Unlock()

	m.fetchLifetime(ctx)
	m.log.Info().Str("uid", res.User.UID).Msg("signed in")
	return &res.User, nil
}

// Logout revokes the token remotely when possible and always clears the
// local session.
func (m *Manager) Logout(ctx context.Context) error {
	token, _, ok := m.snapshot()
	if !ok {
		return m.store.Clear(ctx)
	}
	m.drop()

	if err := m.api.Logout(ctx, token); err != nil {
		m.log.Warn().Err(err).Msg("remote logout failed")
	}
	return m.store.Clear(ctx)
}

// Refresh swaps the current token for a new one. Any failure other than an
// unreachable server clears the session, unless the token was already
// replaced while the call was in flight.
func (m *Manager) Refresh(ctx context.Context) error {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	token, gen, ok := m.snapshot()
	if !ok {
		return ErrNotSignedIn
	}

	res, err := m.api.Refresh(ctx, token)
	if err != nil {
		if api.IsUnreachable(err) || errors.Is(err, context.Canceled) {
			return err
		}
		if m.clearIf(ctx, gen, token) {
			m.log.Info().Err(err).Msg("token refresh failed, clearing session")
			return api.ErrSessionExpired
		}
		if _, _, ok := m.snapshot(); ok {
			return nil
		}
		return ErrNotSignedIn
	}

	m.mu.Lock()
	if m.gen != gen || m.current == nil || m.current.Token != token {
		m.mu.Unlock()
		return ErrNotSignedIn
	}
	m.current.Token = res.Token
	m.current.User = res.User
	m.current.StoredAt = m.now()
	m.mu.Unlock()

	return m.store.UpdateToken(ctx, res.Token, res.User)
}

// Validate asks the server whether the stored token is still good.
func (m *Manager) Validate(ctx context.Context) (*domain.Profile, error) {
	return m.profileCall(ctx, m.api.Validate)
}

// Me fetches the profile and updates the cached copy.
func (m *Manager) Me(ctx context.Context) (*domain.Profile, error) {
	return m.profileCall(ctx, m.api.Me)
}

// OpenWeb mints a one-time code and opens the web callback in the default
// browser. It returns the URL it opened.
func (m *Manager) OpenWeb(ctx context.Context) (string, error) {
	var code *api.SSOCode
	err := m.withToken(ctx, func(token string) error {
		var err error
		code, err = m.api.GenerateSSOCode(ctx, token)
		return err
	})
	if err != nil {
		return "", err
	}

	url := m.api.SSOCallbackURL(code.Code)
	if err := m.openURL(url); err != nil {
		return "", fmt.Errorf("open browser: %w", err)
	}
	return url, nil
}

// Restore loads the stored session at startup and checks it with the
// server. The cached server lifetime applies before the check, and a fresh
// one is fetched when the server answers. An invalid or expired session is
// cleared. An unreachable server keeps the local session and marks the state
// offline.
func (m *Manager) Restore(ctx context.Context) (*State, error) {
	sess, err := m.store.Load(ctx)
	if err != nil {
		if errors.Is(err, tokenstore.ErrNoSession) {
			_ = m.store.Clear(ctx)
			return nil, ErrNotSignedIn
		}
		return nil, err
	}

	token := sess.Token
	m.mu.Lock()
	m.gen++
	m.current = sess
	if sess.Lifetime > 0 {
		m.lifetime = sess.Lifetime
	}
	gen := m.gen
	m.mu.Unlock()

	if m.expired(sess) {
		m.clearIf(ctx, gen, token)
		return nil, api.ErrSessionExpired
	}

	user, err := m.api.Validate(ctx, token)
	switch {
	case err == nil:
		m.setUser(ctx, gen, *user)
		m.fetchLifetime(ctx)
		if m.expired(sess) {
			m.clearIf(ctx, gen, token)
			return nil, api.ErrSessionExpired
		}
		return m.State(), nil
	case api.IsUnreachable(err):
		m.log.Warn().Err(err).Msg("server unreachable, keeping local session")
		st := m.State()
		if st != nil {
			st.Offline = true
			return st, nil
		}
		return nil, ErrNotSignedIn
	case errors.Is(err, api.ErrSessionExpired):
		m.clearIf(ctx, gen, token)
		return nil, api.ErrSessionExpired
	default:
		return nil, err
	}
}

// State returns the in-memory session, or nil when signed out.
func (m *Manager) State() *State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	st := &State{
		User:      m.current.User,
		LoginTime: m.current.LoginTime,
		Encrypted: m.current.Encrypted,
	}
	if !m.current.LoginTime.IsZero() {
		st.ExpiresAt = m.current.LoginTime.Add(m.lifetime)
	}
	return st
}

// Run refreshes the token and enforces the session lifetime until ctx is
// done. Ticks while signed out do nothing.
func (m *Manager) Run(ctx context.Context) {
	refresh := time.NewTicker(m.opts.RefreshInterval)
	defer refresh.Stop()
	check := time.NewTicker(m.opts.ExpiryCheckInterval)
	defer check.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-refresh.C:
			if _, _, ok := m.snapshot(); !ok {
				continue
			}
			if err := m.Refresh(ctx); err != nil && !errors.Is(err, ErrNotSignedIn) {
				m.log.Debug().Err(err).Msg("background refresh")
			}
		case <-check.C:
			m.checkLifetime(ctx)
		}
	}
}

func (m *Manager) checkLifetime(ctx context.Context) {
	m.mu.Lock()
	sess, gen := m.current, m.gen
	var token string
	if sess != nil {
		token = sess.Token
	}
	m.mu.Unlock()
	if sess == nil || !m.expired(sess) {
		return
	}
	m.log.Info().Msg("session lifetime reached, signing out")
	m.clearIf(ctx, gen, token)
}

func (m *Manager) expired(sess *tokenstore.Session) bool {
	if sess.LoginTime.IsZero() {
		return false
	}
	m.mu.Lock()
	lifetime := m.lifetime
	m.mu.Unlock()
	return !m.now().Before(sess.LoginTime.Add(lifetime))
}

func (m *Manager) fetchLifetime(ctx context.Context) {
	settings, err := m.api.ClientSettings(ctx)
	if err != nil {
		m.log.Debug().Err(err).Msg("client settings unavailable")
		return
	}
	if settings.SessionLifetimeDays <= 0 {
		return
	}
	lifetime := time.Duration(settings.SessionLifetimeDays) * 24 * time.Hour
	m.mu.Lock()
	m.lifetime = lifetime
	m.mu.Unlock()

	if err := m.store.SaveLifetime(ctx, lifetime); err != nil {
		m.log.Warn().Err(err).Msg("cache session lifetime")
	}
}

func (m *Manager) profileCall(ctx context.Context, call func(context.Context, string) (*domain.Profile, error)) (*domain.Profile, error) {
	_, gen, ok := m.snapshot()
	if !ok {
		return nil, ErrNotSignedIn
	}

	var user *domain.Profile
	err := m.withToken(ctx, func(token string) error {
		var err error
		user, err = call(ctx, token)
		return err
	})
	if err != nil {
		return nil, err
	}
	m.setUser(ctx, gen, *user)
	return user, nil
}

// withToken runs fn with the current token. A 401 triggers one refresh and
// one retry.
func (m *Manager) withToken(ctx context.Context, fn func(token string) error) error {
	token, _, ok := m.snapshot()
	if !ok {
		return ErrNotSignedIn
	}

	err := fn(token)
	if !errors.Is(err, api.ErrSessionExpired) {
		return err
	}

	if err := m.Refresh(ctx); err != nil {
		return err
	}
	token, gen, ok := m.snapshot()
	if !ok {
		return ErrNotSignedIn
	}
	if err := fn(token); err != nil {
		if errors.Is(err, api.ErrSessionExpired) {
			m.clearIf(ctx, gen, token)
		}
		return err
	}
	return nil
}

func (m *Manager) snapshot() (token string, gen uint64, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return "", m.gen, false
	}
	return m.current.Token, m.gen, true
}

func (m *Manager) setUser(ctx context.Context, gen uint64, user domain.Profile) {
	m.mu.Lock()
	if m.gen != gen || m.current == nil {
		m.mu.Unlock()
		return
	}
	m.current.User = user
	m.mu.Unlock()

	if err := m.store.UpdateUser(ctx, user); err != nil {
		m.log.Warn().Err(err).Msg("cache profile")
	}
}

// drop forgets the in-memory session and bumps the generation.
func (m *Manager) drop() {
	m.mu.Lock()
	m.gen++
	m.current = nil
	m.mu.Unlock()
}

// clearIf clears the session only if it is still generation gen and still
// holds token. It reports whether it cleared.
func (m *Manager) clearIf(ctx context.Context, gen uint64, token string) bool {
	m.mu.Lock()
	if m.gen != gen || m.current == nil || m.current.Token != token {
		m.mu.Unlock()
		return false
	}
	m.gen++
	m.current = nil
	m.mu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		m.log.Warn().Err(err).Msg("clear stored session")
	}
	return true
}
