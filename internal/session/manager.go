// Package session owns the logged in state of the client: the credential, the
// cached profile, and the cookie that carries the token between runs.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/channelchat/internal/core"
)

// API is the subset of the REST client the session needs.
type API interface {
	Login(ctx context.Context, username, password string) (string, error)
	Register(ctx context.Context, username, password string) (string, error)
	Profile(ctx context.Context, token string) (core.User, error)
}

// Manager ties the credential and profile stores to the API and the cookie jar.
type Manager struct {
	api     API
	jar     *CookieJar
	store   *Store
	profile *ProfileStore
	log     *zerolog.Logger

	loadedOnce    sync.Once
	profileLoaded chan struct{}
}

// NewManager creates a manager and restores a session from the cookie jar if
// it holds a live token. The credential is set right away from the token
// alone; the profile is fetched in the background, see ProfileLoaded.
func NewManager(ctx context.Context, api API, jar *CookieJar, logger *zerolog.Logger) *Manager {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	m := &Manager{
		api:           api,
		jar:           jar,
		store:         NewStore(logger),
		profile:       NewProfileStore(logger),
		log:           logger,
		profileLoaded: make(chan struct{}),
	}
	m.restore(ctx)
	return m
}

// Store returns the credential store.
func (m *Manager) Store() *Store { return m.store }

// Profile returns the profile store.
func (m *Manager) Profile() *ProfileStore { return m.profile }

// ProfileLoaded is closed once the profile fetch started by NewManager has
// finished, or immediately when there was nothing to restore.
func (m *Manager) ProfileLoaded() <-chan struct{} { return m.profileLoaded }

func (m *Manager) markLoaded() {
	m.loadedOnce.Do(func() { close(m.profileLoaded) })
}

func (m *Manager) restore(ctx context.Context) {
	token, err := m.jar.Token(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoToken) {
			m.log.Warn().Err(err).Msg("failed to read session cookie")
		}
		m.markLoaded()
		return
	}

	userID, ok := DecodeUserID(token)
	if !ok {
		m.log.Warn().Msg("stored token is malformed, ignoring it")
		m.markLoaded()
		return
	}

	m.store.Set(&core.Credential{Token: token, UserID: userID})
	if err := m.jar.Refresh(ctx); err != nil {
		m.log.Warn().Err(err).Msg("failed to refresh session cookie")
	}

	go m.restoreProfile(ctx, token)
}

func (m *Manager) restoreProfile(ctx context.Context, token string) {
	defer m.markLoaded()

	user, err := m.api.Profile(ctx, token)

	cred := m.store.Credential()
	if cred == nil || cred.Token != token {
		// Session changed while the profile was loading.
		return
	}

	if err != nil {
		if errors.Is(err, core.ErrNeedsAuthentication) {
			m.log.Info().Msg("stored session was rejected, logging out")
			m.Logout(ctx)
			return
		}
		m.log.Warn().Err(err).Msg("failed to fetch profile for restored session")
		return
	}
	m.profile.Set(&user)
}

// HandleToken validates token by fetching the profile it belongs to. On
// success it persists the token and sets both the credential and the
// profile. On failure nothing changes.
func (m *Manager) HandleToken(ctx context.Context, token string) bool {
	userID, ok := DecodeUserID(token)
	if !ok {
		m.log.Warn().Msg("received malformed token")
		return false
	}

	user, err := m.api.Profile(ctx, token)
	if err != nil {
		m.log.Debug().Err(err).Msg("token rejected by profile endpoint")
		return false
	}

	if err := m.jar.Save(ctx, token); err != nil {
		m.log.Warn().Err(err).Msg("failed to persist session cookie")
	}

	m.profile.Set(&user)
	m.store.Set(&core.Credential{Token: token, UserID: userID})
	m.log.Info().Int64("user_id", userID).Str("username", user.Username).Msg("session established")
	return true
}

// Login authenticates with username and password and establishes the session.
func (m *Manager) Login(ctx context.Context, username, password string) error {
	token, err := m.api.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if !m.HandleToken(ctx, token) {
		return core.RequestFailure("login", core.FamilyLogin, errors.New("server returned an unusable token"))
	}
	return nil
}

// Register creates an account and establishes the session.
func (m *Manager) Register(ctx context.Context, username, password string) error {
	token, err := m.api.Register(ctx, username, password)
	if err != nil {
		return err
	}
	if !m.HandleToken(ctx, token) {
		return core.RequestFailure("register", core.FamilyRegister, errors.New("server returned an unusable token"))
	}
	return nil
}

// Logout clears the cookie, the profile and the credential.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.jar.Clear(ctx); err != nil {
		m.log.Warn().Err(err).Msg("failed to clear session cookie")
	}
	m.profile.Set(nil)
	m.store.Set(nil)
}
