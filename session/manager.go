// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"
	"encoding"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/auth0callback/auth0"
	"github.com/hashicorp/go-hclog"
)

const (
	// DefaultCookieName is the name of the cookie carrying the session id.
	DefaultCookieName = "auth0callback_session"

	// DefaultTTL is how long a session lives.
	DefaultTTL = 24 * time.Hour

	// stateKey holds the expected state while a flow is in progress.
	stateKey = "auth0.state"
)

// Manager ties sessions in a Store to the callers' cookies. It satisfies the
// callback package's StateReader, StateWriter and Storer interfaces and is
// concurrently safe.
type Manager struct {
	store        Store
	cookieName   string
	cookiePath   string
	cookieDomain string
	secure       *bool
	ttl          time.Duration
	logger       hclog.Logger
}

// NewManager creates a Manager for the store.
//
// Supported options:
//   - WithCookieName
//   - WithCookiePath
//   - WithCookieDomain
//   - WithSecureCookie
//   - WithTTL
//   - WithLogger
func NewManager(store Store, opt ...auth0.Option) (*Manager, error) {
	const op = "session.NewManager"
	if store == nil {
		return nil, fmt.Errorf("%s: store is nil: %w", op, auth0.ErrNilParameter)
	}
	opts := getManagerOpts(opt...)
	switch {
	case opts.withCookieName == "":
		return nil, fmt.Errorf("%s: cookie name is empty: %w", op, auth0.ErrInvalidParameter)
	case opts.withTTL <= 0:
		return nil, fmt.Errorf("%s: ttl must be positive: %w", op, auth0.ErrInvalidParameter)
	}
	return &Manager{
		store:        store,
		cookieName:   opts.withCookieName,
		cookiePath:   opts.withCookiePath,
		cookieDomain: opts.withCookieDomain,
		secure:       opts.withSecureCookie,
		ttl:          opts.withTTL,
		logger:       opts.withLogger.Named("session"),
	}, nil
}

// Load returns the request's session. It returns ErrSessionNotFound when the
// request has no session cookie or the session is unknown, and
// ErrSessionExpired when it has expired.
func (m *Manager) Load(ctx context.Context, req *http.Request) (*Session, error) {
	const op = "Manager.Load"
	c, err := req.Cookie(m.cookieName)
	if err != nil || c.Value == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrSessionNotFound)
	}
	s, err := m.store.Load(ctx, c.Value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}

// loadOrCreate returns the request's session, or a new one if it has none
// that can be used.
func (m *Manager) loadOrCreate(ctx context.Context, req *http.Request) (*Session, error) {
	const op = "Manager.loadOrCreate"
	s, err := m.Load(ctx, req)
	switch {
	case err == nil:
		return s, nil
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrSessionExpired):
		s, err := New(m.ttl)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%s: %w", op, err)
	}
}

// save stores the session and sets the caller's cookie.
func (m *Manager) save(ctx context.Context, w http.ResponseWriter, req *http.Request, s *Session) error {
	const op = "Manager.save"
	if err := m.store.Save(ctx, s); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	http.SetCookie(w, m.cookie(req, s))
	return nil
}

func (m *Manager) cookie(req *http.Request, s *Session) *http.Cookie {
	secure := req.TLS != nil
	if m.secure != nil {
		secure = *m.secure
	}
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    s.ID,
		Path:     m.cookiePath,
		Domain:   m.cookieDomain,
		Expires:  s.ExpiresAt,
		MaxAge:   int(time.Until(s.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   secure,
		// Lax, so the cookie is sent with the provider's top level redirect
		// back to the callback.
		SameSite: http.SameSiteLaxMode,
	}
}

// ExpectedState returns the state stored by SetExpectedState. It returns an
// empty state when the caller has no session or no flow in progress.
func (m *Manager) ExpectedState(ctx context.Context, req *http.Request) (string, error) {
	const op = "Manager.ExpectedState"
	s, err := m.Load(ctx, req)
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrSessionExpired):
		return "", nil
	case err != nil:
		return "", fmt.Errorf("%s: %w", op, err)
	}
	state, _ := s.GetString(stateKey)
	return state, nil
}

// SetExpectedState stores the state in the caller's session, creating the
// session if needed.
func (m *Manager) SetExpectedState(ctx context.Context, w http.ResponseWriter, req *http.Request, state string) error {
	const op = "Manager.SetExpectedState"
	if state == "" {
		return fmt.Errorf("%s: state is empty: %w", op, auth0.ErrInvalidParameter)
	}
	s, err := m.loadOrCreate(ctx, req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.SetString(stateKey, state)
	if err := m.save(ctx, w, req, s); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// StoreAttributes stores the attributes in the caller's session. The session
// is given a new id and the expected state is removed, so the state can't be
// replayed and an id issued before authentication is no longer valid.
func (m *Manager) StoreAttributes(ctx context.Context, w http.ResponseWriter, req *http.Request, attributes map[string]encoding.BinaryMarshaler) error {
	const op = "Manager.StoreAttributes"
	s, err := m.loadOrCreate(ctx, req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	for k, v := range attributes {
		if err := s.Set(k, v); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	s.Delete(stateKey)

	rotated, err := New(m.ttl)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	oldID := s.ID
	s.ID, s.CreatedAt, s.ExpiresAt = rotated.ID, rotated.CreatedAt, rotated.ExpiresAt
	if err := m.save(ctx, w, req, s); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := m.store.Delete(ctx, oldID); err != nil {
		m.logger.Warn("unable to delete previous session", "error", err)
	}
	return nil
}

// Attribute decodes the attribute stored under key in the caller's session
// into v. It returns auth0.ErrNotFound when nothing is stored under key.
func (m *Manager) Attribute(ctx context.Context, req *http.Request, key string, v encoding.BinaryUnmarshaler) error {
	const op = "Manager.Attribute"
	s, err := m.Load(ctx, req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.Get(key, v); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// managerOptions is the set of available options for Manager functions
type managerOptions struct {
	withCookieName   string
	withCookiePath   string
	withCookieDomain string
	withSecureCookie *bool
	withTTL          time.Duration
	withLogger       hclog.Logger
}

// managerDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func managerDefaults() managerOptions {
	return managerOptions{
		withCookieName: DefaultCookieName,
		withCookiePath: "/",
		withTTL:        DefaultTTL,
		withLogger:     hclog.NewNullLogger(),
	}
}

// getManagerOpts gets the defaults and applies the opt overrides passed in.
func getManagerOpts(opt ...auth0.Option) managerOptions {
	opts := managerDefaults()
	auth0.ApplyOpts(&opts, opt...)
	return opts
}

// WithCookieName provides an optional session cookie name.
func WithCookieName(name string) auth0.Option {
	return func(o interface{}) {
		if o, ok := o.(*managerOptions); ok {
			o.withCookieName = name
		}
	}
}

// WithCookiePath provides an optional session cookie path. The default is
// "/".
func WithCookiePath(path string) auth0.Option {
	return func(o interface{}) {
		if o, ok := o.(*managerOptions); ok {
			o.withCookiePath = path
		}
	}
}

// WithCookieDomain provides an optional session cookie domain.
func WithCookieDomain(domain string) auth0.Option {
	return func(o interface{}) {
		if o, ok := o.(*managerOptions); ok {
			o.withCookieDomain = domain
		}
	}
}

// WithSecureCookie forces the session cookie's Secure attribute. By default
// it's set when the request was received over TLS.
func WithSecureCookie(secure bool) auth0.Option {
	return func(o interface{}) {
		if o, ok := o.(*managerOptions); ok {
			o.withSecureCookie = &secure
		}
	}
}

// WithTTL provides an optional session lifetime.
func WithTTL(ttl time.Duration) auth0.Option {
	return func(o interface{}) {
		if o, ok := o.(*managerOptions); ok {
			o.withTTL = ttl
		}
	}
}

// WithLogger provides an optional logger.
func WithLogger(l hclog.Logger) auth0.Option {
	return func(o interface{}) {
		if o, ok := o.(*managerOptions); ok && l != nil {
			o.withLogger = l
		}
	}
}
