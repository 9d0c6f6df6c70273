// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/hashicorp/auth0callback/auth0"
	"github.com/hashicorp/auth0callback/auth0/callback"
	"github.com/hashicorp/auth0callback/session"
	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	loginPath    = "/login"
	callbackPath = "/auth0-callback/"
	successPath  = "/auth0-success/"
	metricsPath  = "/metrics"
)

// newServer returns the routes of the login flow.
func newServer(c *auth0.Config, store session.Store, reg *prometheus.Registry, logger hclog.Logger) (http.Handler, error) {
	const op = "newServer"
	if reg == nil {
		return nil, fmt.Errorf("%s: registry is nil: %w", op, auth0.ErrNilParameter)
	}
	p, err := auth0.NewProvider(c, auth0.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	m, err := session.NewManager(store, session.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	metrics, err := callback.NewMetrics(reg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	login, err := callback.Login(p, m,
		callback.WithCallbackURL(callbackPath),
		callback.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	authCode, err := callback.AuthCode(p, m, m, nil, nil,
		callback.WithCallbackURL(callbackPath),
		callback.WithLogger(logger),
		callback.WithMetrics(metrics),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(loginPath, login)
	mux.HandleFunc(callbackPath, authCode)
	mux.HandleFunc(successPath, successHandler(m, c.UserAttributeKey, logger))
	mux.Handle(metricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux, nil
}

// successHandler greets the user stored in the caller's session. Callers
// without one are sent to the login route.
func successHandler(m *session.Manager, userKey string, logger hclog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var p auth0.Profile
		err := m.Attribute(req.Context(), req, userKey, &p)
		switch {
		case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrSessionExpired), errors.Is(err, auth0.ErrNotFound):
			http.Redirect(w, req, loginPath, http.StatusFound)
			return
		case err != nil:
			logger.Error("unable to read the session user", "error", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		name, err := p.Name()
		if err != nil {
			if name, err = p.Email(); err != nil {
				name = "unknown user"
			}
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if _, err := fmt.Fprintf(w, "Hello, %s\n", name); err != nil {
			logger.Warn("unable to write the success response", "error", err)
		}
	}
}
