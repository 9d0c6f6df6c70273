// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"fmt"
	"net/http"

	"github.com/hashicorp/auth0callback/auth0"
)

// Login creates a handler which begins the authorization code flow: it
// generates a state, stores it with the StateWriter and redirects the client
// to the tenant's authorize endpoint. The WithCallbackURL option is required
// and must be the url AuthCode is served on.
//
// Supported options:
//   - WithCallbackURL
//   - WithLogger
func Login(p *auth0.Provider, sw StateWriter, opt ...auth0.Option) (http.HandlerFunc, error) {
	const op = "callback.Login"
	switch {
	case p == nil:
		return nil, fmt.Errorf("%s: provider is nil: %w", op, auth0.ErrInvalidParameter)
	case sw == nil:
		return nil, fmt.Errorf("%s: state writer is nil: %w", op, auth0.ErrInvalidParameter)
	}
	opts := getCallbackOpts(opt...)
	if opts.withCallbackURL == "" {
		return nil, fmt.Errorf("%s: callback url is empty: %w", op, auth0.ErrInvalidParameter)
	}
	logger := opts.withLogger.Named("login")

	return func(w http.ResponseWriter, req *http.Request) {
		ctx := req.Context()
		state, err := auth0.NewState()
		if err != nil {
			logger.Error("unable to create state", "error", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if err := sw.SetExpectedState(ctx, w, req, state); err != nil {
			logger.Error("unable to store state", "error", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		authURL, err := p.AuthURL(ctx, state, redirectURI(opts.withCallbackURL, req))
		if err != nil {
			logger.Error("unable to create auth url", "error", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		http.Redirect(w, req, authURL, http.StatusFound)
	}, nil
}
