// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"errors"
	"net/http"

	"github.com/hashicorp/auth0callback/auth0"
	"github.com/hashicorp/go-hclog"
)

// SuccessResponseFunc is used by Callbacks to create a http response when the
// callback is successful.
//
// The function state parameter will contain the state that was returned as
// part of a successful authentication response. The auth0.TokenPair and
// auth0.Profile have already been stored in the caller's session. The
// function should use the http.ResponseWriter to send back whatever content
// (headers, html, JSON, etc) it wishes to the client that originated the
// flow.
type SuccessResponseFunc func(state string, t *auth0.TokenPair, p *auth0.Profile, w http.ResponseWriter, req *http.Request)

// ErrorResponseFunc is used by Callbacks to create a http response when the
// callback fails.
//
// The function receives the state returned as part of the authentication
// response. It also gets parameters for the authentication error response
// and/or the callback error raised while processing the request. Error
// details are meant for server side logging, not for the client.
type ErrorResponseFunc func(state string, respErr *AuthenErrorResponse, e error, w http.ResponseWriter, req *http.Request)

// AuthenErrorResponse represents Oauth2 error responses. See:
// https://openid.net/specs/openid-connect-core-1_0.html#AuthError
type AuthenErrorResponse struct {
	Error       string
	Description string
	Uri         string
}

// RedirectOnSuccess returns a SuccessResponseFunc which redirects the client
// to the url.
func RedirectOnSuccess(url string) SuccessResponseFunc {
	return func(_ string, _ *auth0.TokenPair, _ *auth0.Profile, w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, url, http.StatusFound)
	}
}

// RedirectOnError returns an ErrorResponseFunc which logs the failure and
// redirects the client to the url. Nothing about the failure is sent to the
// client. Provider denials are logged at info, rejected requests at debug and
// everything else at error.
func RedirectOnError(url string, logger hclog.Logger) ErrorResponseFunc {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return func(_ string, respErr *AuthenErrorResponse, e error, w http.ResponseWriter, req *http.Request) {
		switch {
		case respErr != nil:
			logger.Info("provider returned an authentication error", "error", respErr.Error, "description", respErr.Description)
		case e == nil:
			logger.Error("callback failed without an error")
		case errors.Is(e, auth0.ErrValidationFailure):
			logger.Debug("callback request rejected", "error", e)
		default:
			logger.Error("callback failed", "error", e)
		}
		http.Redirect(w, req, url, http.StatusFound)
	}
}
