// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package auth0

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidParameter   = errors.New("invalid parameter")
	ErrNilParameter       = errors.New("nil parameter")
	ErrInvalidCACert      = errors.New("invalid CA certificate")
	ErrIdGeneratorFailed  = errors.New("id generation failed")
	ErrNotFound           = errors.New("not found")
	ErrMissingIdToken     = errors.New("id_token is missing")
	ErrMissingAccessToken = errors.New("access_token is missing")

	// ErrValidationFailure is returned when a callback request is rejected
	// before any call to the provider: a missing or mismatched state.
	ErrValidationFailure = errors.New("callback validation failed")

	// ErrTokenExchange is returned when an authorization code could not be
	// exchanged for both an id_token and an access_token.
	ErrTokenExchange = errors.New("token exchange failed")

	// ErrProfileFetch is returned when the user's profile could not be
	// retrieved from the userinfo endpoint.
	ErrProfileFetch = errors.New("profile fetch failed")

	// ErrPropertyAccess is returned when a profile property is absent, has an
	// unexpected type, or the profile document can't be parsed.
	ErrPropertyAccess = errors.New("profile property access failed")
)

// ProviderError is a non-200 response from one of the provider's endpoints.
// ErrorCode and Description are populated when the response body carries the
// oauth2 "error" and "error_description" fields.
type ProviderError struct {
	StatusCode  int
	Status      string
	ErrorCode   string
	Description string
}

// Error satisfies the error interface.
func (e *ProviderError) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	switch {
	case e.ErrorCode != "" && e.Description != "":
		return fmt.Sprintf("provider responded %s: %s: %s", status, e.ErrorCode, e.Description)
	case e.ErrorCode != "":
		return fmt.Sprintf("provider responded %s: %s", status, e.ErrorCode)
	default:
		return fmt.Sprintf("provider responded %s", status)
	}
}
