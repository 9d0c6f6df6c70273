// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package auth0

import (
	"crypto/subtle"
	"fmt"
)

// statePrefix is prepended to every generated state.
const statePrefix = "st"

// NewState generates an opaque value used to maintain state between the
// authorization request and the callback. It's round-tripped through the
// provider and must be stored by the caller so the callback can compare it.
func NewState() (string, error) {
	const op = "NewState"
	s, err := NewId(statePrefix)
	if err != nil {
		return "", fmt.Errorf("%s: unable to generate state: %w", op, err)
	}
	return s, nil
}

// ValidState reports whether the state returned by the provider matches the
// expected state stored for the caller. Both must be present; the comparison
// is exact and case-sensitive.
func ValidState(reqState, expected string) bool {
	if reqState == "" || expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(reqState), []byte(expected)) == 1
}
