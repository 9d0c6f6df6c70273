// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"context"
	"encoding"
	"net/http"
)

// StateReader defines an interface for finding the state stored for the
// caller when their flow began. Implementations must be concurrently safe,
// since the reader will likely be used within a concurrent http.Handler.
type StateReader interface {
	// ExpectedState returns the state stored for the request's caller. An
	// empty state, or an error matching auth0.ErrNotFound, means the caller
	// has no flow in progress.
	ExpectedState(ctx context.Context, req *http.Request) (string, error)
}

// StateWriter defines an interface for storing the state generated when the
// caller's flow begins. Implementations must be concurrently safe.
type StateWriter interface {
	// SetExpectedState stores the state for the request's caller. The
	// ResponseWriter is provided so implementations can set cookies; the
	// response must not be written.
	SetExpectedState(ctx context.Context, w http.ResponseWriter, req *http.Request, state string) error
}

// Storer defines an interface for persisting the results of a successful
// callback in the caller's session. Implementations must be concurrently safe.
type Storer interface {
	// StoreAttributes stores every attribute in the request's session under
	// its key. The ResponseWriter is provided so implementations can set
	// cookies; the response must not be written.
	StoreAttributes(ctx context.Context, w http.ResponseWriter, req *http.Request, attributes map[string]encoding.BinaryMarshaler) error
}
