// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
callback is a package that provides callbacks (in the form of http.HandlerFunc)
for handling the auth0 authorization code flow.

AuthCode handles the provider's redirect back to the application. It
validates the state, exchanges the code for tokens, fetches the user's
profile and stores both in the caller's session before responding. Any
failure is handed to the ErrorResponseFunc, which by default redirects to the
configured error url and logs the failure.

Login begins the flow by storing a new state and redirecting the caller to
the tenant.

The session is reached through the StateReader, StateWriter and Storer
interfaces.
*/
package callback
