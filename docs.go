// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// auth0callback provides the server side leg of an auth0 authorization code
// login: the callback which exchanges the code for tokens, fetches the user's
// profile and stores both in the caller's session.
//
// See the auth0, auth0/callback and session packages.
package auth0callback
