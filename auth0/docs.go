// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
auth0 is a package for the server side leg of an auth0 authorization code flow

Primary types provided by the package

* Config: provides the configuration for the flow (for example: client
Id/Secret, tenant domain, the success and error redirects and the session
attribute keys the results are stored under)

* Provider: provides integration with an auth0 tenant. The provider provides
capabilities like: generating an auth URL, exchanging codes for tokens and
retrieving the user's profile from the userinfo endpoint.

* TokenPair: represents the id_token and access_token returned by a
successful exchange. Both tokens are required and both are redacted when the
pair is logged or marshaled to json.

* Profile: represents the user's profile document, with accessors for the
well-known fields. Accessors return ErrPropertyAccess instead of empty values
when a field is absent or the document can't be parsed.

The auth0.callback package

The callback package includes the ability to create a http.HandlerFunc which
can be used for the 3rd leg of the flow, where the authorization code is
exchanged for tokens and the results are stored in the caller's session.

Testing

TestProvider is a local TLS server which mimics the tenant's /authorize,
/oauth/token and /userinfo endpoints.
*/
package auth0
