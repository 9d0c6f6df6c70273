// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"net/http"
	"net/url"

	"github.com/hashicorp/auth0callback/auth0"
	"github.com/hashicorp/go-hclog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// callbackOptions is the set of available options for the callback handlers.
type callbackOptions struct {
	withCallbackURL    string
	withLogger         hclog.Logger
	withMetrics        *Metrics
	withTracerProvider trace.TracerProvider
}

// callbackDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func callbackDefaults() callbackOptions {
	return callbackOptions{
		withLogger:         hclog.NewNullLogger(),
		withTracerProvider: otel.GetTracerProvider(),
	}
}

// getCallbackOpts gets the defaults and applies the opt overrides passed in.
func getCallbackOpts(opt ...auth0.Option) callbackOptions {
	opts := callbackDefaults()
	auth0.ApplyOpts(&opts, opt...)
	return opts
}

// WithCallbackURL provides the redirect_uri registered with the tenant. A
// url without a host, like "/auth0-callback/", is resolved against the
// request's scheme and host.
//
// AuthCode defaults to the scheme, host and path of the callback request.
// Login requires it.
func WithCallbackURL(u string) auth0.Option {
	return func(o interface{}) {
		if o, ok := o.(*callbackOptions); ok {
			o.withCallbackURL = u
		}
	}
}

// WithLogger provides an optional logger.
func WithLogger(l hclog.Logger) auth0.Option {
	return func(o interface{}) {
		if o, ok := o.(*callbackOptions); ok && l != nil {
			o.withLogger = l
		}
	}
}

// WithMetrics provides optional metrics for the callback's results.
func WithMetrics(m *Metrics) auth0.Option {
	return func(o interface{}) {
		if o, ok := o.(*callbackOptions); ok {
			o.withMetrics = m
		}
	}
}

// WithTracerProvider provides an optional OpenTelemetry tracer provider. The
// global provider is used by default.
func WithTracerProvider(tp trace.TracerProvider) auth0.Option {
	return func(o interface{}) {
		if o, ok := o.(*callbackOptions); ok && tp != nil {
			o.withTracerProvider = tp
		}
	}
}

// redirectURI returns the callback url sent to the provider: callbackURL
// resolved against the request, or the request's own url without its query.
func redirectURI(callbackURL string, req *http.Request) string {
	scheme := "http"
	if req.TLS != nil {
		scheme = "https"
	}
	base := &url.URL{Scheme: scheme, Host: req.Host}
	if callbackURL == "" {
		base.Path = req.URL.Path
		return base.String()
	}
	u, err := url.Parse(callbackURL)
	if err != nil || u.IsAbs() {
		return callbackURL
	}
	return base.ResolveReference(u).String()
}
