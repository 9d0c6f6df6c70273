// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"encoding"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/auth0callback/auth0"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName identifies the spans created by the callback handlers.
const tracerName = "github.com/hashicorp/auth0callback/auth0/callback"

// AuthCode creates an auth0 authorization code callback handler. The handler
// validates the request's "state" parameter against the state returned by the
// StateReader, exchanges the "code" parameter for a TokenPair, fetches the
// user's Profile and hands both to the Storer under the provider config's
// TokenAttributeKey and UserAttributeKey.
//
// The SuccessResponseFunc is used to create a response when callback is
// successful. The ErrorResponseFunc is used to create a response when the
// callback fails for any reason. When nil, they default to redirecting to the
// provider config's RedirectOnSuccess and RedirectOnError.
//
// No request is sent to the provider unless the state is valid.
//
// Supported options:
//   - WithCallbackURL
//   - WithLogger
//   - WithMetrics
//   - WithTracerProvider
func AuthCode(p *auth0.Provider, sr StateReader, st Storer, sFn SuccessResponseFunc, eFn ErrorResponseFunc, opt ...auth0.Option) (http.HandlerFunc, error) {
	const op = "callback.AuthCode"
	switch {
	case p == nil:
		return nil, fmt.Errorf("%s: provider is nil: %w", op, auth0.ErrInvalidParameter)
	case sr == nil:
		return nil, fmt.Errorf("%s: state reader is nil: %w", op, auth0.ErrInvalidParameter)
	case st == nil:
		return nil, fmt.Errorf("%s: storer is nil: %w", op, auth0.ErrInvalidParameter)
	}
	opts := getCallbackOpts(opt...)
	logger := opts.withLogger.Named("callback")
	tracer := opts.withTracerProvider.Tracer(tracerName)
	cfg := p.Config()
	if sFn == nil {
		sFn = RedirectOnSuccess(cfg.RedirectOnSuccess)
	}
	if eFn == nil {
		eFn = RedirectOnError(cfg.RedirectOnError, logger)
	}

	return func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ctx, span := tracer.Start(req.Context(), op, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		// get parameters from either the body or query parameters.
		// FormValue prioritizes body values, if found.
		reqState := req.FormValue("state")

		fail := func(result string, respErr *AuthenErrorResponse, err error) {
			span.SetAttributes(attribute.String("auth0.callback.result", result))
			span.SetStatus(codes.Error, result)
			opts.withMetrics.observe(result, start)
			eFn(reqState, respErr, err, w, req)
		}

		if e := req.FormValue("error"); e != "" {
			reqError := &AuthenErrorResponse{
				Error:       e,
				Description: req.FormValue("error_description"),
				Uri:         req.FormValue("error_uri"),
			}
			fail(ResultProviderDenied, reqError, fmt.Errorf("%s: provider returned %q: %w", op, e, auth0.ErrValidationFailure))
			return
		}

		expected, err := sr.ExpectedState(ctx, req)
		switch {
		case err != nil && !errors.Is(err, auth0.ErrNotFound):
			fail(ResultInternal, nil, fmt.Errorf("%s: unable to read expected state: %w", op, err))
			return
		case !auth0.ValidState(reqState, expected):
			fail(ResultInvalidState, nil, fmt.Errorf("%s: missing or mismatched state: %w", op, auth0.ErrValidationFailure))
			return
		}

		reqCode := req.FormValue("code")
		if reqCode == "" {
			fail(ResultInvalidRequest, nil, fmt.Errorf("%s: code is empty: %w: %w", op, auth0.ErrValidationFailure, auth0.ErrInvalidParameter))
			return
		}

		redirect := redirectURI(opts.withCallbackURL, req)
		tokens, err := p.Exchange(ctx, reqCode, redirect)
		if err != nil {
			fail(ResultTokenExchange, nil, fmt.Errorf("%s: unable to exchange authorization code: %w", op, err))
			return
		}

		profile, err := p.UserInfo(ctx, tokens.AccessToken())
		if err != nil {
			fail(ResultProfileFetch, nil, fmt.Errorf("%s: unable to fetch profile: %w", op, err))
			return
		}

		attributes := map[string]encoding.BinaryMarshaler{
			cfg.TokenAttributeKey: tokens,
			cfg.UserAttributeKey:  profile,
		}
		if err := st.StoreAttributes(ctx, w, req, attributes); err != nil {
			fail(ResultStore, nil, fmt.Errorf("%s: unable to store session attributes: %w", op, err))
			return
		}

		logger.Debug("callback succeeded", "redirect_uri", redirect)
		span.SetAttributes(attribute.String("auth0.callback.result", ResultSuccess))
		opts.withMetrics.observe(ResultSuccess, start)
		sFn(reqState, tokens, profile, w, req)
	}, nil
}
