// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package http

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
)

var ErrInvalidCertificatePem = errors.New("invalid certificate PEM")

// DefaultTimeout bounds a single outbound request, including reading the
// response body.
const DefaultTimeout = 10 * time.Second

// NewClient creates a new http client which will use the optional CA
// certificate PEM if provided, otherwise it will use the installed system CA
// chain. A timeout of zero or less uses DefaultTimeout.
func NewClient(caPEM string, timeout time.Duration) (*http.Client, error) {
	tr := cleanhttp.DefaultPooledTransport()

	if caPEM != "" {
		certPool := x509.NewCertPool()
		if ok := certPool.AppendCertsFromPEM([]byte(caPEM)); !ok {
			return nil, ErrInvalidCertificatePem
		}

		tr.TLSClientConfig = &tls.Config{
			RootCAs:    certPool,
			MinVersion: tls.VersionTLS12,
		}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	// the transport's dial and TLS handshake timeouts come from cleanhttp,
	// this one covers the whole exchange.
	return &http.Client{
		Transport: tr,
		Timeout:   timeout,
	}, nil
}
