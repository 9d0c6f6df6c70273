// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package http

import (
	"bytes"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	t.Parallel()
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(srv.Close)

	var buf bytes.Buffer
	require.NoError(t, pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw}))
	caPEM := buf.String()

	tests := []struct {
		name        string
		caPEM       string
		timeout     time.Duration
		wantTimeout time.Duration
		wantErr     error
		wantTLSOK   bool
	}{
		{name: "with-ca", caPEM: caPEM, timeout: 2 * time.Second, wantTimeout: 2 * time.Second, wantTLSOK: true},
		{name: "default-timeout", caPEM: caPEM, wantTimeout: DefaultTimeout, wantTLSOK: true},
		{name: "system-roots", wantTimeout: DefaultTimeout},
		{name: "bad-pem", caPEM: "not a pem", wantErr: ErrInvalidCertificatePem},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			c, err := NewClient(tt.caPEM, tt.timeout)
			if tt.wantErr != nil {
				require.Error(err)
				assert.True(errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(err)
			assert.Equal(tt.wantTimeout, c.Timeout)

			resp, err := c.Get(srv.URL)
			if !tt.wantTLSOK {
				require.Error(err)
				return
			}
			require.NoError(err)
			defer resp.Body.Close()
			assert.Equal(http.StatusOK, resp.StatusCode)
		})
	}
}
