// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package id

import (
	"encoding/base64"
	"fmt"

	"github.com/hashicorp/go-uuid"
)

// randomLen is the number of random bytes in every id. base64 (raw, url safe)
// encodes them into 20 characters.
const randomLen = 15

// EncodedLen is the length of a generated id without its prefix.
const EncodedLen = 20

// New generates a url safe random id with an optional prefix.
func New(optionalPrefix string) (string, error) {
	b, err := uuid.GenerateRandomBytes(randomLen)
	if err != nil {
		return "", fmt.Errorf("unable to generate id: %w", err)
	}
	id := base64.RawURLEncoding.EncodeToString(b)
	switch {
	case optionalPrefix != "":
		return fmt.Sprintf("%s_%s", optionalPrefix, id), nil
	default:
		return id, nil
	}
}
