// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package auth0

import (
	"fmt"

	"github.com/hashicorp/auth0callback/sdk/id"
)

// NewId generates an ID with an optional prefix. The ID generated is suitable
// for a state or a session id.
func NewId(optionalPrefix string) (string, error) {
	const op = "NewId"
	id, err := id.New(optionalPrefix)
	if err != nil {
		return "", fmt.Errorf("%s: unable to generate id: %w: %w", op, ErrIdGeneratorFailed, err)
	}
	return id, nil
}
