// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package strutils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStrutil_ListContains(t *testing.T) {
	t.Parallel()
	require := require.New(t)
	haystack := []string{
		"https://example.com/callback",
		"https://alice.com/auth0-callback/",
	}
	require.False(StrListContains(haystack, "https://example.com/callback/"))
	require.True(StrListContains(haystack, "https://alice.com/auth0-callback/"))
	require.False(StrListContains(nil, ""))
}

func TestStrutil_HasValue(t *testing.T) {
	t.Parallel()
	require := require.New(t)
	require.False(HasValue(""))
	require.False(HasValue(" \t\n"))
	require.True(HasValue(" x "))
}
