// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd represents the base command
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "auth0-callback",
		Short: "Server side auth0 authorization code login",
		Long: `auth0-callback serves the login, callback and success routes of an auth0
authorization code flow. The tokens and profile returned by auth0 are stored in
a server side session identified by a cookie.`,
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd())
	return root
}
