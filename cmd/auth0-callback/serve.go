// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/auth0callback/internal/config"
	"github.com/hashicorp/auth0callback/session"
	"github.com/hashicorp/go-hclog"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Server settings, resolved with the same two tiers as the auth0 keys.
const (
	keyListen    = "server.listen"
	keyRedisAddr = "session.redis_addr"
)

const shutdownTimeout = 10 * time.Second

type serveFlags struct {
	configPath string
	handler    string
	envFile    string
	logLevel   string
	logJSON    bool
}

func newServeCmd() *cobra.Command {
	f := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the login and callback server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd.Flags(), f)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.configPath, "config", "", "Path to the yaml config file")
	flags.StringVar(&f.handler, "handler", "callback", "Name of the handler whose overrides apply")
	flags.StringVar(&f.envFile, "env-file", "", "Optional .env file loaded before the config")
	flags.StringVar(&f.logLevel, "log-level", "info", "Log level (trace|debug|info|warn|error)")
	flags.BoolVar(&f.logJSON, "log-json", false, "Log in json")
	flags.String("listen", ":8080", "Address to listen on")
	flags.String("redis-addr", "", "Redis address for sessions, memory is used when empty")
	return cmd
}

// bindFlags lets the flags override their config keys.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for key, name := range map[string]string{
		keyListen:    "listen",
		keyRedisAddr: "redis-addr",
	} {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("unable to bind --%s: %w", name, err)
		}
	}
	return nil
}

func runServe(ctx context.Context, flags *pflag.FlagSet, f *serveFlags) error {
	if f.envFile != "" {
		if err := godotenv.Load(f.envFile); err != nil {
			return fmt.Errorf("unable to load env file: %w", err)
		}
	}
	logger := hclog.New(&hclog.LoggerOptions{
		Name:       "auth0-callback",
		Level:      hclog.LevelFromString(f.logLevel),
		JSONFormat: f.logJSON,
	})

	v, err := config.Load(f.configPath, config.WithLogger(logger))
	if err != nil {
		return err
	}
	if err := bindFlags(v, flags); err != nil {
		return err
	}
	c, err := config.Resolve(v, f.handler, config.WithLogger(logger))
	if err != nil {
		return err
	}

	store, closeStore, err := newStore(ctx, v, f.handler, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	handler, err := newServer(c, store, reg, logger)
	if err != nil {
		return err
	}

	listen, _ := config.Lookup(v, f.handler, keyListen)
	srv := &http.Server{
		Addr:              listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srvCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", listen, "handler", f.handler)
		srvCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-srvCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server closed with error: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down")
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("unable to shut down: %w", err)
	}
	return nil
}

// newStore returns a redis session store when an address is configured and a
// memory store otherwise.
func newStore(ctx context.Context, v *viper.Viper, handler string, logger hclog.Logger) (session.Store, func(), error) {
	addr, ok := config.Lookup(v, handler, keyRedisAddr)
	if !ok {
		logger.Info("using the memory session store")
		s := session.NewMemoryStore(session.DefaultCleanupInterval)
		return s, s.Close, nil
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("unable to reach redis at %s: %w", addr, err)
	}
	s, err := session.NewRedisStore(client, "")
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	logger.Info("using the redis session store", "addr", addr)
	return s, func() {
		if err := client.Close(); err != nil {
			logger.Warn("unable to close redis client", "error", err)
		}
	}, nil
}
