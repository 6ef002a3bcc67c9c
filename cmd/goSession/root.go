package main

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/logging"
	"github.com/MrEthical07/goSession/persist"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gosession",
		Short: "Sign in to the laundry storefront from the terminal",
		Long: `gosession keeps one storefront session between runs. The session is
restored on every invocation, bounded by --rehydrate-timeout, before the
command runs.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (YAML)")
	registerConfigFlags(cmd.PersistentFlags())

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newProfileCmd())

	return cmd
}

// openClient builds and starts a client from the merged configuration. The returned
// function releases the client and any Redis connection.
func openClient(cmd *cobra.Command) (*goSession.Client, func(), error) {
	cli, err := loadConfig(configFile, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	cfg, err := cli.clientConfig()
	if err != nil {
		return nil, nil, err
	}

	logger := logging.Setup("gosession-cli", goSession.Version, cli.LogFormat, cli.LogLevel, cmd.ErrOrStderr())
	b := goSession.New().
		WithConfig(cfg).
		WithLogger(logger).
		WithAuditSink(goSession.NewSlogSink(logger))

	release := func() {}
	if cli.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cli.RedisAddr})
		b = b.WithRedis(rdb)
		release = func() { _ = rdb.Close() }
	} else {
		backend, err := persist.NewFile(cli.StateDir)
		if err != nil {
			return nil, nil, err
		}
		b = b.WithBackend(backend)
	}

	client, err := b.Build()
	if err != nil {
		release()
		return nil, nil, err
	}

	out := client.Start(contextOf(cmd))
	if out.Defaulted {
		logger.Warn("saved session discarded", "error", out.Err)
	}

	return client, func() {
		client.Close()
		release()
	}, nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// userError turns client errors into the message a person at the terminal should see.
func userError(err error) error {
	if err == nil {
		return nil
	}
	return errors.New(goSession.DisplayMessage(err))
}
