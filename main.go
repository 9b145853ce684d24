/*
This is an example of application that will use the
engine package to test things out
*/
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/prism/engine"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/testbed"
	"github.com/spf13/cobra"
)

type options struct {
	configPath string
	frames     uint64
	logLevel   string
}

func main() {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "prism",
		Short:         "Runs the prism testbed scene",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "prism.toml", "path of the engine configuration")
	cmd.Flags().Uint64VarP(&opts.frames, "frames", "n", 0, "stop after this many frames, 0 runs until interrupted")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "overrides the configured log level")

	// capture sigterm and other system calls
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		core.LogError(err.Error())
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, opts *options) error {
	configPath := opts.configPath
	if _, err := os.Stat(configPath); err != nil {
		core.LogWarn("configuration '%s' not found, using the defaults", configPath)
		configPath = ""
	}

	tb := testbed.NewTestGame(configPath, opts.frames, core.LogLevel(opts.logLevel))

	e, err := engine.New(tb.Game, nil)
	if err != nil {
		return err
	}

	if err := e.Initialize(); err != nil {
		_ = e.Shutdown()
		return err
	}

	runErr := e.Run(ctx)
	if err := e.Shutdown(); err != nil {
		core.LogError("shutdown: %s", err)
	}
	return runErr
}
