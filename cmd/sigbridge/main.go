// Package main is the entry point for the sigbridge CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/flemzord/sigbridge/internal/config"
	"github.com/flemzord/sigbridge/internal/core"
	"github.com/flemzord/sigbridge/internal/logging"
	"github.com/flemzord/sigbridge/modules/channel/signal"
	"github.com/flemzord/sigbridge/pkg/app"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", describe(err))
		os.Exit(1)
	}
}

// globalFlags are shared by every command that loads the configuration.
type globalFlags struct {
	configPath string
	dataDir    string
	logLevel   string
}

func (g *globalFlags) params() (app.RunParams, error) {
	p := app.RunParams{
		ConfigPath: g.configPath,
		DataDir:    g.dataDir,
		Version:    version,
		Commit:     commit,
		Date:       date,
	}
	if g.logLevel != "" {
		level, err := logging.ParseLevel(g.logLevel)
		if err != nil {
			return p, err
		}
		p.LogLevel = &level
	}
	return p, nil
}

func rootCmd() *cobra.Command {
	var g globalFlags
	root := &cobra.Command{
		Use:           "sigbridge",
		Short:         "Signal notification bridge for web platforms",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Path to configuration file (default: $SIGBRIDGE_CONFIG, ./sigbridge.yaml)")
	root.PersistentFlags().StringVar(&g.dataDir, "data-dir", "", "Persistent data directory")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Override the configured log level")

	root.AddCommand(
		versionCmd(),
		startCmd(&g),
		configCmd(&g),
		accountCmd(&g),
		userCmd(&g),
		sendCmd(&g),
		serviceCmd(&g),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and compiled modules",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "sigbridge %s (commit: %s, built: %s)\n", version, commit, date)
			mods := core.GetModules()
			if len(mods) == 0 {
				fmt.Fprintln(out, "\nNo compiled modules.")
				return
			}
			fmt.Fprintln(out, "\nCompiled modules:")
			for _, mod := range mods {
				fmt.Fprintf(out, "  %s\n", mod.ID)
			}
		},
	}
}

func startCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start sigbridge with all configured modules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := g.params()
			if err != nil {
				return err
			}
			return app.Run(cmd.Context(), params)
		},
	}
}

func configCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check [path]",
		Short: "Validate configuration and provision every module",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := g.params()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				params.ConfigPath = args[0]
			}
			if params.LogLevel == nil {
				quiet := slog.LevelWarn
				params.LogLevel = &quiet
			}

			rt, err := app.Setup(params)
			if err != nil {
				return err
			}
			defer rt.Close()
			defer rt.App.Stop()

			ids := config.Resolve(rt.Config)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration OK: %s (%d modules)\n", rt.ConfigPath, len(ids))
			for _, id := range ids {
				fmt.Fprintf(out, "  %s\n", id)
			}
			return nil
		},
	})
	return cmd
}

// session is a provisioned runtime without the gateway, for commands
// acting on the bot directly.
type session struct {
	rt     *app.Runtime
	signal *signal.Signal
	lang   string
}

func openSession(g *globalFlags) (*session, error) {
	params, err := g.params()
	if err != nil {
		return nil, err
	}
	if params.LogLevel == nil {
		quiet := slog.LevelWarn
		params.LogLevel = &quiet
	}
	params.Namespaces = []string{"store", "telemetry", "channel"}

	rt, err := app.Setup(params)
	if err != nil {
		return nil, err
	}
	mod, err := app.Module[*signal.Signal](rt, signal.ModuleID)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	if err := rt.App.Start(); err != nil {
		_ = rt.Close()
		return nil, err
	}
	return &session{rt: rt, signal: mod, lang: signal.NormalizeLang(os.Getenv("LANG"))}, nil
}

func (s *session) Close() {
	s.rt.App.Stop()
	_ = s.rt.Close()
}

func (s *session) manager() *signal.Manager { return s.signal.Manager() }

// describe renders err for the terminal, translating known keys.
func describe(err error) string {
	return signal.Describe(err, os.Getenv("LANG"))
}
