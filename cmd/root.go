package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"yapa-server/config"
)

var version = "0.3.0"

// Output colors
var (
	Brand  = color.New(color.FgHiCyan, color.Bold)
	Subtle = color.New(color.FgHiBlack)
	Good   = color.New(color.FgGreen)
	Bad    = color.New(color.FgRed)
)

type rootOptions struct {
	configFile string
	logLevel   string
	server     config.ServerConfig
}

// Execute runs the yapa CLI.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		Bad.Fprintf(os.Stderr, "yapa: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{server: config.LoadServerConfig()}

	root := &cobra.Command{
		Use:           "yapa",
		Short:         "yapa streams a drifting network animation",
		Long:          Brand.Sprint("yapa") + " animates nodes, their connections and the packets travelling between them\n" + Subtle.Sprint("Serve it to browsers and gRPC clients, or draw it in the terminal"),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("yapa {{ .Version }}\n")
	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", opts.server.ConfigFile, "Animation config file (toml, yaml or json)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", opts.server.LogLevel.String(), "Log level (debug, info, warn, error)")

	root.AddCommand(
		serveCmd(opts),
		termCmd(opts),
		configCmd(opts),
		embedCmd(opts),
	)
	return root
}

// loadConfig reads the animation config named by --config and validates it.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (o *rootOptions) newLogger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(o.logLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", o.logLevel, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}
