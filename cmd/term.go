package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"yapa-server/terminal"
)

func termCmd(opts *rootOptions) *cobra.Command {
	var (
		logFile  string
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "term",
		Short: "Draw the animation in the terminal",
		Long:  "Draw the animation in the terminal. p pauses, q or Esc quits.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			// The screen owns stdout, so logs go to a file or nowhere.
			var w io.Writer = io.Discard
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				w = f
			}
			logger, err := opts.newLogger(w)
			if err != nil {
				return err
			}

			screen, err := tcell.NewScreen()
			if err != nil {
				return fmt.Errorf("create screen: %w", err)
			}
			if err := screen.Init(); err != nil {
				return fmt.Errorf("init screen: %w", err)
			}
			defer screen.Fini()
			screen.HideCursor()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return terminal.New(screen, cfg, interval, logger).Run(ctx)
		},
	}
	cmd.Flags().StringVar(&logFile, "log-file", "", "Append logs to this file")
	cmd.Flags().DurationVar(&interval, "frame-interval", terminal.DefaultFrameInterval, "Paint interval")
	return cmd
}
