package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"yapa-server/config"
)

func embedCmd(opts *rootOptions) *cobra.Command {
	var baseURL string
	cmd := &cobra.Command{
		Use:   "embed",
		Short: "Print the HTML snippet that embeds the animation in a page",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			snippet, err := config.EmbedSnippet(cfg, baseURL)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), snippet)
			return err
		},
	}
	cmd.Flags().StringVar(&baseURL, "base-url", opts.server.PublicURL, "Public URL of the yapa server")
	return cmd
}
