package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema and size the embedding column",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, g)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			database, err := openDB(ctx, cfg)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := database.Migrate(ctx, cfg.EmbeddingDimension); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Schema applied (embedding dimension %d)\n", cfg.EmbeddingDimension)
			return nil
		},
	}
	cmd.Flags().Int("embedding-dimension", 0, "Embedding vector dimension")
	return cmd
}
