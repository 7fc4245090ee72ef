package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"alfredoptarigan/ats-scanner/internal/services"
)

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "Inspect and index the target role catalog",
}

var rolesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the roles resumes are scored against",
	RunE: func(_ *cobra.Command, _ []string) error {
		catalog, err := services.DefaultRoleCatalog()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tKEYWORDS")
		for _, role := range catalog.All() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", role.ID, role.Title, strings.Join(role.Keywords, ", "))
		}
		return w.Flush()
	},
}

var rolesIngestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Embed the role catalog into the qdrant role index",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		log := newLogger()
		defer func() { _ = log.Sync() }()

		cfg, err := loadConfig(log)
		if err != nil {
			return err
		}
		gemini, err := newGemini(ctx, cfg, log)
		if err != nil {
			return err
		}
		index, err := newRoleIndex(ctx, cfg, log)
		if err != nil {
			return err
		}

		catalog, err := services.DefaultRoleCatalog()
		if err != nil {
			return err
		}

		log.Info("starting role ingestion", zap.Int("roles", len(catalog.All())), zap.String("collection", cfg.Qdrant.Collection))
		summary := services.NewRoleIngestor(index, gemini, log).Ingest(ctx, catalog.All())
		log.Info("ingestion summary",
			zap.Int("roles", summary.Roles),
			zap.Int("chunks", summary.Chunks),
			zap.Strings("failed", summary.Failed),
		)

		if len(summary.Failed) > 0 {
			return fmt.Errorf("%d roles failed to ingest", len(summary.Failed))
		}
		return nil
	},
}

func init() {
	rolesCmd.AddCommand(rolesListCmd, rolesIngestCmd)
}
