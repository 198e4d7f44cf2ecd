package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/leadbook/internal/application"
	"github.com/JonMunkholm/leadbook/internal/core"
	"github.com/spf13/cobra"
)

func newImportCmd(c *cli) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "import --owner <user-id> <file>",
		Short: "Import a CSV or XLSX file of leads",
		Long: `Import runs the same pipeline as POST /api/leads/import against the
configured store and prints the ImportResult as JSON.

The exit status is non-zero when the file is rejected or the commit fails.
Rows with validation errors do not change the exit status.

Example:
  leadctl import --owner 7d1c... leads.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			var size int64
			if info, err := f.Stat(); err == nil {
				size = info.Size()
			}

			backend, err := application.OpenStore(cmd.Context(), c.cfg.Database)
			if err != nil {
				return err
			}
			defer backend.Close()

			svc := application.NewService(backend.Store, c.cfg.Import)
			result, importErr := svc.ImportLeads(cmd.Context(), core.CurrentUser{ID: owner}, core.ImportRequest{
				FileName: filepath.Base(path),
				Body:     f,
				Size:     size,
			})

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return err
			}
			if importErr != nil {
				return fmt.Errorf("import failed: %s", core.FormatUserError(importErr))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "user ID that will own the imported leads (required)")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}
