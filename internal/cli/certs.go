package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/soyeahso/certagent/internal/tools"
	"github.com/spf13/cobra"
)

func newCertsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "certs",
		Short: "Manage the certification points table",
	}

	cmd.AddCommand(newCertsInitCmd())
	cmd.AddCommand(newCertsListCmd())
	cmd.AddCommand(newCertsResolveCmd())
	return cmd
}

func newCertsInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create and seed the certification table if it is empty",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			certs := newCertificationStore(db)
			inserted, err := certs.Initialize(cmd.Context(), cfg.Certifications.Seed)
			if err != nil {
				return err
			}
			total, err := certs.Count(cmd.Context())
			if err != nil {
				return err
			}

			if inserted > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d certification categories into %s\n", inserted, db.Path())
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Already initialized: %d categories in %s\n", total, db.Path())
			}
			return nil
		},
	}
}

func newCertsListCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List certification categories in lookup order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, certs, err := openCertifications(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			records, err := certs.FetchAll(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tCATEGORY\tPOINTS")
			for i, c := range records {
				fmt.Fprintf(tw, "%d\t%s\t%g\n", i+1, c.Category, c.Points)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func newCertsResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <certification name>",
		Short: "Resolve a certification name to its points category",
		Long:  "Runs the same lookup the agent's get_certification_points tool uses and prints its JSON output.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, certs, err := openCertifications(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			tool := tools.NewCertificationPoints(newResolver(certs), log)
			input, err := json.Marshal(map[string]string{"cert_name": strings.Join(args, " ")})
			if err != nil {
				return err
			}
			out, err := tool.Execute(cmd.Context(), string(input))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}
