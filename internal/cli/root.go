package cli

import (
	"io"

	"github.com/soyeahso/certagent/internal/config"
	"github.com/soyeahso/certagent/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
	envFile  string

	// loaded at init time
	paths     config.Paths
	log       *logging.Logger
	logCloser io.Closer
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "certagent",
		Short: "Certification points and Credly badge assistant",
		Long: "certagent answers questions about certifications by letting an LLM agent " +
			"look up credit points in a local SQLite table and read public Credly badge pages.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}

			// A broken config file is reported by the command that needs it;
			// logging falls back to defaults here.
			cfg, err := config.Load(paths.Config)
			if err != nil {
				cfg = config.Defaults()
			}
			opts := logging.Options{
				Level: cfg.Logging.Level,
				Style: cfg.Logging.Style,
				File:  cfg.Logging.File,
			}
			if logLevel != "" {
				opts.Level = logLevel
			}

			log, logCloser, err = logging.NewWithOptions(opts)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if logCloser != nil {
				return logCloser.Close()
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.certagent/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file with GROQ_API_KEY (default ./.env if present)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newCertsCmd())
	cmd.AddCommand(newBadgeCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
