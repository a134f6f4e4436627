// Command hexowl evaluates ontology external atoms from the command line and
// runs Mangle programs whose rules consume them.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hexowl/internal/atoms"
	"hexowl/internal/config"
	"hexowl/internal/knowledge"
	"hexowl/internal/logging"
	"hexowl/internal/metrics"
	"hexowl/internal/store"
)

var (
	// Global flags
	configPath  string
	verbose     bool
	metricsPath string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "hexowl",
	Short: "hexowl - description logic external atoms for answer set programs",
	Long: `hexowl evaluates DL external atoms (dl_c, dl_op, dl_dp, dl_c_m,
dl_op_m, dl_consistent, dl_simplify) against ontology stores described by a
metadata file, and learns conflict clauses from hypothetical modifications.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if verbose {
			cfg.Logging.DebugMode = true
			cfg.Logging.Level = "debug"
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := logging.Initialize(cfg.Logging.Options()); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if err := logging.InitAudit(cfg.Logging.AuditFile); err != nil {
			return err
		}
		logging.Boot("hexowl starting (config=%s)", configPath)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		defer logging.Sync()
		defer logging.CloseAudit()
		if metricsPath == "" {
			return nil
		}
		if metricsPath == "-" {
			return metrics.Dump(cmd.OutOrStdout())
		}
		f, err := os.Create(metricsPath)
		if err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
		defer f.Close()
		return metrics.Dump(f)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "hexowl.yaml", "Config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&metricsPath, "metrics", "", "Write Prometheus metrics to this file after the command (- for stdout)")

	rootCmd.AddCommand(queryCmd, simplifyCmd, evalCmd, nogoodsCmd)
}

// runtime is the wiring shared by the subcommands.
type runtime struct {
	registry  *knowledge.Registry
	journal   store.NogoodStore
	catalogue *atoms.Catalogue
}

func newRuntime(c *config.Config) (*runtime, error) {
	order, err := knowledge.ParseSimplifyOrder(c.Reasoner.SimplifyOrder)
	if err != nil {
		return nil, err
	}
	journal, err := store.Open(c.Store.Backend, c.Store.Path)
	if err != nil {
		return nil, err
	}
	registry := knowledge.NewRegistry(knowledge.Options{Order: order})
	return &runtime{
		registry: registry,
		journal:  journal,
		catalogue: atoms.Standard(registry, atoms.Options{
			Learn:          c.Learning.Enabled,
			IncludeCurrent: c.Learning.IncludeCurrent,
		}),
	}, nil
}

func (r *runtime) Close() {
	r.registry.Close()
	if err := r.journal.Close(); err != nil {
		logging.Get(logging.CategoryBoot).Error("failed to close nogood journal: %v", err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
