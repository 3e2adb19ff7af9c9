package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/km-arc/go-assemble/demo"
	"github.com/km-arc/go-assemble/framework/app"
	"github.com/km-arc/go-assemble/framework/assembly"
	"github.com/km-arc/go-assemble/framework/config"
	"github.com/km-arc/go-assemble/framework/logging"
	"github.com/km-arc/go-assemble/framework/meta"
)

var (
	version = "dev"
	cfgFile string
	envFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:     "assemble",
	Short:   "Assemble and serve a declarative component graph",
	Long:    `Scans the demo inventory components, constructs and wires them, and serves their routes.`,
	Version: version,

	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (yaml), layered over the environment")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env",
		"dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().String("manifest", "",
		"component manifest restricting what is scanned")
	rootCmd.PersistentFlags().String("log-level", "",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("strict", false,
		"fail on ambiguous constructors instead of picking the first")

	_ = viper.BindPFlag("assembly.manifest", rootCmd.PersistentFlags().Lookup("manifest"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("assembly.strict_constructors", rootCmd.PersistentFlags().Lookup("strict"))

	rootCmd.AddCommand(serveCmd, inspectCmd)
}

// loadConfig reads the environment, then layers the config file and the
// flags on top through viper.
func loadConfig(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(envFile)
	if err != nil {
		return err
	}

	v := viper.GetViper()
	setDefaults(v, loaded)
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	if err := v.Unmarshal(loaded); err != nil {
		return fmt.Errorf("decoding config: %w", err)
	}
	if err := loaded.Validate(); err != nil {
		return err
	}
	cfg = loaded
	return nil
}

func setDefaults(v *viper.Viper, c *config.Config) {
	v.SetDefault("app.name", c.App.Name)
	v.SetDefault("app.env", c.App.Env)
	v.SetDefault("app.port", c.App.Port)
	v.SetDefault("log.level", c.Log.Level)
	v.SetDefault("log.format", c.Log.Format)
	v.SetDefault("assembly.iteration_limit", c.Assembly.IterationLimit)
	v.SetDefault("assembly.create_missing_dependencies", c.Assembly.CreateMissingDependencies)
	v.SetDefault("assembly.retain_context", c.Assembly.RetainContext)
	v.SetDefault("assembly.retain_processors", c.Assembly.RetainProcessors)
	v.SetDefault("assembly.strict_constructors", c.Assembly.StrictConstructors)
	v.SetDefault("assembly.manifest", c.Assembly.Manifest)
}

// newApplication builds the demo application from the loaded config.
func newApplication(opts ...assembly.Option) (*app.Application, error) {
	logger, err := logging.New(cfg.App.Env, cfg.Log)
	if err != nil {
		return nil, err
	}

	catalog := demo.Catalog()
	var scanner meta.Scanner = meta.NewCatalogScanner(catalog)
	if cfg.Assembly.Manifest != "" {
		m, err := meta.LoadManifest(cfg.Assembly.Manifest)
		if err != nil {
			return nil, err
		}
		scanner = meta.NewManifestScanner(catalog, m)
		logger.Debug("scanning from manifest", zap.String("path", cfg.Assembly.Manifest))
	}

	application := app.New(cfg, logger, opts...)
	application.Scan(demo.Root, scanner)
	return application, nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
