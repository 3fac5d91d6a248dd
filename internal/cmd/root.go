// Package cmd wires the marklens CLI: screening runs, offline variant
// analysis, and version reporting.
package cmd

import (
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/marklens/marklens/internal/config"
	"github.com/marklens/marklens/internal/observability"
)

const (
	appName   = "marklens"
	envPrefix = "MARKLENS"
)

var (
	cfgFile string
	verbose bool

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by the main package to set version information.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Trademark name screening against the IP registry",
	Long: `marklens screens proposed brand names against the trademark registry.

Each name is expanded into its confusable variants (phonetic and visual
letter swaps, transliteration), every variant is searched, and the name is
approved only when no variant matches a registered mark.

Use the subcommands to perform specific operations.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/marklens/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads the config file and MARKLENS_* environment variables.
func initConfig() {
	observability.InitCLILogger(appName, verbose)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("$XDG_CONFIG_HOME/" + appName)
		viper.AddConfigPath("$HOME/.config/" + appName)
		viper.AddConfigPath("./config")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			observability.CLILogger.Debug("Using config file", zap.String("path", viper.ConfigFileUsed()))
		}
	} else if verbose {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			observability.CLILogger.Debug("No config file found, using defaults and environment variables")
		} else {
			observability.CLILogger.Warn("Error reading config file", zap.Error(err))
		}
	}

	config.SetDefaults(viper.GetViper())
}

// loadConfig decodes and installs the application configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	config.Set(cfg)
	return cfg, nil
}

// fatalConfig aborts with the semantic config exit code.
func fatalConfig(msg string, err error) {
	ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, msg, err)
}
