// Command gcontacts lists the contacts of a Google account and refreshes
// OAuth2 access tokens for it.
package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"thde.io/gcontacts"
)

var (
	cfgFile string
	verbose bool
	format  string

	logger = zap.NewNop()
)

// configKeys are read from the config file and from GCONTACTS_* variables.
var configKeys = []string{
	"consumer_key",
	"consumer_secret",
	"token",
	"refresh_token",
	"base_url",
	"token_url",
}

func main() {
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "gcontacts",
	Short: "Google Contacts feed client",
	Long: `gcontacts fetches the complete contact list of a Google account by
following the feed's continuation links, and exchanges refresh tokens for
new access tokens.

Credentials are read from ~/.gcontacts/config.yaml (or --config) and from
GCONTACTS_TOKEN, GCONTACTS_REFRESH_TOKEN, GCONTACTS_CONSUMER_KEY and
GCONTACTS_CONSUMER_SECRET.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if verbose {
			logger, err = zap.NewDevelopment()
		} else {
			logger, err = zap.NewProduction()
		}
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}

		return loadConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.gcontacts/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every request")
	rootCmd.PersistentFlags().StringVar(&format, "format", "text", "Output format: text or json")
	rootCmd.PersistentFlags().String("token", "", "OAuth2 access token")
	_ = viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file, if any, and binds the environment.
func loadConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, _ := os.UserHomeDir()
		viper.AddConfigPath(filepath.Join(home, ".gcontacts"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("gcontacts")
	for _, key := range configKeys {
		if err := viper.BindEnv(key); err != nil {
			return err
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var cfgNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgNotFound) {
			return fmt.Errorf("read config: %w", err)
		}
		logger.Debug("no config file found, using flags and env vars")
	}

	return nil
}

// newClient builds an API client from the loaded configuration.
func newClient(v *viper.Viper) (*gcontacts.Client, error) {
	var cfg gcontacts.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	opts := []gcontacts.ClientOption{
		gcontacts.WithLogger(logger),
	}

	if raw := v.GetString("base_url"); raw != "" {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid base_url %q: %w", raw, err)
		}
		opts = append(opts, gcontacts.WithBaseURL(u))
	}
	if raw := v.GetString("token_url"); raw != "" {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid token_url %q: %w", raw, err)
		}
		opts = append(opts, gcontacts.WithTokenURL(u))
	}

	return gcontacts.NewFromConfig(cfg, opts...), nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the gcontacts version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), gcontacts.Version())
	},
}
