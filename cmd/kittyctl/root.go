package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "KITTYCTL"

// settings are resolved from flags, KITTYCTL_* variables and the config file,
// in that order of precedence.
type settings struct {
	Server     string        `mapstructure:"server"`
	Token      string        `mapstructure:"token"`
	Timeout    time.Duration `mapstructure:"timeout"`
	SigningKey string        `mapstructure:"signing_key"`
	Issuer     string        `mapstructure:"issuer"`
	Audience   string        `mapstructure:"audience"`
	AdminToken string        `mapstructure:"admin_token"`
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	root := &cobra.Command{
		Use:           "kittyctl",
		Short:         "Mint, breed and transfer kitties against a kitties registry",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(v, cfgFile)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.config/kittyctl/config.yaml)")
	flags.String("server", "http://localhost:8080", "registry base URL")
	flags.String("token", "", "bearer token for mutations")
	flags.Duration("timeout", 10*time.Second, "request timeout")
	for _, name := range []string{"server", "token", "timeout"} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault("issuer", "kitties")
	v.SetDefault("audience", "kitties-api")
	v.SetDefault("signing_key", "dev-secret-key-change-in-production")

	root.AddCommand(
		newTokenCmd(v),
		newMintCmd(v),
		newBreedCmd(v),
		newTransferCmd(v),
		newShowCmd(v),
		newInventoryCmd(v),
		newBalanceCmd(v),
		newDepositCmd(v),
	)
	return root
}

func loadConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		v.AddConfigPath(filepath.Join(home, ".config", "kittyctl"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && cfgFile == "" {
			return nil
		}
		return err
	}
	return nil
}

func resolve(v *viper.Viper) (settings, error) {
	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return settings{}, err
	}
	return s, nil
}
