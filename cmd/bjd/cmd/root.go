package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"onchainblackjack/internal/config"
)

// NewRootCmd creates the bjd root command. It is called once in main.
func NewRootCmd() *cobra.Command {
	v := config.NewViper()

	rootCmd := &cobra.Command{
		Use:           "bjd",
		Short:         "On-chain blackjack ABCI daemon",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String(config.FlagHome, config.DefaultHome, "node home directory (database under <home>/data)")
	flags.String(config.FlagLogLevel, config.DefaultLogLevel, "log level (trace|debug|info|warn|error)")
	flags.String(config.FlagLogFormat, config.DefaultLogFormat, "log format (plain|json)")
	if err := v.BindPFlags(flags); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(
		startCmd(v),
		vaultCmd(v),
		gameCmd(v),
		simulateCmd(v),
	)
	return rootCmd
}

func loadConfig(v *viper.Viper) (config.Config, error) {
	return config.Load(v)
}
