package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/cometbft/cometbft/abci/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"onchainblackjack/internal/app"
	"onchainblackjack/internal/config"
)

func startCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Run the ABCI application server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			logger, err := cfg.NewLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			a, err := app.New(cfg.Home, logger)
			if err != nil {
				return fmt.Errorf("init app: %w", err)
			}
			defer func() { _ = a.Close() }()

			srv, err := server.NewServer(cfg.ABCIAddr, cfg.Transport, a)
			if err != nil {
				return fmt.Errorf("create abci server: %w", err)
			}
			if err := srv.Start(); err != nil {
				return fmt.Errorf("abci server start: %w", err)
			}
			defer func() { _ = srv.Stop() }()

			logger.Info("abci server listening", "addr", cfg.ABCIAddr, "transport", cfg.Transport, "home", cfg.Home)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()

			logger.Info("shutting down")
			return nil
		},
	}

	cmd.Flags().String(config.FlagABCIAddr, config.DefaultABCIAddr, "ABCI listen address")
	cmd.Flags().String(config.FlagTransport, config.DefaultTransport, "ABCI transport (socket|grpc)")
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		panic(err)
	}
	return cmd
}
