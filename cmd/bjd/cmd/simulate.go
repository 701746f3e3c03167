package cmd

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"cosmossdk.io/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"onchainblackjack/internal/blackjack"
	"onchainblackjack/internal/engine"
	"onchainblackjack/internal/state"
)

const (
	simHouse  = "house"
	simPlayer = "player"
)

type simParams struct {
	Games    int
	Bet      uint64
	Bankroll uint64
	Vault    uint64
	Seed     string
	Verbose  bool
}

type simReport struct {
	Played     int
	Wins       int
	Losses     int
	Pushes     int
	Naturals   int
	PlayerBust int
	DealerBust int
	Wagered    uint64
	Returned   uint64
	StartVault uint64
	EndVault   uint64
	StopReason error
}

func simulateCmd(v *viper.Viper) *cobra.Command {
	var p simParams
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Play games against an in-memory engine",
		Long: "Play games against an in-memory engine. Randomness comes from the OS, " +
			"or is derived from --seed for reproducible runs. The player hits below 17.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			logger := log.NewNopLogger()
			if p.Verbose {
				if logger, err = cfg.NewLogger(cmd.ErrOrStderr()); err != nil {
					return err
				}
			}
			rep, err := runSimulation(cmd.Context(), p, logger)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), rep)
			return nil
		},
	}
	cmd.Flags().IntVar(&p.Games, "games", 100, "number of games to play")
	cmd.Flags().Uint64Var(&p.Bet, "bet", 10_000_000, "bet per game in lamports")
	cmd.Flags().Uint64Var(&p.Bankroll, "bankroll", 1_000_000_000, "player starting balance in lamports")
	cmd.Flags().Uint64Var(&p.Vault, "vault", 10_000_000_000, "initial vault funding in lamports")
	cmd.Flags().StringVar(&p.Seed, "seed", "", "derive per-game randomness from this seed instead of the OS")
	cmd.Flags().BoolVar(&p.Verbose, "verbose", false, "log every engine transition")
	return cmd
}

func simRandomness(seed string, gameID uint64) (blackjack.Randomness, error) {
	var rng blackjack.Randomness
	if seed != "" {
		rng = sha256.Sum256([]byte(fmt.Sprintf("%s/%d", seed, gameID)))
		return rng, nil
	}
	if _, err := rand.Read(rng[:]); err != nil {
		return rng, fmt.Errorf("read randomness: %w", err)
	}
	return rng, nil
}

func runSimulation(ctx context.Context, p simParams, logger log.Logger) (simReport, error) {
	var rep simReport
	if p.Games <= 0 {
		return rep, fmt.Errorf("games must be positive")
	}

	eng := engine.New(state.NewState(), logger)
	if err := eng.Update(func(st *state.State) error {
		if err := st.Credit(simHouse, p.Vault); err != nil {
			return err
		}
		return st.Credit(simPlayer, p.Bankroll)
	}); err != nil {
		return rep, err
	}
	if _, err := eng.CreateTable(ctx, simHouse); err != nil {
		return rep, err
	}
	if p.Vault > 0 {
		if _, err := eng.FundVault(ctx, simHouse, p.Vault); err != nil {
			return rep, err
		}
	}
	rep.StartVault = p.Vault

	for i := 0; i < p.Games; i++ {
		g, err := playOne(ctx, eng, p)
		if err != nil {
			// Running out of player funds or vault cover ends the session.
			rep.StopReason = err
			break
		}
		rep.Played++
		rep.Wagered += g.BetAmount
		rep.Returned += g.Payout
		switch g.Outcome {
		case blackjack.OutcomePlayerWin:
			rep.Wins++
		case blackjack.OutcomeDealerWin:
			rep.Losses++
		default:
			rep.Pushes++
		}
		if blackjack.IsBlackjack(g.PlayerCards) {
			rep.Naturals++
		}
		if g.PlayerBust() {
			rep.PlayerBust++
		} else if blackjack.IsBust(g.DealerCards) {
			rep.DealerBust++
		}
	}

	v, err := eng.Vault()
	if err != nil {
		return rep, err
	}
	rep.EndVault = v.Balance
	return rep, nil
}

func playOne(ctx context.Context, eng *engine.Engine, p simParams) (state.Game, error) {
	g, err := eng.NewBet(ctx, simPlayer, p.Bet)
	if err != nil {
		return g, err
	}
	rng, err := simRandomness(p.Seed, g.ID)
	if err != nil {
		return g, err
	}
	if g, err = eng.FulfillRandomness(ctx, g.ID, rng); err != nil {
		return g, err
	}
	for g.Status == state.StatusPlayerTurn && g.PlayerTotal() < blackjack.DealerStandTotal {
		if g, err = eng.HitPlayer(ctx, g.ID, simPlayer); err != nil {
			return g, err
		}
	}
	if g.Status == state.StatusPlayerTurn {
		if g, err = eng.StandPlayer(ctx, g.ID, simPlayer); err != nil {
			return g, err
		}
	}
	if g, err = eng.PlayDealer(ctx, g.ID); err != nil {
		return g, err
	}
	return eng.Settle(ctx, g.ID, simPlayer)
}

func printReport(w io.Writer, rep simReport) {
	fmt.Fprintf(w, "games played: %d\n", rep.Played)
	fmt.Fprintf(w, "wins/losses/pushes: %d/%d/%d\n", rep.Wins, rep.Losses, rep.Pushes)
	fmt.Fprintf(w, "naturals: %d  player busts: %d  dealer busts: %d\n", rep.Naturals, rep.PlayerBust, rep.DealerBust)
	fmt.Fprintf(w, "wagered:  %s\n", formatSOL(rep.Wagered))
	fmt.Fprintf(w, "returned: %s\n", formatSOL(rep.Returned))
	fmt.Fprintf(w, "vault:    %s -> %s\n", formatSOL(rep.StartVault), formatSOL(rep.EndVault))
	if rep.Wagered > 0 {
		wagered := decimal.NewFromUint64(rep.Wagered)
		returned := decimal.NewFromUint64(rep.Returned)
		edge := wagered.Sub(returned).Div(wagered).Mul(decimal.NewFromInt(100))
		fmt.Fprintf(w, "house edge: %s%%\n", edge.StringFixed(2))
	}
	if rep.StopReason != nil {
		fmt.Fprintf(w, "stopped early: %v\n", rep.StopReason)
	}
}
