package cmd

import (
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"onchainblackjack/internal/blackjack"
	"onchainblackjack/internal/state"
	"onchainblackjack/internal/types"
)

// solExponent scales lamports to SOL (1 SOL = 1e9 lamports).
const solExponent = -9

func formatSOL(lamports uint64) string {
	sol := decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), solExponent)
	return fmt.Sprintf("%s SOL (%d lamports)", sol.String(), lamports)
}

// loadState reads the last committed state from the node database. The node
// must not be running; goleveldb holds an exclusive lock.
func loadState(v *viper.Viper) (*state.State, error) {
	cfg, err := loadConfig(v)
	if err != nil {
		return nil, err
	}
	store, err := state.OpenStore(cfg.DataDir())
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()
	return store.Load()
}

func vaultCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "vault",
		Short: "Show the table and vault balance from the local database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := loadState(v)
			if err != nil {
				return err
			}
			return printVault(cmd.OutOrStdout(), st)
		},
	}
}

func printVault(w io.Writer, st *state.State) error {
	if st.Table == nil || st.Vault == nil {
		return types.ErrTableNotFound
	}
	open := 0
	for _, g := range st.Games {
		if !g.Status.Terminal() {
			open++
		}
	}
	fmt.Fprintf(w, "height:    %d\n", st.Height)
	fmt.Fprintf(w, "authority: %s\n", st.Table.Authority)
	fmt.Fprintf(w, "vault:     %s\n", st.Vault.Address)
	fmt.Fprintf(w, "balance:   %s\n", formatSOL(st.Vault.Balance))
	fmt.Fprintf(w, "games:     %d (%d open)\n", len(st.Games), open)
	return nil
}

func gameCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "game [id]",
		Short: "Show one game, or list all games, from the local database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := loadState(v)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, g := range st.SortedGames() {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", g.ID, g.Player, g.Status, formatSOL(g.BetAmount))
				}
				return nil
			}
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return types.ErrInvalidRequest.Wrapf("invalid game id %q", args[0])
			}
			g, ok := st.Games[id]
			if !ok {
				return types.ErrGameNotFound.Wrapf("game %d", id)
			}
			printGame(w, g)
			return nil
		},
	}
}

func printGame(w io.Writer, g *state.Game) {
	fmt.Fprintf(w, "game:        %d\n", g.ID)
	fmt.Fprintf(w, "player:      %s\n", g.Player)
	fmt.Fprintf(w, "bet:         %s\n", formatSOL(g.BetAmount))
	fmt.Fprintf(w, "status:      %s\n", g.Status)
	fmt.Fprintf(w, "player hand: %s (%d)\n", hand(g.PlayerCards), g.PlayerTotal())
	fmt.Fprintf(w, "dealer hand: %s (%d)\n", hand(g.DealerCards), g.DealerTotal())
	fmt.Fprintf(w, "rng:         cursor=%d used=%d\n", g.RNGCursor, blackjack.MaskCount(g.UsedMask))
	if g.Status == state.StatusClosed {
		fmt.Fprintf(w, "outcome:     %s\n", g.Outcome)
		fmt.Fprintf(w, "payout:      %s\n", formatSOL(g.Payout))
	}
}

func hand(cards []blackjack.Card) string {
	if len(cards) == 0 {
		return "-"
	}
	labels := make([]string, len(cards))
	for i, c := range cards {
		labels[i] = c.String()
	}
	return strings.Join(labels, " ")
}
