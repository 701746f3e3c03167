package engine

import (
	"context"

	"onchainblackjack/internal/blackjack"
	"onchainblackjack/internal/state"
	"onchainblackjack/internal/types"
)

// NewBet escrows bet from player into the vault and opens a game awaiting
// randomness. The vault must already hold the bet's worst-case payout.
func (e *Engine) NewBet(ctx context.Context, player string, bet uint64, hooks ...Hook) (state.Game, error) {
	if err := checkCtx(ctx); err != nil {
		return state.Game{}, err
	}
	if player == "" {
		return state.Game{}, types.ErrInvalidRequest.Wrap("missing player")
	}
	if bet == 0 {
		return state.Game{}, types.ErrInvalidBet.Wrap("bet must be positive")
	}
	maxPayout := blackjack.MaxPayout(bet)
	if !maxPayout.IsUint64() {
		return state.Game{}, types.ErrInvalidBet.Wrapf("worst-case payout of bet %d overflows", bet)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.st.Table == nil || e.st.Vault == nil {
		return state.Game{}, types.ErrTableNotFound
	}
	vault := e.st.Vault
	if vault.Balance < maxPayout.Uint64() {
		return state.Game{}, types.ErrVaultInsufficient.Wrapf("vault=%d worst-case payout=%s", vault.Balance, maxPayout)
	}
	if bal := e.st.Balance(player); bal < bet {
		return state.Game{}, types.ErrInsufficientFunds.Wrapf("%s: have=%d need=%d", player, bal, bet)
	}
	if err := vault.CanCredit(bet); err != nil {
		return state.Game{}, err
	}
	id := e.st.NextGameID
	if id == ^uint64(0) {
		return state.Game{}, types.ErrOverflow.Wrap("nextGameId overflows uint64")
	}

	if err := e.runHooks(hooks); err != nil {
		return state.Game{}, err
	}
	if err := e.st.Debit(player, bet); err != nil {
		return state.Game{}, err
	}
	vault.Balance += bet
	e.st.NextGameID++

	g := &state.Game{
		ID:            id,
		Table:         e.st.Table.Authority,
		Player:        player,
		BetAmount:     bet,
		Status:        state.StatusAwaitingRandomness,
		PlayerCards:   []blackjack.Card{},
		DealerCards:   []blackjack.Card{},
		CreatedHeight: e.st.Height,
	}
	e.st.Games[id] = g

	e.logger.Info("bet placed", "game", id, "player", player, "bet", bet, "vault", vault.Balance)
	return *g.Clone(), nil
}

// step mutates a private copy of the game; returning an error discards it.
type step func(g *state.Game) error

// transition runs one state-machine step for game id under its lock and
// commits the result together with hooks.
func (e *Engine) transition(ctx context.Context, id uint64, op string, fn step, hooks []Hook) (state.Game, error) {
	if err := checkCtx(ctx); err != nil {
		return state.Game{}, err
	}
	if _, err := e.Game(id); err != nil {
		return state.Game{}, err
	}

	unlock := e.lockGame(id)
	defer unlock()

	// Re-read under the game lock; the copy above may be stale.
	cur, err := e.Game(id)
	if err != nil {
		return state.Game{}, err
	}
	g := &cur
	before := g.Status
	if before.Terminal() {
		return state.Game{}, types.ErrBadState.Wrapf("%s: game %d is closed", op, id)
	}
	if err := fn(g); err != nil {
		return state.Game{}, err
	}
	if g.Status < before {
		return state.Game{}, types.ErrBadState.Wrapf("%s: status would regress %s -> %s", op, before, g.Status)
	}

	e.mu.Lock()
	if err := e.runHooks(hooks); err != nil {
		e.mu.Unlock()
		return state.Game{}, err
	}
	e.st.Games[id] = g
	e.mu.Unlock()

	e.logger.Debug("game transition", "op", op, "game", id, "from", before.String(), "to", g.Status.String(),
		"player_total", g.PlayerTotal(), "dealer_total", g.DealerTotal())
	return *g.Clone(), nil
}

func requireStatus(g *state.Game, want state.Status, op string) error {
	if g.Status != want {
		return types.ErrBadState.Wrapf("%s: game %d is %s, want %s", op, g.ID, g.Status, want)
	}
	return nil
}

func requirePlayer(g *state.Game, caller string) error {
	if caller != g.Player {
		return types.ErrNotPlayer.Wrapf("game %d belongs to %s, caller %q", g.ID, g.Player, caller)
	}
	return nil
}

func drawInto(g *state.Game, hand *[]blackjack.Card) (blackjack.Card, error) {
	d := blackjack.NewDealer(&g.RNG, g.RNGCursor, g.UsedMask)
	c, err := d.Next()
	if err != nil {
		return 0, err
	}
	g.RNGCursor, g.UsedMask = d.Cursor, d.Mask
	*hand = append(*hand, c)
	return c, nil
}

// FulfillRandomness stores the game's entropy and deals the opening hands in
// player, dealer, player, dealer order. It succeeds at most once per game.
func (e *Engine) FulfillRandomness(ctx context.Context, id uint64, rng blackjack.Randomness, hooks ...Hook) (state.Game, error) {
	return e.transition(ctx, id, "fulfill_randomness", func(g *state.Game) error {
		if err := requireStatus(g, state.StatusAwaitingRandomness, "fulfill_randomness"); err != nil {
			return err
		}
		g.RNG = rng
		g.RNGCursor = 0
		g.UsedMask = 0
		for i := 0; i < 2; i++ {
			if _, err := drawInto(g, &g.PlayerCards); err != nil {
				return err
			}
			if _, err := drawInto(g, &g.DealerCards); err != nil {
				return err
			}
		}
		g.Status = state.StatusPlayerTurn
		return nil
	}, hooks)
}

// HitPlayer deals one card to the player. A bust ends the player's turn.
func (e *Engine) HitPlayer(ctx context.Context, id uint64, caller string, hooks ...Hook) (state.Game, error) {
	return e.transition(ctx, id, "hit_player", func(g *state.Game) error {
		if err := requireStatus(g, state.StatusPlayerTurn, "hit_player"); err != nil {
			return err
		}
		if err := requirePlayer(g, caller); err != nil {
			return err
		}
		if _, err := drawInto(g, &g.PlayerCards); err != nil {
			return err
		}
		if g.PlayerBust() {
			g.Status = state.StatusDealerTurn
		}
		return nil
	}, hooks)
}

func (e *Engine) StandPlayer(ctx context.Context, id uint64, caller string, hooks ...Hook) (state.Game, error) {
	return e.transition(ctx, id, "stand_player", func(g *state.Game) error {
		if err := requireStatus(g, state.StatusPlayerTurn, "stand_player"); err != nil {
			return err
		}
		if err := requirePlayer(g, caller); err != nil {
			return err
		}
		g.PlayerStood = true
		g.Status = state.StatusDealerTurn
		return nil
	}, hooks)
}

// HitDealer draws for the dealer while house policy requires it. Once the
// policy is satisfied (hard 17+, soft 18+ or bust) the game is Settled.
func (e *Engine) HitDealer(ctx context.Context, id uint64, hooks ...Hook) (state.Game, error) {
	return e.transition(ctx, id, "hit_dealer", func(g *state.Game) error {
		if err := requireStatus(g, state.StatusDealerTurn, "hit_dealer"); err != nil {
			return err
		}
		if g.PlayerBust() {
			return types.ErrBadState.Wrapf("hit_dealer: player busted in game %d", g.ID)
		}
		if !blackjack.DealerShouldHit(g.DealerCards) {
			return types.ErrBadState.Wrapf("hit_dealer: dealer stands on %d", g.DealerTotal())
		}
		if _, err := drawInto(g, &g.DealerCards); err != nil {
			return err
		}
		if !blackjack.DealerShouldHit(g.DealerCards) {
			g.Status = state.StatusSettled
		}
		return nil
	}, hooks)
}

// StandDealer is only legal once the dealer may not draw any more.
func (e *Engine) StandDealer(ctx context.Context, id uint64, hooks ...Hook) (state.Game, error) {
	return e.transition(ctx, id, "stand_dealer", func(g *state.Game) error {
		if err := requireStatus(g, state.StatusDealerTurn, "stand_dealer"); err != nil {
			return err
		}
		if !g.PlayerBust() && blackjack.DealerShouldHit(g.DealerCards) {
			return types.ErrBadState.Wrapf("stand_dealer: dealer must hit on %d", g.DealerTotal())
		}
		g.DealerStood = true
		g.Status = state.StatusSettled
		return nil
	}, hooks)
}

// PlayDealer runs the house policy to completion in one transition.
func (e *Engine) PlayDealer(ctx context.Context, id uint64, hooks ...Hook) (state.Game, error) {
	return e.transition(ctx, id, "play_dealer", func(g *state.Game) error {
		if err := requireStatus(g, state.StatusDealerTurn, "play_dealer"); err != nil {
			return err
		}
		if !g.PlayerBust() {
			for blackjack.DealerShouldHit(g.DealerCards) {
				if _, err := drawInto(g, &g.DealerCards); err != nil {
					return err
				}
			}
		}
		g.DealerStood = true
		g.Status = state.StatusSettled
		return nil
	}, hooks)
}
