package engine

import (
	"context"

	"onchainblackjack/internal/blackjack"
	"onchainblackjack/internal/state"
	"onchainblackjack/internal/types"
)

// Settle pays out a finished game from the vault and closes it.
//
// A game in DealerTurn may be settled directly when the player busted or the
// dealer's hand already satisfies house policy; the dealer is then marked as
// standing. Vault and player balances move together with the Closed status,
// or not at all.
func (e *Engine) Settle(ctx context.Context, id uint64, caller string, hooks ...Hook) (state.Game, error) {
	if err := checkCtx(ctx); err != nil {
		return state.Game{}, err
	}
	if _, err := e.Game(id); err != nil {
		return state.Game{}, err
	}

	unlock := e.lockGame(id)
	defer unlock()

	cur, err := e.Game(id)
	if err != nil {
		return state.Game{}, err
	}
	g := &cur
	if err := requirePlayer(g, caller); err != nil {
		return state.Game{}, err
	}
	switch g.Status {
	case state.StatusSettled:
	case state.StatusDealerTurn:
		if !g.PlayerBust() && blackjack.DealerShouldHit(g.DealerCards) {
			return state.Game{}, types.ErrBadState.Wrapf("settle: dealer must still hit on %d", g.DealerTotal())
		}
		g.DealerStood = true
	default:
		return state.Game{}, types.ErrBadState.Wrapf("settle: game %d is %s", id, g.Status)
	}

	res := blackjack.Settle(g.PlayerCards, g.DealerCards, g.BetAmount)
	if !res.Payout.IsUint64() {
		return state.Game{}, types.ErrOverflow.Wrapf("payout %s overflows", res.Payout)
	}
	payout := res.Payout.Uint64()

	e.mu.Lock()
	defer e.mu.Unlock()

	vault := e.st.Vault
	if vault == nil {
		return state.Game{}, types.ErrTableNotFound
	}
	if err := vault.CanDebit(payout); err != nil {
		return state.Game{}, err
	}
	if err := e.st.CanCredit(g.Player, payout); err != nil {
		return state.Game{}, err
	}

	if err := e.runHooks(hooks); err != nil {
		return state.Game{}, err
	}
	if err := e.st.Credit(g.Player, payout); err != nil {
		return state.Game{}, err
	}
	vault.Balance -= payout
	g.Status = state.StatusClosed
	g.Outcome = res.Outcome
	g.Payout = payout
	e.st.Games[id] = g

	e.logger.Info("game settled", "game", id, "player", g.Player, "outcome", string(res.Outcome),
		"player_total", g.PlayerTotal(), "dealer_total", g.DealerTotal(), "payout", payout, "vault", vault.Balance)
	return *g.Clone(), nil
}
