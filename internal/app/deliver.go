package app

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	abci "github.com/cometbft/cometbft/abci/types"

	"onchainblackjack/internal/blackjack"
	"onchainblackjack/internal/codec"
	"onchainblackjack/internal/engine"
	"onchainblackjack/internal/state"
	"onchainblackjack/internal/types"
)

func knownTxType(typ string) bool {
	switch typ {
	case codec.TypeBankMint, codec.TypeBankSend, codec.TypeAuthRegisterAccount,
		codec.TypeCreateTable, codec.TypeFundVault, codec.TypeNewBet, codec.TypeFulfillRandomness,
		codec.TypeHitPlayer, codec.TypeStandPlayer,
		codec.TypeHitDealer, codec.TypeStandDealer, codec.TypePlayDealer,
		codec.TypeSettle:
		return true
	default:
		return false
	}
}

// deliverTx executes one transaction. Every path either commits all of its
// effects (including the signer's nonce) or none of them.
func (a *BlackjackApp) deliverTx(txBytes []byte, height int64) *abci.ExecTxResult {
	env, err := codec.DecodeTxEnvelope(txBytes)
	if err != nil {
		return errResult(types.ErrInvalidRequest.Wrap(err.Error()))
	}
	res, err := a.route(env)
	if err != nil {
		a.logger.Debug("tx failed", "height", height, "type", env.Type, "err", err)
		return errResult(err)
	}
	return res
}

func (a *BlackjackApp) route(env codec.TxEnvelope) (*abci.ExecTxResult, error) {
	ctx := context.Background()

	switch env.Type {
	case codec.TypeBankMint:
		msg, err := decode[codec.BankMintTx](env)
		if err != nil {
			return nil, err
		}
		if msg.To == "" || msg.Amount == 0 {
			return nil, types.ErrInvalidRequest.Wrap("missing to/amount")
		}
		if err := a.eng.Update(func(st *state.State) error {
			return st.Credit(msg.To, msg.Amount)
		}); err != nil {
			return nil, err
		}
		return okEvent(types.EventTypeBankMinted, map[string]string{
			"to":     msg.To,
			"amount": u64(msg.Amount),
		}), nil

	case codec.TypeBankSend:
		msg, err := decode[codec.BankSendTx](env)
		if err != nil {
			return nil, err
		}
		if msg.From == "" || msg.To == "" || msg.Amount == 0 {
			return nil, types.ErrInvalidRequest.Wrap("missing from/to/amount")
		}
		if err := a.eng.Update(func(st *state.State) error {
			if err := requireAccountAuth(st, env, msg.From); err != nil {
				return err
			}
			if err := st.Debit(msg.From, msg.Amount); err != nil {
				return err
			}
			if err := st.Credit(msg.To, msg.Amount); err != nil {
				return err
			}
			return acceptNonce(st, env)
		}); err != nil {
			return nil, err
		}
		return okEvent(types.EventTypeBankSent, map[string]string{
			"from":   msg.From,
			"to":     msg.To,
			"amount": u64(msg.Amount),
		}), nil

	case codec.TypeAuthRegisterAccount:
		msg, err := decode[codec.AuthRegisterAccountTx](env)
		if err != nil {
			return nil, err
		}
		if err := a.eng.Update(func(st *state.State) error {
			if err := requireRegisterAccountAuth(st, env, msg); err != nil {
				return err
			}
			st.AccountKeys[msg.Account] = append([]byte(nil), msg.PubKey...)
			return acceptNonce(st, env)
		}); err != nil {
			return nil, err
		}
		return okEvent(types.EventTypeAccountRegistered, map[string]string{
			"account": msg.Account,
		}), nil

	case codec.TypeCreateTable:
		msg, err := decode[codec.CreateTableTx](env)
		if err != nil {
			return nil, err
		}
		nonce, err := a.signedBy(env, msg.Authority)
		if err != nil {
			return nil, err
		}
		t, err := a.eng.CreateTable(ctx, msg.Authority, nonce)
		if err != nil {
			return nil, err
		}
		return okEvent(types.EventTypeTableCreated, map[string]string{
			"authority": t.Authority,
			"vault":     t.Vault,
		}), nil

	case codec.TypeFundVault:
		msg, err := decode[codec.FundVaultTx](env)
		if err != nil {
			return nil, err
		}
		nonce, err := a.signedBy(env, msg.Funder)
		if err != nil {
			return nil, err
		}
		bal, err := a.eng.FundVault(ctx, msg.Funder, msg.Amount, nonce)
		if err != nil {
			return nil, err
		}
		return okEvent(types.EventTypeVaultFunded, map[string]string{
			"funder":  msg.Funder,
			"amount":  u64(msg.Amount),
			"balance": u64(bal),
		}), nil

	case codec.TypeNewBet:
		msg, err := decode[codec.NewBetTx](env)
		if err != nil {
			return nil, err
		}
		nonce, err := a.signedBy(env, msg.Player)
		if err != nil {
			return nil, err
		}
		g, err := a.eng.NewBet(ctx, msg.Player, msg.Bet, nonce)
		if err != nil {
			return nil, err
		}
		return okEvent(types.EventTypeGameCreated, map[string]string{
			"gameId": u64(g.ID),
			"player": g.Player,
			"bet":    u64(g.BetAmount),
			"status": g.Status.String(),
		}), nil

	case codec.TypeFulfillRandomness:
		msg, err := decode[codec.FulfillRandomnessTx](env)
		if err != nil {
			return nil, err
		}
		if len(msg.Randomness) != types.RNGBytes {
			return nil, types.ErrInvalidRequest.Wrapf("randomness must be %d bytes, got %d", types.RNGBytes, len(msg.Randomness))
		}
		table, err := a.eng.Table()
		if err != nil {
			return nil, err
		}
		if env.Signer != "" && env.Signer != table.Authority {
			return nil, types.ErrUnauthorized.Wrapf("randomness must be fulfilled by the table authority, got %q", env.Signer)
		}
		nonce, err := a.signedBy(env, table.Authority)
		if err != nil {
			return nil, err
		}
		var rng blackjack.Randomness
		copy(rng[:], msg.Randomness)
		return a.gameTx(msg.GameID, types.EventTypeRandomnessFulfilled, nil, func() (state.Game, error) {
			return a.eng.FulfillRandomness(ctx, msg.GameID, rng, nonce)
		})

	case codec.TypeHitPlayer, codec.TypeStandPlayer, codec.TypeSettle:
		msg, err := decode[codec.PlayerActionTx](env)
		if err != nil {
			return nil, err
		}
		nonce, err := a.signedBy(env, msg.Player)
		if err != nil {
			return nil, err
		}
		switch env.Type {
		case codec.TypeHitPlayer:
			return a.gameTx(msg.GameID, "", nil, func() (state.Game, error) {
				return a.eng.HitPlayer(ctx, msg.GameID, msg.Player, nonce)
			})
		case codec.TypeStandPlayer:
			return a.gameTx(msg.GameID, types.EventTypePlayerStood, nil, func() (state.Game, error) {
				return a.eng.StandPlayer(ctx, msg.GameID, msg.Player, nonce)
			})
		default:
			return a.gameTx(msg.GameID, types.EventTypeGameSettled, settledAttrs, func() (state.Game, error) {
				return a.eng.Settle(ctx, msg.GameID, msg.Player, nonce)
			})
		}

	case codec.TypeHitDealer, codec.TypeStandDealer, codec.TypePlayDealer:
		// Dealer play is mechanical and permissionless.
		msg, err := decode[codec.DealerActionTx](env)
		if err != nil {
			return nil, err
		}
		nonce, err := a.optionallySigned(env)
		if err != nil {
			return nil, err
		}
		switch env.Type {
		case codec.TypeHitDealer:
			return a.gameTx(msg.GameID, "", nil, func() (state.Game, error) {
				return a.eng.HitDealer(ctx, msg.GameID, nonce)
			})
		case codec.TypeStandDealer:
			return a.gameTx(msg.GameID, types.EventTypeDealerStood, nil, func() (state.Game, error) {
				return a.eng.StandDealer(ctx, msg.GameID, nonce)
			})
		default:
			return a.gameTx(msg.GameID, types.EventTypeDealerStood, nil, func() (state.Game, error) {
				return a.eng.PlayDealer(ctx, msg.GameID, nonce)
			})
		}

	default:
		return nil, types.ErrInvalidRequest.Wrapf("unknown tx type: %s", env.Type)
	}
}

func decode[T any](env codec.TxEnvelope) (T, error) {
	msg, err := codec.DecodeValue[T](env)
	if err != nil {
		return msg, types.ErrInvalidRequest.Wrap(err.Error())
	}
	return msg, nil
}

// signedBy verifies that account signed env and returns the hook that records
// env's nonce in the same commit as the engine operation.
func (a *BlackjackApp) signedBy(env codec.TxEnvelope, account string) (engine.Hook, error) {
	if err := a.eng.View(func(st *state.State) error {
		return requireAccountAuth(st, env, account)
	}); err != nil {
		return nil, err
	}
	return func(st *state.State) error {
		return acceptNonce(st, env)
	}, nil
}

// optionallySigned admits unsigned envelopes on permissionless routes. An
// envelope that names a signer, nonce or signature must be fully signed by
// that signer before its nonce is recorded.
func (a *BlackjackApp) optionallySigned(env codec.TxEnvelope) (engine.Hook, error) {
	if env.Signer == "" && env.Nonce == "" && len(env.Sig) == 0 {
		return nil, nil
	}
	if err := requireSignedEnvelope(env); err != nil {
		return nil, err
	}
	return a.signedBy(env, env.Signer)
}

// gameTx runs one game transition and reports it as events: the action event
// (if any), one CardDealt per new card, and StatusChanged when the status
// moved.
func (a *BlackjackApp) gameTx(
	id uint64,
	actionEvent string,
	extra func(g state.Game) map[string]string,
	run func() (state.Game, error),
) (*abci.ExecTxResult, error) {
	before, err := a.eng.Game(id)
	if err != nil {
		return nil, err
	}
	after, err := run()
	if err != nil {
		return nil, err
	}

	gameID := u64(id)
	var events []abci.Event
	if actionEvent != "" {
		attrs := map[string]string{
			"gameId": gameID,
			"player": after.Player,
		}
		if extra != nil {
			for k, v := range extra(after) {
				attrs[k] = v
			}
		}
		events = append(events, event(actionEvent, attrs))
	}
	for _, c := range after.PlayerCards[len(before.PlayerCards):] {
		events = append(events, cardEvent(gameID, "player", c, after.PlayerTotal()))
	}
	for _, c := range after.DealerCards[len(before.DealerCards):] {
		events = append(events, cardEvent(gameID, "dealer", c, after.DealerTotal()))
	}
	if after.Status != before.Status {
		events = append(events, event(types.EventTypeStatusChanged, map[string]string{
			"gameId": gameID,
			"from":   before.Status.String(),
			"to":     after.Status.String(),
		}))
	}
	return &abci.ExecTxResult{Code: 0, Events: events}, nil
}

func settledAttrs(g state.Game) map[string]string {
	return map[string]string{
		"outcome":     string(g.Outcome),
		"payout":      u64(g.Payout),
		"playerTotal": strconv.Itoa(g.PlayerTotal()),
		"dealerTotal": strconv.Itoa(g.DealerTotal()),
	}
}

func cardEvent(gameID, hand string, c blackjack.Card, total int) abci.Event {
	return event(types.EventTypeCardDealt, map[string]string{
		"gameId": gameID,
		"hand":   hand,
		"card":   strconv.Itoa(int(c)),
		"label":  c.String(),
		"total":  strconv.Itoa(total),
	})
}

func event(typ string, attrs map[string]string) abci.Event {
	ev := abci.Event{Type: typ}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ev.Attributes = append(ev.Attributes, abci.EventAttribute{Key: k, Value: attrs[k], Index: true})
	}
	return ev
}

func okEvent(typ string, attrs map[string]string) *abci.ExecTxResult {
	return &abci.ExecTxResult{
		Code:   0,
		Events: []abci.Event{event(typ, attrs)},
	}
}

func u64(v uint64) string { return fmt.Sprintf("%d", v) }
