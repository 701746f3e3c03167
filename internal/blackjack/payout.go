package blackjack

import (
	sdkmath "cosmossdk.io/math"
)

type Outcome string

const (
	OutcomeNone      Outcome = ""
	OutcomePlayerWin Outcome = "PlayerWin"
	OutcomeDealerWin Outcome = "DealerWin"
	OutcomePush      Outcome = "Push"
)

// Result is a settled hand: who won and what the vault pays back.
type Result struct {
	Outcome Outcome
	Payout  sdkmath.Int
}

// BlackjackPayout is bet + floor(bet*3/2): the stake plus a 3:2 win.
func BlackjackPayout(bet uint64) sdkmath.Int {
	b := sdkmath.NewIntFromUint64(bet)
	return b.Add(b.MulRaw(3).QuoRaw(2))
}

// MaxPayout is the largest obligation a single bet can create.
func MaxPayout(bet uint64) sdkmath.Int {
	return BlackjackPayout(bet)
}

// Settle applies the payout table. Precedence: player bust, dealer bust,
// naturals, then totals.
func Settle(player, dealer []Card, bet uint64) Result {
	b := sdkmath.NewIntFromUint64(bet)
	win := Result{Outcome: OutcomePlayerWin, Payout: b.MulRaw(2)}
	lose := Result{Outcome: OutcomeDealerWin, Payout: sdkmath.ZeroInt()}

	pt, dt := Total(player), Total(dealer)
	if pt > BustLimit {
		return lose
	}
	if dt > BustLimit {
		return win
	}

	pBJ, dBJ := IsBlackjack(player), IsBlackjack(dealer)
	switch {
	case pBJ && !dBJ:
		return Result{Outcome: OutcomePlayerWin, Payout: BlackjackPayout(bet)}
	case dBJ && !pBJ:
		return lose
	}

	switch {
	case pt > dt:
		return win
	case pt < dt:
		return lose
	default:
		return Result{Outcome: OutcomePush, Payout: b}
	}
}

// Payout is Settle's amount alone.
func Payout(player, dealer []Card, bet uint64) sdkmath.Int {
	return Settle(player, dealer, bet).Payout
}
