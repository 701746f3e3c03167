package blackjack

const (
	// BustLimit is the highest non-bust total.
	BustLimit = 21
	// DealerStandTotal is the lowest total the dealer stands on (unless soft).
	DealerStandTotal = 17
)

// evaluate returns the best total and how many Aces are still counted as 11.
func evaluate(hand []Card) (total int, softAces int) {
	for _, c := range hand {
		if c.IsAce() {
			softAces++
		}
		total += c.Value()
	}
	for total > BustLimit && softAces > 0 {
		total -= 10
		softAces--
	}
	return total, softAces
}

// Total is the hand's best total: Aces count 11 and are demoted to 1, one at a
// time, while the hand would otherwise bust.
func Total(hand []Card) int {
	total, _ := evaluate(hand)
	return total
}

// IsSoft reports whether an Ace is still counted as 11 in the best total.
func IsSoft(hand []Card) bool {
	_, soft := evaluate(hand)
	return soft > 0
}

func IsBust(hand []Card) bool {
	return Total(hand) > BustLimit
}

func IsBlackjack(hand []Card) bool {
	return len(hand) == 2 && Total(hand) == BustLimit
}

// DealerShouldHit is the house policy: draw below 17 and on soft 17.
func DealerShouldHit(dealer []Card) bool {
	total, soft := evaluate(dealer)
	return total < DealerStandTotal || (total == DealerStandTotal && soft > 0)
}
