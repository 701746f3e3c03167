package blackjack

import (
	"fmt"
	"strconv"
)

// Card is a 0..51 id, where:
// - rank = (id % 13) + 1  (1=Ace .. 13=King)
// - suit = (id / 13)      (0..3)
type Card uint8

const DeckSize = 52

// Rank returns 1..13 (Ace low in the encoding; Value handles the 11).
func (c Card) Rank() uint8 {
	return uint8(c%13) + 1
}

func (c Card) Suit() uint8 { // 0..3
	return uint8(c / 13)
}

func (c Card) IsAce() bool {
	return c.Rank() == 1
}

// Value is the card's contribution to a hand before any Ace demotion.
func (c Card) Value() int {
	r := c.Rank()
	switch {
	case r == 1:
		return 11
	case r >= 11:
		return 10
	default:
		return int(r)
	}
}

func (c Card) Valid() bool {
	return c < DeckSize
}

var (
	rankNames = [...]string{"A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}
	suitNames = [...]string{"♣", "♦", "♥", "♠"}
)

func (c Card) String() string {
	if !c.Valid() {
		return "??"
	}
	return rankNames[c.Rank()-1] + suitNames[c.Suit()]
}

// MarshalJSON keeps card ids numeric; a []Card would otherwise encode as base64.
func (c Card) MarshalJSON() ([]byte, error) {
	return strconv.AppendUint(nil, uint64(c), 10), nil
}

func (c *Card) UnmarshalJSON(b []byte) error {
	n, err := strconv.ParseUint(string(b), 10, 8)
	if err != nil {
		return fmt.Errorf("card id: %w", err)
	}
	if n >= DeckSize {
		return fmt.Errorf("card id out of range: %d", n)
	}
	*c = Card(n)
	return nil
}
