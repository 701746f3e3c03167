package blackjack

import (
	"math/bits"

	"onchainblackjack/internal/types"
)

// Randomness is the fixed per-game entropy buffer.
type Randomness [types.RNGBytes]byte

// fullMask has bits 0..51 set.
const fullMask = uint64(1)<<DeckSize - 1

func maskHas(mask uint64, c Card) bool {
	return mask&(uint64(1)<<c) != 0
}

// MaskCount is the number of cards marked as dealt.
func MaskCount(mask uint64) int {
	return bits.OnesCount64(mask & fullMask)
}

// Draw deals the next unused card from rng starting at cursor. Each byte maps
// to byte%52; a candidate already in mask is skipped by advancing one byte.
// On failure the inputs are returned unchanged.
func Draw(rng *Randomness, cursor uint8, mask uint64) (Card, uint8, uint64, error) {
	if mask&fullMask == fullMask {
		return 0, cursor, mask, types.ErrDeckExhausted.Wrap("all 52 cards dealt")
	}
	for i := int(cursor); i < types.RNGBytes; i++ {
		c := Card(rng[i] % DeckSize)
		if maskHas(mask, c) {
			continue
		}
		return c, uint8(i + 1), mask | uint64(1)<<c, nil
	}
	return 0, cursor, mask, types.ErrRngExhausted.Wrapf("no unused card in rng[%d:%d]", cursor, types.RNGBytes)
}

// Dealer walks one game's randomness, accumulating the cursor and mask.
type Dealer struct {
	rng    *Randomness
	Cursor uint8
	Mask   uint64
}

func NewDealer(rng *Randomness, cursor uint8, mask uint64) *Dealer {
	return &Dealer{rng: rng, Cursor: cursor, Mask: mask}
}

func (d *Dealer) Next() (Card, error) {
	c, cursor, mask, err := Draw(d.rng, d.Cursor, d.Mask)
	if err != nil {
		return 0, err
	}
	d.Cursor, d.Mask = cursor, mask
	return c, nil
}
