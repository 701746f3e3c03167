package blackjack

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"onchainblackjack/internal/types"
)

// Card ids used below: rank r (1..13) of suit s is Card(s*13 + r - 1).
func card(rank, suit int) Card {
	return Card(suit*13 + rank - 1)
}

func TestCard_DecodeIsUniqueAndValuesInRange(t *testing.T) {
	seen := map[[2]uint8]bool{}
	for i := 0; i < DeckSize; i++ {
		c := Card(i)
		key := [2]uint8{c.Rank(), c.Suit()}
		require.False(t, seen[key], "duplicate decode for %d", i)
		seen[key] = true

		require.GreaterOrEqual(t, c.Rank(), uint8(1))
		require.LessOrEqual(t, c.Rank(), uint8(13))
		require.Less(t, c.Suit(), uint8(4))
		require.GreaterOrEqual(t, c.Value(), 2)
		require.LessOrEqual(t, c.Value(), 11)
		require.Equal(t, Card(int(c.Suit())*13+int(c.Rank())-1), c)
	}
	require.Len(t, seen, DeckSize)
}

func TestCard_String(t *testing.T) {
	cases := []struct {
		card Card
		want string
	}{
		{Card(0), "A♣"},
		{Card(9), "10♣"},
		{Card(12), "K♣"},
		{Card(13), "A♦"},
		{Card(51), "K♠"},
		{Card(52), "??"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, tc.card.String(), "Card(%d)", tc.card)
	}
}

func TestTotal_AceDemotion(t *testing.T) {
	cases := []struct {
		name string
		hand []Card
		want int
		soft bool
	}{
		{"empty", nil, 0, false},
		{"ace king", []Card{card(1, 0), card(13, 1)}, 21, true},
		{"two aces", []Card{card(1, 0), card(1, 1)}, 12, true},
		{"three aces and nine", []Card{card(1, 0), card(1, 1), card(1, 2), card(9, 3)}, 12, false},
		{"soft seventeen", []Card{card(1, 0), card(6, 0)}, 17, true},
		{"hard seventeen with ace", []Card{card(1, 0), card(6, 0), card(10, 1)}, 17, false},
		{"bust", []Card{card(10, 0), card(9, 0), card(5, 0)}, 24, false},
		{"faces", []Card{card(11, 0), card(12, 1)}, 20, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Total(tc.hand))
			require.Equal(t, tc.soft, IsSoft(tc.hand))
		})
	}
}

func TestTotal_NeverBustsWhenHardTotalFits(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 5000; i++ {
		n := 2 + r.Intn(6)
		hand := make([]Card, n)
		hard := 0
		for j := range hand {
			hand[j] = Card(r.Intn(DeckSize))
			if hand[j].IsAce() {
				hard++
			} else {
				hard += hand[j].Value()
			}
		}
		total := Total(hand)
		if hard <= BustLimit {
			require.LessOrEqual(t, total, BustLimit, "hand %v", hand)
		}
		require.GreaterOrEqual(t, total, hard)
		// Evaluating again, or appending nothing, cannot move the total.
		require.Equal(t, total, Total(append([]Card(nil), hand...)))
	}
}

func TestIsBlackjack(t *testing.T) {
	require.True(t, IsBlackjack([]Card{card(1, 0), card(13, 0)}))
	require.True(t, IsBlackjack([]Card{card(10, 2), card(1, 3)}))
	require.False(t, IsBlackjack([]Card{card(7, 0), card(7, 1), card(7, 2)}))
	require.False(t, IsBlackjack([]Card{card(10, 0), card(9, 0)}))
}

func TestDealerShouldHit_HitsSoft17(t *testing.T) {
	require.True(t, DealerShouldHit([]Card{card(10, 0), card(6, 0)}))
	require.True(t, DealerShouldHit([]Card{card(1, 0), card(6, 0)}))
	require.False(t, DealerShouldHit([]Card{card(10, 0), card(7, 0)}))
	require.False(t, DealerShouldHit([]Card{card(1, 0), card(6, 0), card(10, 1)}))
	require.False(t, DealerShouldHit([]Card{card(1, 0), card(7, 0)}))
	require.False(t, DealerShouldHit([]Card{card(10, 0), card(9, 0), card(13, 0)}))
}

func TestDraw_SequentialBytes(t *testing.T) {
	var rng Randomness
	for i := range rng {
		rng[i] = byte(i)
	}
	var (
		cursor uint8
		mask   uint64
	)
	for i := 0; i < types.RNGBytes; i++ {
		c, next, nextMask, err := Draw(&rng, cursor, mask)
		require.NoError(t, err)
		require.Equal(t, Card(i), c)
		require.Equal(t, cursor+1, next)
		require.False(t, maskHas(mask, c))
		cursor, mask = next, nextMask
	}
	require.Equal(t, types.RNGBytes, MaskCount(mask))

	_, next, nextMask, err := Draw(&rng, cursor, mask)
	require.ErrorIs(t, err, types.ErrRngExhausted)
	require.Equal(t, cursor, next)
	require.Equal(t, mask, nextMask)
}

func TestDraw_LinearProbeSkipsUsedCards(t *testing.T) {
	var rng Randomness
	rng[0] = 5
	rng[1] = 57 // 57 % 52 == 5, already dealt
	rng[2] = 6

	c, cursor, mask, err := Draw(&rng, 0, 0)
	require.NoError(t, err)
	require.Equal(t, Card(5), c)

	c, cursor, mask, err = Draw(&rng, cursor, mask)
	require.NoError(t, err)
	require.Equal(t, Card(6), c)
	require.Equal(t, uint8(3), cursor)
	require.Equal(t, 2, MaskCount(mask))
}

func TestDraw_ZeroRandomnessExhausts(t *testing.T) {
	var rng Randomness
	c, cursor, mask, err := Draw(&rng, 0, 0)
	require.NoError(t, err)
	require.Equal(t, Card(0), c)

	_, gotCursor, gotMask, err := Draw(&rng, cursor, mask)
	require.ErrorIs(t, err, types.ErrRngExhausted)
	require.Equal(t, cursor, gotCursor)
	require.Equal(t, mask, gotMask)
}

func TestDraw_FullMaskIsDeckExhausted(t *testing.T) {
	var rng Randomness
	_, _, _, err := Draw(&rng, 0, fullMask)
	require.ErrorIs(t, err, types.ErrDeckExhausted)
}

func TestDealer_NeverRepeatsACard(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for round := 0; round < 500; round++ {
		var rng Randomness
		r.Read(rng[:])

		d := NewDealer(&rng, 0, 0)
		seen := map[Card]bool{}
		for {
			c, err := d.Next()
			if err != nil {
				require.ErrorIs(t, err, types.ErrRngExhausted)
				break
			}
			require.False(t, seen[c], "card %d dealt twice", c)
			seen[c] = true
		}
		require.Equal(t, len(seen), MaskCount(d.Mask))
		require.LessOrEqual(t, int(d.Cursor), types.RNGBytes)
	}
}

func TestSettle_PayoutTable(t *testing.T) {
	const bet = 1000
	cases := []struct {
		name    string
		player  []Card
		dealer  []Card
		payout  int64
		outcome Outcome
	}{
		{
			name:    "player blackjack vs 17",
			player:  []Card{card(1, 0), card(13, 0)},
			dealer:  []Card{card(9, 0), card(8, 0)},
			payout:  2500,
			outcome: OutcomePlayerWin,
		},
		{
			name:    "19 loses to 20",
			player:  []Card{card(10, 0), card(9, 0)},
			dealer:  []Card{card(10, 1), card(13, 1)},
			payout:  0,
			outcome: OutcomeDealerWin,
		},
		{
			name:    "player bust loses even when dealer busts",
			player:  []Card{card(10, 0), card(9, 0), card(5, 0)},
			dealer:  []Card{card(10, 1), card(9, 1), card(13, 1)},
			payout:  0,
			outcome: OutcomeDealerWin,
		},
		{
			name:    "push on 18",
			player:  []Card{card(10, 0), card(8, 0)},
			dealer:  []Card{card(10, 1), card(8, 1)},
			payout:  1000,
			outcome: OutcomePush,
		},
		{
			name:    "dealer bust pays even money",
			player:  []Card{card(10, 0), card(8, 0)},
			dealer:  []Card{card(10, 1), card(9, 1), card(13, 1)},
			payout:  2000,
			outcome: OutcomePlayerWin,
		},
		{
			name:    "dealer blackjack beats 21 in three",
			player:  []Card{card(7, 0), card(7, 1), card(7, 2)},
			dealer:  []Card{card(1, 3), card(12, 3)},
			payout:  0,
			outcome: OutcomeDealerWin,
		},
		{
			name:    "both blackjack push",
			player:  []Card{card(1, 0), card(13, 0)},
			dealer:  []Card{card(1, 1), card(11, 1)},
			payout:  1000,
			outcome: OutcomePush,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Settle(tc.player, tc.dealer, bet)
			require.Equal(t, tc.payout, res.Payout.Int64())
			require.Equal(t, tc.outcome, res.Outcome)
		})
	}
}

func TestBlackjackPayout_TruncatesOddBets(t *testing.T) {
	require.Equal(t, uint64(2), BlackjackPayout(1).Uint64())
	require.Equal(t, uint64(7), BlackjackPayout(3).Uint64())
	require.Equal(t, uint64(2500), MaxPayout(1000).Uint64())

	huge := MaxPayout(^uint64(0))
	require.False(t, huge.IsUint64())
}
