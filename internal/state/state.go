package state

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"

	"onchainblackjack/internal/blackjack"
	"onchainblackjack/internal/types"
)

type State struct {
	Height int64 `json:"height"`

	Accounts    map[string]uint64 `json:"accounts"`
	AccountKeys map[string][]byte `json:"accountKeys,omitempty"` // addr -> ed25519 pubkey (32 bytes)
	NonceMax    map[string]uint64 `json:"nonceMax,omitempty"`    // signer -> last accepted tx.nonce, for replay protection

	Table *Table `json:"table,omitempty"`
	Vault *Vault `json:"vault,omitempty"`

	NextGameID uint64           `json:"nextGameId"`
	Games      map[uint64]*Game `json:"games"`
}

func NewState() *State {
	return &State{
		Height:      0,
		Accounts:    map[string]uint64{},
		AccountKeys: map[string][]byte{},
		NonceMax:    map[string]uint64{},
		NextGameID:  1,
		Games:       map[uint64]*Game{},
	}
}

// normalize fills maps and counters that may be missing from older encodings.
func (s *State) normalize() {
	if s.Accounts == nil {
		s.Accounts = map[string]uint64{}
	}
	if s.AccountKeys == nil {
		s.AccountKeys = map[string][]byte{}
	}
	if s.NonceMax == nil {
		s.NonceMax = map[string]uint64{}
	}
	if s.Games == nil {
		s.Games = map[uint64]*Game{}
	}
	if s.NextGameID == 0 {
		s.NextGameID = 1
	}
}

func decode(b []byte) (*State, error) {
	var st State
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	st.normalize()
	return &st, nil
}

// Clone returns a deep copy of state suitable for staged tx execution.
func (s *State) Clone() (*State, error) {
	if s == nil {
		return nil, fmt.Errorf("state is nil")
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode state clone: %w", err)
	}
	out, err := decode(b)
	if err != nil {
		return nil, fmt.Errorf("state clone: %w", err)
	}
	return out, nil
}

func (s *State) AppHash() []byte {
	// encoding/json does NOT guarantee map key order, so maps are normalized
	// into sorted slices before hashing.
	type accountKV struct {
		Addr    string `json:"addr"`
		Balance uint64 `json:"balance"`
	}
	type accountKeyKV struct {
		Addr   string `json:"addr"`
		PubKey []byte `json:"pubKey"`
	}
	type nonceKV struct {
		Signer string `json:"signer"`
		Nonce  uint64 `json:"nonce"`
	}

	accounts := make([]accountKV, 0, len(s.Accounts))
	for k, v := range s.Accounts {
		accounts = append(accounts, accountKV{Addr: k, Balance: v})
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Addr < accounts[j].Addr })

	accountKeys := make([]accountKeyKV, 0, len(s.AccountKeys))
	for k, v := range s.AccountKeys {
		accountKeys = append(accountKeys, accountKeyKV{Addr: k, PubKey: v})
	}
	sort.Slice(accountKeys, func(i, j int) bool { return accountKeys[i].Addr < accountKeys[j].Addr })

	nonces := make([]nonceKV, 0, len(s.NonceMax))
	for k, v := range s.NonceMax {
		nonces = append(nonces, nonceKV{Signer: k, Nonce: v})
	}
	sort.Slice(nonces, func(i, j int) bool { return nonces[i].Signer < nonces[j].Signer })

	normalized := struct {
		Height      int64          `json:"height"`
		Accounts    []accountKV    `json:"accounts"`
		AccountKeys []accountKeyKV `json:"accountKeys,omitempty"`
		NonceMax    []nonceKV      `json:"nonceMax,omitempty"`
		Table       *Table         `json:"table,omitempty"`
		Vault       *Vault         `json:"vault,omitempty"`
		NextGameID  uint64         `json:"nextGameId"`
		Games       []*Game        `json:"games"`
	}{
		Height:      s.Height,
		Accounts:    accounts,
		AccountKeys: accountKeys,
		NonceMax:    nonces,
		Table:       s.Table,
		Vault:       s.Vault,
		NextGameID:  s.NextGameID,
		Games:       s.SortedGames(),
	}

	b, _ := json.Marshal(normalized)
	sum := sha256.Sum256(b)
	return sum[:]
}

// SortedGames returns the games ordered by id.
func (s *State) SortedGames() []*Game {
	out := make([]*Game, 0, len(s.Games))
	for _, g := range s.Games {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ---- Bank ----

func (s *State) Balance(addr string) uint64 {
	return s.Accounts[addr]
}

// CanCredit reports whether Credit(addr, amount) would succeed.
func (s *State) CanCredit(addr string, amount uint64) error {
	bal := s.Accounts[addr]
	if bal > ^uint64(0)-amount {
		return types.ErrOverflow.Wrapf("balance overflow for %s: have=%d add=%d", addr, bal, amount)
	}
	return nil
}

func (s *State) Credit(addr string, amount uint64) error {
	if err := s.CanCredit(addr, amount); err != nil {
		return err
	}
	s.Accounts[addr] += amount
	return nil
}

func (s *State) Debit(addr string, amount uint64) error {
	bal := s.Accounts[addr]
	if bal < amount {
		return types.ErrInsufficientFunds.Wrapf("%s: have=%d need=%d", addr, bal, amount)
	}
	s.Accounts[addr] = bal - amount
	return nil
}

// ---- Blackjack ----

// Table is the singleton house configuration. It is never mutated after
// creation.
type Table struct {
	Authority     string `json:"authority"`
	Vault         string `json:"vault"`
	CreatedHeight int64  `json:"createdHeight,omitempty"`
}

// Vault is the pooled bankroll backing every game's worst-case payout.
type Vault struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
}

func (v *Vault) CanCredit(amount uint64) error {
	if v.Balance > ^uint64(0)-amount {
		return types.ErrOverflow.Wrapf("vault balance overflow: have=%d add=%d", v.Balance, amount)
	}
	return nil
}

func (v *Vault) CanDebit(amount uint64) error {
	if v.Balance < amount {
		return types.ErrVaultInsufficient.Wrapf("have=%d need=%d", v.Balance, amount)
	}
	return nil
}

type Game struct {
	ID        uint64 `json:"id"`
	Table     string `json:"table"` // authority of the table the game was opened under
	Player    string `json:"player"`
	BetAmount uint64 `json:"betAmount"`
	Status    Status `json:"status"`

	RNG       blackjack.Randomness `json:"rng"`
	RNGCursor uint8                `json:"rngCursor"`
	UsedMask  uint64               `json:"usedMask"`

	PlayerCards []blackjack.Card `json:"playerCards"`
	DealerCards []blackjack.Card `json:"dealerCards"`

	PlayerStood bool `json:"playerStood"`
	DealerStood bool `json:"dealerStood"`

	CreatedHeight int64             `json:"createdHeight,omitempty"`
	Outcome       blackjack.Outcome `json:"outcome,omitempty"`
	Payout        uint64            `json:"payout,omitempty"`
}

// Clone returns a deep copy; transitions are computed on the copy and only
// committed when they succeed.
func (g *Game) Clone() *Game {
	out := *g
	out.PlayerCards = append(make([]blackjack.Card, 0, len(g.PlayerCards)), g.PlayerCards...)
	out.DealerCards = append(make([]blackjack.Card, 0, len(g.DealerCards)), g.DealerCards...)
	return &out
}

func (g *Game) PlayerTotal() int { return blackjack.Total(g.PlayerCards) }
func (g *Game) DealerTotal() int { return blackjack.Total(g.DealerCards) }

func (g *Game) PlayerBust() bool { return blackjack.IsBust(g.PlayerCards) }

// CardsDealt is the number of cards in both hands.
func (g *Game) CardsDealt() int {
	return len(g.PlayerCards) + len(g.DealerCards)
}

func marshalState(s *State) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return b, nil
}
