package app

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/json"
	"strconv"
	"sync/atomic"
	"testing"

	abci "github.com/cometbft/cometbft/abci/types"

	"onchainblackjack/internal/blackjack"
	"onchainblackjack/internal/codec"
	"onchainblackjack/internal/state"
)

var testNonce atomic.Uint64

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func txBytes(t *testing.T, typ string, value any) []byte {
	t.Helper()
	return mustMarshal(t, map[string]any{
		"type":  typ,
		"value": value,
	})
}

// testEd25519Key derives a stable key pair from id.
func testEd25519Key(id string) (ed25519.PublicKey, ed25519.PrivateKey) {
	seed := sha256.Sum256([]byte("bjd-test-key/" + id))
	priv := ed25519.NewKeyFromSeed(seed[:])
	return priv.Public().(ed25519.PublicKey), priv
}

func signedEnvelope(t *testing.T, typ string, value any, signer string, nonce string) []byte {
	t.Helper()
	valueBytes := mustMarshal(t, value)
	_, priv := testEd25519Key(signer)
	sig := ed25519.Sign(priv, txAuthSignBytesV0(typ, valueBytes, nonce, signer))
	return mustMarshal(t, codec.TxEnvelope{
		Type:   typ,
		Value:  valueBytes,
		Nonce:  nonce,
		Signer: signer,
		Sig:    sig,
	})
}

func txBytesSigned(t *testing.T, typ string, value any, signer string) []byte {
	t.Helper()
	nonce := strconv.FormatUint(testNonce.Add(1), 10)
	return signedEnvelope(t, typ, value, signer, nonce)
}

func findEvent(events []abci.Event, typ string) *abci.Event {
	for i := range events {
		if events[i].Type == typ {
			return &events[i]
		}
	}
	return nil
}

func countEvents(events []abci.Event, typ string) int {
	n := 0
	for _, ev := range events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func attr(ev *abci.Event, key string) string {
	if ev == nil {
		return ""
	}
	for _, a := range ev.Attributes {
		if a.Key == key {
			return a.Value
		}
	}
	return ""
}

func parseU64(t *testing.T, s string) uint64 {
	t.Helper()
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		t.Fatalf("parse uint64 %q: %v", s, err)
	}
	return n
}

func newTestApp(t *testing.T) *BlackjackApp {
	t.Helper()
	a, err := NewWithStore(state.NewMemStore(), nil)
	if err != nil {
		t.Fatalf("NewWithStore: %v", err)
	}
	return a
}

func mustOk(t *testing.T, res *abci.ExecTxResult) *abci.ExecTxResult {
	t.Helper()
	if res.Code != 0 {
		t.Fatalf("expected ok, got codespace=%q code=%d log=%q", res.Codespace, res.Code, res.Log)
	}
	return res
}

func mustFailWith(t *testing.T, res *abci.ExecTxResult, codespace string, code uint32) *abci.ExecTxResult {
	t.Helper()
	if res.Code != code || res.Codespace != codespace {
		t.Fatalf("expected %s/%d, got codespace=%q code=%d log=%q", codespace, code, res.Codespace, res.Code, res.Log)
	}
	return res
}

func mintTestTokens(t *testing.T, a *BlackjackApp, height int64, to string, amount uint64) {
	t.Helper()
	mustOk(t, a.deliverTx(txBytes(t, codec.TypeBankMint, map[string]any{"to": to, "amount": amount}), height))
}

func registerTestAccount(t *testing.T, a *BlackjackApp, height int64, account string) {
	t.Helper()
	pub, _ := testEd25519Key(account)
	mustOk(t, a.deliverTx(txBytesSigned(t, codec.TypeAuthRegisterAccount, map[string]any{
		"account": account,
		"pubKey":  []byte(pub),
	}, account), height))
}

func card(rank, suit int) blackjack.Card {
	return blackjack.Card(suit*13 + rank - 1)
}

func randomness(cards ...blackjack.Card) []byte {
	out := make([]byte, 32)
	for i, c := range cards {
		out[i] = byte(c)
	}
	return out
}

// setupTable mints and registers house and alice, creates the table and
// funds the vault with vault lamports.
func setupTable(t *testing.T, vault uint64) *BlackjackApp {
	t.Helper()
	const height = int64(1)
	a := newTestApp(t)

	mintTestTokens(t, a, height, "house", 100_000)
	mintTestTokens(t, a, height, "alice", 10_000)
	registerTestAccount(t, a, height, "house")
	registerTestAccount(t, a, height, "alice")

	mustOk(t, a.deliverTx(txBytesSigned(t, codec.TypeCreateTable, map[string]any{"authority": "house"}, "house"), height))
	mustOk(t, a.deliverTx(txBytesSigned(t, codec.TypeFundVault, map[string]any{"funder": "house", "amount": vault}, "house"), height))
	return a
}

func placeBet(t *testing.T, a *BlackjackApp, height int64, player string, bet uint64) uint64 {
	t.Helper()
	res := mustOk(t, a.deliverTx(txBytesSigned(t, codec.TypeNewBet, map[string]any{"player": player, "bet": bet}, player), height))
	ev := findEvent(res.Events, "GameCreated")
	if ev == nil {
		t.Fatalf("expected GameCreated event")
	}
	return parseU64(t, attr(ev, "gameId"))
}

func queryJSON(t *testing.T, a *BlackjackApp, path string, out any) {
	t.Helper()
	res, err := a.Query(t.Context(), &abci.QueryRequest{Path: path})
	if err != nil {
		t.Fatalf("query %s: %v", path, err)
	}
	if res.Code != 0 {
		t.Fatalf("query %s: code=%d log=%q", path, res.Code, res.Log)
	}
	if err := json.Unmarshal(res.Value, out); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
}
