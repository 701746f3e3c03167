package codec

import (
	"encoding/json"
	"fmt"
)

// Tx type routes.
const (
	TypeBankMint            = "bank/mint"
	TypeBankSend            = "bank/send"
	TypeAuthRegisterAccount = "auth/register_account"

	TypeCreateTable       = "blackjack/create_table"
	TypeFundVault         = "blackjack/fund_vault"
	TypeNewBet            = "blackjack/new_bet"
	TypeFulfillRandomness = "blackjack/fulfill_randomness"
	TypeHitPlayer         = "blackjack/hit_player"
	TypeStandPlayer       = "blackjack/stand_player"
	TypeHitDealer         = "blackjack/hit_dealer"
	TypeStandDealer       = "blackjack/stand_dealer"
	TypePlayDealer        = "blackjack/play_dealer"
	TypeSettle            = "blackjack/settle"
)

// TxEnvelope is the transaction container.
//
// CometBFT transactions are opaque bytes; this chain uses JSON-encoded txs.
type TxEnvelope struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`

	// Tx auth:
	// - Nonce: decimal u64, strictly increasing per signer.
	// - Signer: account address that signed the tx.
	// - Sig: Ed25519 signature over (type, nonce, signer, sha256(value)).
	Nonce  string `json:"nonce,omitempty"`
	Signer string `json:"signer,omitempty"`
	Sig    []byte `json:"sig,omitempty"`
}

func DecodeTxEnvelope(txBytes []byte) (TxEnvelope, error) {
	var env TxEnvelope
	if err := json.Unmarshal(txBytes, &env); err != nil {
		return TxEnvelope{}, fmt.Errorf("invalid tx json: %w", err)
	}
	if env.Type == "" {
		return TxEnvelope{}, fmt.Errorf("missing tx.type")
	}
	return env, nil
}

// DecodeValue unmarshals the envelope value into T.
func DecodeValue[T any](env TxEnvelope) (T, error) {
	var msg T
	if len(env.Value) == 0 {
		return msg, fmt.Errorf("missing %s value", env.Type)
	}
	if err := json.Unmarshal(env.Value, &msg); err != nil {
		return msg, fmt.Errorf("bad %s value: %w", env.Type, err)
	}
	return msg, nil
}

// ---- Bank ----

type BankMintTx struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

type BankSendTx struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// ---- Auth ----

type AuthRegisterAccountTx struct {
	Account string `json:"account"`
	PubKey  []byte `json:"pubKey"` // base64 (32 bytes)
}

// ---- Blackjack ----

type CreateTableTx struct {
	Authority string `json:"authority"`
}

type FundVaultTx struct {
	Funder string `json:"funder"`
	Amount uint64 `json:"amount"`
}

type NewBetTx struct {
	Player string `json:"player"`
	Bet    uint64 `json:"bet"`
}

type FulfillRandomnessTx struct {
	GameID     uint64 `json:"gameId"`
	Randomness []byte `json:"randomness"` // base64 (32 bytes)
}

// PlayerActionTx is the value of hit_player, stand_player and settle.
type PlayerActionTx struct {
	GameID uint64 `json:"gameId"`
	Player string `json:"player"`
}

// DealerActionTx is the value of hit_dealer, stand_dealer and play_dealer.
type DealerActionTx struct {
	GameID uint64 `json:"gameId"`
}
