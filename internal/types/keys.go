package types

const (
	// ModuleName is also the ABCI codespace of every registered error.
	ModuleName = "blackjack"

	// VaultAddress is the ledger address of the pooled bankroll.
	VaultAddress = "vault"

	// RNGBytes is the size of the per-game randomness buffer.
	RNGBytes = 32
)
