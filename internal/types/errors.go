package types

import errorsmod "cosmossdk.io/errors"

// x/blackjack sentinel errors. Codes are part of the ABCI surface; never reuse
// a retired code.
var (
	ErrInvalidBet         = errorsmod.Register(ModuleName, 1, "invalid bet amount")
	ErrVaultInsufficient  = errorsmod.Register(ModuleName, 2, "vault has insufficient lamports")
	ErrBadState           = errorsmod.Register(ModuleName, 3, "bad game state for this action")
	ErrNotPlayer          = errorsmod.Register(ModuleName, 4, "not player")
	ErrRngExhausted       = errorsmod.Register(ModuleName, 5, "randomness exhausted")
	ErrDeckExhausted      = errorsmod.Register(ModuleName, 6, "deck exhausted")
	ErrAlreadyInitialized = errorsmod.Register(ModuleName, 7, "table already initialized")
	ErrTableNotFound      = errorsmod.Register(ModuleName, 8, "table not initialized")
	ErrGameNotFound       = errorsmod.Register(ModuleName, 9, "game not found")
	ErrUnauthorized       = errorsmod.Register(ModuleName, 10, "unauthorized")
	ErrInsufficientFunds  = errorsmod.Register(ModuleName, 11, "insufficient funds")
	ErrInvalidRequest     = errorsmod.Register(ModuleName, 12, "invalid request")
	ErrOverflow           = errorsmod.Register(ModuleName, 13, "amount overflows uint64")
)
