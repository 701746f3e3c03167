package engine

import (
	"context"

	"onchainblackjack/internal/state"
	"onchainblackjack/internal/types"
)

// CreateTable initializes the singleton table and its empty vault. It fails
// with ErrAlreadyInitialized on every call after the first.
func (e *Engine) CreateTable(ctx context.Context, authority string, hooks ...Hook) (state.Table, error) {
	if err := checkCtx(ctx); err != nil {
		return state.Table{}, err
	}
	if authority == "" {
		return state.Table{}, types.ErrInvalidRequest.Wrap("missing authority")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.st.Table != nil {
		return state.Table{}, types.ErrAlreadyInitialized.Wrapf("table authority is %s", e.st.Table.Authority)
	}
	if err := e.runHooks(hooks); err != nil {
		return state.Table{}, err
	}
	e.st.Table = &state.Table{
		Authority:     authority,
		Vault:         types.VaultAddress,
		CreatedHeight: e.st.Height,
	}
	e.st.Vault = &state.Vault{Address: types.VaultAddress}

	e.logger.Info("table created", "authority", authority, "vault", types.VaultAddress)
	return *e.st.Table, nil
}

// FundVault moves amount from the authority's account into the vault and
// returns the new vault balance.
func (e *Engine) FundVault(ctx context.Context, funder string, amount uint64, hooks ...Hook) (uint64, error) {
	if err := checkCtx(ctx); err != nil {
		return 0, err
	}
	if amount == 0 {
		return 0, types.ErrInvalidRequest.Wrap("amount must be positive")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.st.Table == nil {
		return 0, types.ErrTableNotFound
	}
	if funder != e.st.Table.Authority {
		return 0, types.ErrUnauthorized.Wrapf("only the table authority may fund the vault, got %q", funder)
	}
	if bal := e.st.Balance(funder); bal < amount {
		return 0, types.ErrInsufficientFunds.Wrapf("%s: have=%d need=%d", funder, bal, amount)
	}
	if err := e.st.Vault.CanCredit(amount); err != nil {
		return 0, err
	}

	if err := e.runHooks(hooks); err != nil {
		return 0, err
	}
	if err := e.st.Debit(funder, amount); err != nil {
		return 0, err
	}
	e.st.Vault.Balance += amount

	e.logger.Info("vault funded", "funder", funder, "amount", amount, "balance", e.st.Vault.Balance)
	return e.st.Vault.Balance, nil
}
