package app

import (
	"bytes"
	"context"
	"encoding/json"

	"onchainblackjack/internal/state"
	"onchainblackjack/internal/types"
)

// Genesis is the optional app_state of the CometBFT genesis file.
type Genesis struct {
	// Accounts seeds ledger balances.
	Accounts map[string]uint64 `json:"accounts,omitempty"`
	// Authority, when set, creates the table at genesis.
	Authority string `json:"authority,omitempty"`
	// VaultFunding moves lamports from Authority into the vault.
	VaultFunding uint64 `json:"vaultFunding,omitempty"`
}

func (a *BlackjackApp) initGenesis(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var gen Genesis
	if err := json.Unmarshal(raw, &gen); err != nil {
		return types.ErrInvalidRequest.Wrapf("invalid genesis app_state: %v", err)
	}
	if gen.VaultFunding > 0 && gen.Authority == "" {
		return types.ErrInvalidRequest.Wrap("genesis vaultFunding requires an authority")
	}

	if err := a.eng.Update(func(st *state.State) error {
		for addr, bal := range gen.Accounts {
			if addr == "" {
				return types.ErrInvalidRequest.Wrap("genesis account with empty address")
			}
			if err := st.Credit(addr, bal); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}

	ctx := context.Background()
	if gen.Authority != "" {
		if _, err := a.eng.CreateTable(ctx, gen.Authority); err != nil {
			return err
		}
	}
	if gen.VaultFunding > 0 {
		if _, err := a.eng.FundVault(ctx, gen.Authority, gen.VaultFunding); err != nil {
			return err
		}
	}
	a.logger.Info("genesis applied", "accounts", len(gen.Accounts), "authority", gen.Authority, "vault", gen.VaultFunding)
	return nil
}
