package app

import (
	"crypto/ed25519"
	"crypto/sha256"
	"strconv"

	"onchainblackjack/internal/codec"
	"onchainblackjack/internal/state"
	"onchainblackjack/internal/types"
)

const txAuthDomainV0 = "bjd/tx/v0"

func txAuthSignBytesV0(typ string, value []byte, nonce string, signer string) []byte {
	// signBytes = DOMAIN || 0x00 || type || 0x00 || nonce || 0x00 || signer || 0x00 || sha256(value)
	sum := sha256.Sum256(value)
	out := make([]byte, 0, len(txAuthDomainV0)+1+len(typ)+1+len(nonce)+1+len(signer)+1+sha256.Size)
	out = append(out, []byte(txAuthDomainV0)...)
	out = append(out, 0)
	out = append(out, []byte(typ)...)
	out = append(out, 0)
	out = append(out, []byte(nonce)...)
	out = append(out, 0)
	out = append(out, []byte(signer)...)
	out = append(out, 0)
	out = append(out, sum[:]...)
	return out
}

func requireSignedEnvelope(env codec.TxEnvelope) error {
	if env.Nonce == "" {
		return types.ErrUnauthorized.Wrap("missing tx.nonce")
	}
	if env.Signer == "" {
		return types.ErrUnauthorized.Wrap("missing tx.signer")
	}
	if len(env.Sig) != ed25519.SignatureSize {
		return types.ErrUnauthorized.Wrapf("invalid tx.sig length: got %d want %d", len(env.Sig), ed25519.SignatureSize)
	}
	return nil
}

func verifyEnvelope(pub []byte, env codec.TxEnvelope) error {
	msg := txAuthSignBytesV0(env.Type, env.Value, env.Nonce, env.Signer)
	if !ed25519.Verify(ed25519.PublicKey(pub), msg, env.Sig) {
		return types.ErrUnauthorized.Wrap("invalid signature")
	}
	return nil
}

// requireRegisterAccountAuth checks a self-signed key registration: the
// envelope must verify under the key being registered.
func requireRegisterAccountAuth(st *state.State, env codec.TxEnvelope, msg codec.AuthRegisterAccountTx) error {
	if msg.Account == "" {
		return types.ErrInvalidRequest.Wrap("missing account")
	}
	if len(msg.PubKey) != ed25519.PublicKeySize {
		return types.ErrInvalidRequest.Wrapf("pubKey must be %d bytes", ed25519.PublicKeySize)
	}
	if err := requireSignedEnvelope(env); err != nil {
		return err
	}
	if env.Signer != msg.Account {
		return types.ErrUnauthorized.Wrapf("tx signer mismatch: signer=%q want=%q", env.Signer, msg.Account)
	}
	if existing := st.AccountKeys[msg.Account]; len(existing) != 0 {
		return types.ErrUnauthorized.Wrapf("account %q already has a pubKey", msg.Account)
	}
	if err := verifyEnvelope(msg.PubKey, env); err != nil {
		return err
	}
	_, err := nextNonce(st, env)
	return err
}

// requireAccountAuth checks that account signed env with its registered key
// and that the nonce has not been used.
func requireAccountAuth(st *state.State, env codec.TxEnvelope, account string) error {
	if account == "" {
		return types.ErrInvalidRequest.Wrap("missing account")
	}
	if err := requireSignedEnvelope(env); err != nil {
		return err
	}
	if env.Signer != account {
		return types.ErrUnauthorized.Wrapf("tx signer mismatch: signer=%q want=%q", env.Signer, account)
	}
	pub := st.AccountKeys[account]
	if len(pub) != ed25519.PublicKeySize {
		return types.ErrUnauthorized.Wrapf("account %q missing pubKey (auth/register_account required)", account)
	}
	if err := verifyEnvelope(pub, env); err != nil {
		return err
	}
	_, err := nextNonce(st, env)
	return err
}

// nextNonce parses env.Nonce and requires it to exceed the signer's last
// accepted nonce.
func nextNonce(st *state.State, env codec.TxEnvelope) (uint64, error) {
	n, err := strconv.ParseUint(env.Nonce, 10, 64)
	if err != nil {
		return 0, types.ErrUnauthorized.Wrapf("invalid tx.nonce %q", env.Nonce)
	}
	if last, ok := st.NonceMax[env.Signer]; ok && n <= last {
		return 0, types.ErrUnauthorized.Wrapf("replayed tx.nonce: got %d, last accepted %d", n, last)
	}
	return n, nil
}

func acceptNonce(st *state.State, env codec.TxEnvelope) error {
	n, err := nextNonce(st, env)
	if err != nil {
		return err
	}
	st.NonceMax[env.Signer] = n
	return nil
}
