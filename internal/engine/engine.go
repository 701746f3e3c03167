// Package engine owns every mutation of blackjack games and the vault.
//
// Each game transition runs under an exclusive per-game lock and is computed
// on a private copy of the game. Ledger effects (vault, player accounts) are
// validated first and then applied together with the new game record under
// the engine's state lock, so a failed call leaves nothing behind.
package engine

import (
	"context"
	"fmt"
	"sync"

	"cosmossdk.io/log"

	"onchainblackjack/internal/state"
	"onchainblackjack/internal/types"
)

type Engine struct {
	logger log.Logger

	mu sync.RWMutex // guards st
	st *state.State

	locksMu sync.Mutex
	locks   map[uint64]*sync.Mutex
}

func New(st *state.State, logger log.Logger) *Engine {
	if st == nil {
		st = state.NewState()
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Engine{
		logger: logger.With("module", "x/"+types.ModuleName),
		st:     st,
		locks:  map[uint64]*sync.Mutex{},
	}
}

func (e *Engine) Logger() log.Logger {
	return e.logger
}

// Hook is extra work committed together with an operation, such as recording
// the nonce of the tx that requested it. Hooks run under the state lock after
// the operation's own checks pass. A failing hook aborts the operation and
// must leave st untouched.
type Hook func(st *state.State) error

// runHooks must be called with e.mu held.
func (e *Engine) runHooks(hooks []Hook) error {
	for _, h := range hooks {
		if h == nil {
			continue
		}
		if err := h(e.st); err != nil {
			return err
		}
	}
	return nil
}

// lockGame takes the exclusive lock for one game and returns its release.
func (e *Engine) lockGame(id uint64) func() {
	e.locksMu.Lock()
	l, ok := e.locks[id]
	if !ok {
		l = &sync.Mutex{}
		e.locks[id] = l
	}
	e.locksMu.Unlock()

	l.Lock()
	return l.Unlock
}

// ---- Whole-state access (ABCI bookkeeping, bank, queries) ----

func (e *Engine) Height() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.st.Height
}

func (e *Engine) SetHeight(h int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.st.Height = h
}

func (e *Engine) AppHash() []byte {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.st.AppHash()
}

// View runs fn with read access to the state. fn must not retain st.
func (e *Engine) View(fn func(st *state.State) error) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return fn(e.st)
}

// Update runs fn against a staged copy of the state and commits the copy only
// if fn succeeds.
func (e *Engine) Update(fn func(st *state.State) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	staged, err := e.st.Clone()
	if err != nil {
		return err
	}
	if err := fn(staged); err != nil {
		return err
	}
	e.st = staged
	return nil
}

// Save persists the current state.
func (e *Engine) Save(store *state.Store) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return store.Save(e.st)
}

// ---- Read side ----

func (e *Engine) Table() (state.Table, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.st.Table == nil {
		return state.Table{}, types.ErrTableNotFound
	}
	return *e.st.Table, nil
}

func (e *Engine) Vault() (state.Vault, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.st.Vault == nil {
		return state.Vault{}, types.ErrTableNotFound
	}
	return *e.st.Vault, nil
}

func (e *Engine) Balance(addr string) uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.st.Balance(addr)
}

func (e *Engine) Game(id uint64) (state.Game, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	g, ok := e.st.Games[id]
	if !ok {
		return state.Game{}, types.ErrGameNotFound.Wrapf("game %d", id)
	}
	return *g.Clone(), nil
}

// Games returns every game ordered by id.
func (e *Engine) Games() []state.Game {
	e.mu.RLock()
	defer e.mu.RUnlock()
	sorted := e.st.SortedGames()
	out := make([]state.Game, 0, len(sorted))
	for _, g := range sorted {
		out = append(out, *g.Clone())
	}
	return out
}

func checkCtx(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	return nil
}
