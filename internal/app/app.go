package app

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	abci "github.com/cometbft/cometbft/abci/types"

	"onchainblackjack/internal/codec"
	"onchainblackjack/internal/engine"
	"onchainblackjack/internal/state"
	"onchainblackjack/internal/types"
)

const (
	AppVersion uint64 = 1
)

type BlackjackApp struct {
	*abci.BaseApplication

	logger log.Logger
	store  *state.Store

	// mu serializes block execution, commits and queries.
	mu       sync.Mutex
	eng      *engine.Engine
	lastHash []byte
}

// New opens the application database under <home>/data.
func New(home string, logger log.Logger) (*BlackjackApp, error) {
	store, err := state.OpenStore(filepath.Join(home, "data"))
	if err != nil {
		return nil, err
	}
	return NewWithStore(store, logger)
}

func NewWithStore(store *state.Store, logger log.Logger) (*BlackjackApp, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	st, err := store.Load()
	if err != nil {
		return nil, err
	}
	eng := engine.New(st, logger)
	return &BlackjackApp{
		BaseApplication: abci.NewBaseApplication(),
		logger:          logger.With("module", "abci"),
		store:           store,
		eng:             eng,
		lastHash:        eng.AppHash(),
	}, nil
}

func (a *BlackjackApp) Engine() *engine.Engine { return a.eng }

func (a *BlackjackApp) Close() error { return a.store.Close() }

func (a *BlackjackApp) Info(_ context.Context, _ *abci.InfoRequest) (*abci.InfoResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return &abci.InfoResponse{
		Data:             "blackjack",
		Version:          "v0",
		AppVersion:       AppVersion,
		LastBlockHeight:  a.eng.Height(),
		LastBlockAppHash: a.lastHash,
	}, nil
}

func (a *BlackjackApp) CheckTx(_ context.Context, req *abci.CheckTxRequest) (*abci.CheckTxResponse, error) {
	env, err := codec.DecodeTxEnvelope(req.Tx)
	if err == nil && !knownTxType(env.Type) {
		err = types.ErrInvalidRequest.Wrapf("unknown tx type: %s", env.Type)
	}
	if err != nil {
		codespace, code, logMsg := abciInfo(err)
		return &abci.CheckTxResponse{Codespace: codespace, Code: code, Log: logMsg}, nil
	}
	// Only structural validation; auth and state checks run in FinalizeBlock.
	return &abci.CheckTxResponse{Code: 0}, nil
}

func (a *BlackjackApp) InitChain(_ context.Context, req *abci.InitChainRequest) (*abci.InitChainResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.initGenesis(req.AppStateBytes); err != nil {
		return nil, err
	}
	a.lastHash = a.eng.AppHash()
	return &abci.InitChainResponse{AppHash: a.lastHash}, nil
}

func (a *BlackjackApp) FinalizeBlock(_ context.Context, req *abci.FinalizeBlockRequest) (*abci.FinalizeBlockResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.eng.SetHeight(req.Height)

	txResults := make([]*abci.ExecTxResult, 0, len(req.Txs))
	failed := 0
	for _, txBytes := range req.Txs {
		res := a.deliverTx(txBytes, req.Height)
		if res.Code != 0 {
			failed++
		}
		txResults = append(txResults, res)
	}

	a.lastHash = a.eng.AppHash()
	a.logger.Debug("finalized block", "height", req.Height, "txs", len(req.Txs), "failed", failed)

	return &abci.FinalizeBlockResponse{
		TxResults: txResults,
		AppHash:   a.lastHash,
	}, nil
}

func (a *BlackjackApp) Commit(_ context.Context, _ *abci.CommitRequest) (*abci.CommitResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Persist after each block; returning the error halts the node loudly.
	if err := a.eng.Save(a.store); err != nil {
		a.logger.Error("commit failed", "height", a.eng.Height(), "err", err)
		return nil, err
	}
	return &abci.CommitResponse{}, nil
}

// Query paths:
//   - /table
//   - /vault
//   - /games
//   - /game/<id>
//   - /account/<addr>
func (a *BlackjackApp) Query(_ context.Context, req *abci.QueryRequest) (*abci.QueryResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	height := a.eng.Height()
	path := strings.TrimSpace(req.Path)

	var (
		v   any
		err error
	)
	switch {
	case path == "/table":
		v, err = a.eng.Table()
	case path == "/vault":
		v, err = a.eng.Vault()
	case path == "/games":
		games := a.eng.Games()
		views := make([]gameView, 0, len(games))
		for _, g := range games {
			views = append(views, newGameView(g))
		}
		v = views
	case strings.HasPrefix(path, "/game/"):
		raw := strings.TrimPrefix(path, "/game/")
		id, perr := strconv.ParseUint(raw, 10, 64)
		if perr != nil {
			err = types.ErrInvalidRequest.Wrapf("invalid game id %q", raw)
			break
		}
		var g state.Game
		if g, err = a.eng.Game(id); err == nil {
			v = newGameView(g)
		}
	case strings.HasPrefix(path, "/account/"):
		addr := strings.TrimPrefix(path, "/account/")
		v = a.accountView(addr)
	default:
		err = types.ErrInvalidRequest.Wrapf("unknown query path %q", path)
	}
	if err != nil {
		codespace, code, logMsg := abciInfo(err)
		return &abci.QueryResponse{Codespace: codespace, Code: code, Log: logMsg, Height: height}, nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &abci.QueryResponse{Code: 0, Value: b, Height: height}, nil
}

// gameView is the query encoding of a game: every stored field plus derived
// hand totals.
type gameView struct {
	state.Game
	PlayerTotal int `json:"playerTotal"`
	DealerTotal int `json:"dealerTotal"`
}

func newGameView(g state.Game) gameView {
	return gameView{Game: g, PlayerTotal: g.PlayerTotal(), DealerTotal: g.DealerTotal()}
}

type accountView struct {
	Addr       string `json:"addr"`
	Balance    uint64 `json:"balance"`
	Registered bool   `json:"registered"`
	Nonce      uint64 `json:"nonce"`
}

func (a *BlackjackApp) accountView(addr string) accountView {
	out := accountView{Addr: addr}
	_ = a.eng.View(func(st *state.State) error {
		out.Balance = st.Balance(addr)
		out.Registered = len(st.AccountKeys[addr]) != 0
		out.Nonce = st.NonceMax[addr]
		return nil
	})
	return out
}

// abciInfo maps an error to its ABCI codespace, code and log. Unregistered
// errors are reported with their message rather than redacted.
func abciInfo(err error) (string, uint32, string) {
	codespace, code, logMsg := errorsmod.ABCIInfo(err, false)
	if codespace == errorsmod.UndefinedCodespace {
		logMsg = err.Error()
	}
	return codespace, code, logMsg
}

func errResult(err error) *abci.ExecTxResult {
	codespace, code, logMsg := abciInfo(err)
	return &abci.ExecTxResult{Codespace: codespace, Code: code, Log: logMsg}
}
