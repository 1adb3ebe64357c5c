package creator

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/holiman/uint256"

	marketerrors "justfriends/core/errors"
	"justfriends/core/events"
	"justfriends/core/types"
	"justfriends/native/fees"
	"justfriends/native/loyalty"
	"justfriends/native/reputation"
)

var errNilState = errors.New("creator engine: state not configured")

type engineState interface {
	CreatorContentGet(hash [32]byte) (*Content, bool, error)
	CreatorContentPut(content *Content) error
	CreatorNextAccessUnitID() (uint64, error)
	CreatorAccessBalanceGet(unitID uint64, holder [20]byte) (uint64, error)
	CreatorAccessBalancePut(unitID uint64, holder [20]byte, balance uint64) error
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, account *types.Account) error
	FeesGetTotals(wallet [20]byte) (*fees.Totals, bool, error)
	FeesPutTotals(totals *fees.Totals) error

	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error

	LoyaltyRecordGet(fan, creator [20]byte, epoch uint64) (*loyalty.Record, bool, error)
	LoyaltyRecordPut(record *loyalty.Record) error
	LoyaltyLedgerGet(creator [20]byte, epoch uint64) (*loyalty.EpochLedger, bool, error)
	LoyaltyLedgerPut(ledger *loyalty.EpochLedger) error
	LoyaltyCursorGet(creator [20]byte) (*loyalty.Cursor, bool, error)
	LoyaltyCursorPut(cursor *loyalty.Cursor) error
}

// Engine applies marketplace requests: posting content, voting, and trading
// access units along each content's curve. Every request is expected to run
// against a state view that the caller commits or discards as a whole.
type Engine struct {
	params  Params
	state   engineState
	emitter events.Emitter
	logger  *slog.Logger

	board *loyalty.Board
	votes *reputation.Engine
}

// NewEngine constructs an engine for the supplied market parameters.
func NewEngine(params Params) *Engine {
	return &Engine{
		params:  params,
		emitter: events.NoopEmitter{},
		logger:  slog.Default(),
		board:   loyalty.NewBoard(params.Epochs, params.LeaderboardSize),
		votes:   reputation.NewEngine(nil),
	}
}

// Params returns the market parameters.
func (e *Engine) Params() Params { return e.params }

// SetState configures the state backend used by the engine and its
// collaborators.
func (e *Engine) SetState(state engineState) {
	e.state = state
	e.board.SetState(state)
	if state != nil {
		e.votes = reputation.NewEngine(state)
	} else {
		e.votes = reputation.NewEngine(nil)
	}
	e.votes.SetEmitter(e.emitter)
}

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
	e.board.SetEmitter(emitter)
	e.votes.SetEmitter(emitter)
}

// SetLogger overrides the logger.
func (e *Engine) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	e.logger = logger
	e.board.SetLogger(logger)
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return nil
}

func (e *Engine) loadContent(hash [32]byte) (*Content, error) {
	content, ok, err := e.state.CreatorContentGet(hash)
	if err != nil {
		return nil, err
	}
	if !ok || content == nil {
		return nil, fmt.Errorf("%w: %x", marketerrors.ErrNotFound, hash)
	}
	return content, nil
}

// Vote records caller's reaction on hash and credits the vote weight to the
// caller's loyalty toward the content's creator. Both up and down votes earn
// the same weight.
func (e *Engine) Vote(caller [20]byte, hash [32]byte, reaction reputation.Reaction, height uint64) (reputation.Reaction, error) {
	if err := e.ready(); err != nil {
		return reputation.None, err
	}
	content, err := e.loadContent(hash)
	if err != nil {
		return reputation.None, err
	}
	if !reaction.Valid() {
		return reputation.None, fmt.Errorf("%w: %s", marketerrors.ErrInvalidReaction, reaction)
	}
	if _, err := e.board.Touch(content.Creator, height); err != nil {
		return reputation.None, err
	}
	prev, err := e.votes.Vote(caller, hash, content.Creator, reaction)
	if err != nil {
		return prev, err
	}
	switch prev {
	case reputation.Upvote:
		content.Upvotes--
	case reputation.Downvote:
		content.Downvotes--
	}
	if reaction == reputation.Upvote {
		content.Upvotes++
	} else {
		content.Downvotes++
	}
	if err := e.state.CreatorContentPut(content); err != nil {
		return prev, err
	}
	if e.params.VoteLoyaltyWeight > 0 {
		if _, err := e.board.Award(content.Creator, caller, e.params.VoteLoyaltyWeight, height); err != nil {
			return prev, err
		}
	}
	return prev, nil
}

func (e *Engine) account(addr [20]byte) (*types.Account, error) {
	acc, err := e.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		acc = &types.Account{}
	}
	if acc.Balance == nil {
		acc.Balance = new(uint256.Int)
	}
	return acc, nil
}

// transfer moves amount between two accounts. Each side is loaded and
// written in turn so from == to is a no-op.
func (e *Engine) transfer(from, to [20]byte, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() || from == to {
		return nil
	}
	src, err := e.account(from)
	if err != nil {
		return err
	}
	if src.Balance.Lt(amount) {
		return fmt.Errorf("%w: %x holds %s, needs %s", marketerrors.ErrInsufficientFunds, from, src.Balance.Dec(), amount.Dec())
	}
	src.Balance = new(uint256.Int).Sub(src.Balance, amount)
	if err := e.state.PutAccount(from, src); err != nil {
		return err
	}
	dst, err := e.account(to)
	if err != nil {
		return err
	}
	sum, overflow := new(uint256.Int).AddOverflow(dst.Balance, amount)
	if overflow {
		return fmt.Errorf("%w: balance overflow for %x", marketerrors.ErrPriceOutOfRange, to)
	}
	dst.Balance = sum
	return e.state.PutAccount(to, dst)
}

func (e *Engine) recordFee(wallet [20]byte, split fees.Split, fee *uint256.Int) error {
	if fee == nil || fee.IsZero() {
		return nil
	}
	totals, ok, err := e.state.FeesGetTotals(wallet)
	if err != nil {
		return err
	}
	if !ok || totals == nil {
		totals = &fees.Totals{Wallet: wallet}
	}
	totals.Add(split, fee)
	return e.state.FeesPutTotals(totals)
}

// Balance returns the spendable account balance of addr.
func (e *Engine) Balance(addr [20]byte) (*uint256.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	acc, err := e.account(addr)
	if err != nil {
		return nil, err
	}
	return acc.Balance, nil
}

// Content returns the content registered under hash.
func (e *Engine) Content(hash [32]byte) (*Content, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.loadContent(hash)
}

// Reaction returns voter's current reaction on hash.
func (e *Engine) Reaction(voter [20]byte, hash [32]byte) (reputation.Reaction, error) {
	if err := e.ready(); err != nil {
		return reputation.None, err
	}
	return e.votes.Reaction(voter, hash)
}

// LoyaltyRecord returns fan's score toward creator in epoch.
func (e *Engine) LoyaltyRecord(fan, creator [20]byte, epoch uint64) (*loyalty.Record, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.board.Record(fan, creator, epoch)
}

// EpochLedger returns the creator's ledger for epoch.
func (e *Engine) EpochLedger(creator [20]byte, epoch uint64) (*loyalty.EpochLedger, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.board.Ledger(creator, epoch)
}

// Leaders returns the creator's top fans for epoch in rank order.
func (e *Engine) Leaders(creator [20]byte, epoch uint64) ([][20]byte, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.board.Leaders(creator, epoch)
}

// CurrentEpoch returns the epoch open for creator, if any.
func (e *Engine) CurrentEpoch(creator [20]byte) (uint64, bool, error) {
	if err := e.ready(); err != nil {
		return 0, false, err
	}
	return e.board.Cursor(creator)
}

// EpochAt maps a height onto its epoch index.
func (e *Engine) EpochAt(height uint64) uint64 { return e.board.EpochAt(height) }

// FeeTotals returns the fees routed to wallet so far.
func (e *Engine) FeeTotals(wallet [20]byte) (*fees.Totals, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	totals, ok, err := e.state.FeesGetTotals(wallet)
	if err != nil {
		return nil, err
	}
	if !ok || totals == nil {
		return &fees.Totals{Wallet: wallet, Gross: new(uint256.Int), Fee: new(uint256.Int)}, nil
	}
	return totals, nil
}
