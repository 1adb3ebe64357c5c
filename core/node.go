package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	marketerrors "justfriends/core/errors"
	"justfriends/core/events"
	"justfriends/core/state"
	"justfriends/native/creator"
	"justfriends/native/fees"
	"justfriends/native/loyalty"
	"justfriends/native/reputation"
	"justfriends/observability/metrics"
	"justfriends/observability/otel"
	"justfriends/storage"
)

const tracerName = "justfriends/core"

// Node is the central controller. It serialises requests and applies each
// one against a private write overlay that is committed in a single batch on
// success and dropped on failure. Events reach the node emitter only after
// the commit.
type Node struct {
	db      storage.Database
	params  creator.Params
	emitter events.Emitter
	logger  *slog.Logger
	metrics *metrics.MarketMetrics
	tracer  trace.Tracer

	stateMu sync.Mutex
}

// NewNode wires a node over db with immutable market parameters.
func NewNode(db storage.Database, params creator.Params) (*Node, error) {
	if db == nil {
		return nil, errors.New("node: database required")
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("node: %w", err)
	}
	return &Node{
		db:      db,
		params:  params,
		emitter: events.NoopEmitter{},
		logger:  slog.Default(),
		metrics: metrics.Market(),
		tracer:  otel.Tracer(tracerName),
	}, nil
}

// SetEmitter configures where committed events are delivered.
func (n *Node) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	n.emitter = emitter
}

// SetLogger overrides the logger.
func (n *Node) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	n.logger = logger
}

// Params returns the market parameters.
func (n *Node) Params() creator.Params { return n.params }

func (n *Node) newEngine(manager *state.Manager, emitter events.Emitter) *creator.Engine {
	engine := creator.NewEngine(n.params)
	engine.SetState(manager)
	engine.SetEmitter(emitter)
	engine.SetLogger(n.logger)
	return engine
}

// apply runs fn as one atomic request.
func (n *Node) apply(ctx context.Context, method string, fn func(*creator.Engine, *state.Manager) error) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	_, span := n.tracer.Start(ctx, method, trace.WithAttributes(attribute.String("jf.method", method)))
	defer span.End()
	started := time.Now()

	overlay := storage.NewOverlay(n.db)
	manager := state.NewManager(overlay)
	buffer := new(events.Buffer)

	err := fn(n.newEngine(manager, buffer), manager)
	if err == nil {
		span.SetAttributes(attribute.Int("jf.writes", overlay.Dirty()))
		err = overlay.Commit()
	}
	if err != nil {
		overlay.Discard()
		buffer.Reset()
		n.finish(span, method, started, err)
		return err
	}

	committed := buffer.Events()
	buffer.FlushTo(n.emitter)
	for _, evt := range committed {
		n.metrics.ObserveEvent(evt.EventType())
		if evt.EventType() == events.TypeLoyaltyEpochClosed {
			n.metrics.ObserveEpochClosed()
		}
	}
	span.SetAttributes(attribute.Int("jf.events", len(committed)))
	n.finish(span, method, started, nil)
	return nil
}

// view runs a read-only query against committed state.
func (n *Node) view(ctx context.Context, method string, fn func(*creator.Engine, *state.Manager) error) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	_, span := n.tracer.Start(ctx, method, trace.WithAttributes(attribute.String("jf.method", method)))
	defer span.End()
	started := time.Now()

	manager := state.NewManager(n.db)
	err := fn(n.newEngine(manager, events.NoopEmitter{}), manager)
	n.finish(span, method, started, err)
	return err
}

func (n *Node) finish(span trace.Span, method string, started time.Time, err error) {
	elapsed := time.Since(started)
	result := Outcome(err)
	n.metrics.ObserveRequest(method, result, elapsed)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
		n.logger.Warn("request rejected", "method", method, "outcome", result, "error", err)
		return
	}
	n.logger.Debug("request applied", "method", method, "elapsed", elapsed)
}

// Outcome classifies err into a short label for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, marketerrors.ErrInvalidContent):
		return "invalid_content"
	case errors.Is(err, marketerrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, marketerrors.ErrDuplicateVoting):
		return "duplicate_voting"
	case errors.Is(err, marketerrors.ErrInsufficientPayment):
		return "insufficient_payment"
	case errors.Is(err, marketerrors.ErrInsufficientAccess):
		return "insufficient_access"
	case errors.Is(err, marketerrors.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, marketerrors.ErrInvalidReaction):
		return "invalid_reaction"
	case errors.Is(err, marketerrors.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, marketerrors.ErrStaleEpoch):
		return "stale_epoch"
	case errors.Is(err, marketerrors.ErrPriceOutOfRange):
		return "price_out_of_range"
	default:
		return "internal"
	}
}

// ApplyGenesis credits the configured starting balances once. It reports
// whether the allocations were applied by this call.
func (n *Node) ApplyGenesis(ctx context.Context, balances map[[20]byte]*uint256.Int) (bool, error) {
	applied := false
	err := n.apply(ctx, "genesis", func(_ *creator.Engine, manager *state.Manager) error {
		done, err := manager.GenesisApplied()
		if err != nil || done {
			return err
		}
		addrs := make([][20]byte, 0, len(balances))
		for addr := range balances {
			addrs = append(addrs, addr)
		}
		sort.Slice(addrs, func(i, j int) bool {
			return string(addrs[i][:]) < string(addrs[j][:])
		})
		for _, addr := range addrs {
			if err := manager.Credit(addr, balances[addr]); err != nil {
				return err
			}
		}
		applied = true
		return manager.MarkGenesisApplied()
	})
	if err != nil {
		return false, err
	}
	if applied {
		n.logger.Info("genesis balances applied", "accounts", len(balances))
	}
	return applied, nil
}

// Post registers content for caller.
func (n *Node) Post(ctx context.Context, caller [20]byte, hash [32]byte, basePrice *uint256.Int, isPaid bool, height uint64) (*creator.Content, error) {
	var content *creator.Content
	err := n.apply(ctx, "post", func(engine *creator.Engine, _ *state.Manager) error {
		var err error
		content, err = engine.Post(caller, hash, basePrice, isPaid, height)
		return err
	})
	if err != nil {
		return nil, err
	}
	return content, nil
}

// Vote records caller's reaction on hash and returns the reaction it
// replaced.
func (n *Node) Vote(ctx context.Context, caller [20]byte, hash [32]byte, reaction reputation.Reaction, height uint64) (reputation.Reaction, error) {
	prev := reputation.None
	err := n.apply(ctx, "vote", func(engine *creator.Engine, _ *state.Manager) error {
		var err error
		prev, err = engine.Vote(caller, hash, reaction, height)
		return err
	})
	if err != nil {
		return reputation.None, err
	}
	return prev, nil
}

// BuyContentAccess mints amount units of hash to caller.
func (n *Node) BuyContentAccess(ctx context.Context, caller [20]byte, hash [32]byte, amount uint64, attached *uint256.Int, height uint64) (*creator.Receipt, error) {
	var receipt *creator.Receipt
	err := n.apply(ctx, "buy", func(engine *creator.Engine, _ *state.Manager) error {
		var err error
		receipt, err = engine.BuyContentAccess(caller, hash, amount, attached, height)
		return err
	})
	if err != nil {
		return nil, err
	}
	n.metrics.ObserveUnits("buy", amount)
	return receipt, nil
}

// SellContentAccess burns amount units of hash held by caller.
func (n *Node) SellContentAccess(ctx context.Context, caller [20]byte, hash [32]byte, amount uint64, height uint64) (*creator.Receipt, error) {
	var receipt *creator.Receipt
	err := n.apply(ctx, "sell", func(engine *creator.Engine, _ *state.Manager) error {
		var err error
		receipt, err = engine.SellContentAccess(caller, hash, amount, height)
		return err
	})
	if err != nil {
		return nil, err
	}
	n.metrics.ObserveUnits("sell", amount)
	return receipt, nil
}

// QuoteBuy prices a purchase of amount units at the current supply.
func (n *Node) QuoteBuy(ctx context.Context, hash [32]byte, amount uint64) (*creator.Quote, error) {
	var quote *creator.Quote
	err := n.view(ctx, "quoteBuy", func(engine *creator.Engine, _ *state.Manager) error {
		var err error
		quote, err = engine.QuoteBuy(hash, amount)
		return err
	})
	return quote, err
}

// QuoteSell prices a sale of amount units at the current supply.
func (n *Node) QuoteSell(ctx context.Context, hash [32]byte, amount uint64) (*creator.Quote, error) {
	var quote *creator.Quote
	err := n.view(ctx, "quoteSell", func(engine *creator.Engine, _ *state.Manager) error {
		var err error
		quote, err = engine.QuoteSell(hash, amount)
		return err
	})
	return quote, err
}

// GetBuyPrice returns what a buyer must attach for amount units.
func (n *Node) GetBuyPrice(ctx context.Context, hash [32]byte, amount uint64) (*uint256.Int, error) {
	var price *uint256.Int
	err := n.view(ctx, "getBuyPrice", func(engine *creator.Engine, _ *state.Manager) error {
		var err error
		price, err = engine.GetBuyPrice(hash, amount)
		return err
	})
	return price, err
}

// GetSellPrice returns what a seller receives for amount units.
func (n *Node) GetSellPrice(ctx context.Context, hash [32]byte, amount uint64) (*uint256.Int, error) {
	var price *uint256.Int
	err := n.view(ctx, "getSellPrice", func(engine *creator.Engine, _ *state.Manager) error {
		var err error
		price, err = engine.GetSellPrice(hash, amount)
		return err
	})
	return price, err
}

// Content returns the content registered under hash.
func (n *Node) Content(ctx context.Context, hash [32]byte) (*creator.Content, error) {
	var content *creator.Content
	err := n.view(ctx, "getContent", func(engine *creator.Engine, _ *state.Manager) error {
		var err error
		content, err = engine.Content(hash)
		return err
	})
	return content, err
}

// ContentByCreator lists the hashes posted by addr in posting order.
func (n *Node) ContentByCreator(ctx context.Context, addr [20]byte) ([][32]byte, error) {
	var hashes [][32]byte
	err := n.view(ctx, "listContent", func(_ *creator.Engine, manager *state.Manager) error {
		var err error
		hashes, err = manager.CreatorContentList(addr)
		return err
	})
	return hashes, err
}

// BalanceOf returns holder's units of the access unit.
func (n *Node) BalanceOf(ctx context.Context, unitID uint64, holder [20]byte) (uint64, error) {
	var balance uint64
	err := n.view(ctx, "balanceOf", func(engine *creator.Engine, _ *state.Manager) error {
		var err error
		balance, err = engine.BalanceOf(unitID, holder)
		return err
	})
	return balance, err
}

// Reaction returns voter's current reaction on hash.
func (n *Node) Reaction(ctx context.Context, voter [20]byte, hash [32]byte) (reputation.Reaction, error) {
	reaction := reputation.None
	err := n.view(ctx, "getReaction", func(engine *creator.Engine, _ *state.Manager) error {
		var err error
		reaction, err = engine.Reaction(voter, hash)
		return err
	})
	return reaction, err
}

// LoyaltyRecord returns fan's score toward creator in epoch.
func (n *Node) LoyaltyRecord(ctx context.Context, fan, author [20]byte, epoch uint64) (*loyalty.Record, error) {
	var record *loyalty.Record
	err := n.view(ctx, "getLoyaltyRecord", func(engine *creator.Engine, _ *state.Manager) error {
		var err error
		record, err = engine.LoyaltyRecord(fan, author, epoch)
		return err
	})
	return record, err
}

// Leaders returns the creator's top fans for epoch in rank order.
func (n *Node) Leaders(ctx context.Context, author [20]byte, epoch uint64) ([][20]byte, error) {
	var leaders [][20]byte
	err := n.view(ctx, "getLeaders", func(engine *creator.Engine, _ *state.Manager) error {
		var err error
		leaders, err = engine.Leaders(author, epoch)
		return err
	})
	return leaders, err
}

// EpochLedger returns the creator's ledger for epoch.
func (n *Node) EpochLedger(ctx context.Context, author [20]byte, epoch uint64) (*loyalty.EpochLedger, error) {
	var ledger *loyalty.EpochLedger
	err := n.view(ctx, "getEpochLedger", func(engine *creator.Engine, _ *state.Manager) error {
		var err error
		ledger, err = engine.EpochLedger(author, epoch)
		return err
	})
	return ledger, err
}

// CurrentEpoch returns the epoch currently open for the creator.
func (n *Node) CurrentEpoch(ctx context.Context, author [20]byte) (uint64, bool, error) {
	var (
		current uint64
		open    bool
	)
	err := n.view(ctx, "currentEpoch", func(engine *creator.Engine, _ *state.Manager) error {
		var err error
		current, open, err = engine.CurrentEpoch(author)
		return err
	})
	return current, open, err
}

// EpochAt maps a height onto its epoch index.
func (n *Node) EpochAt(height uint64) uint64 { return n.params.Epochs.Index(height) }

// Balance returns the spendable balance of addr.
func (n *Node) Balance(ctx context.Context, addr [20]byte) (*uint256.Int, error) {
	var balance *uint256.Int
	err := n.view(ctx, "getBalance", func(engine *creator.Engine, _ *state.Manager) error {
		var err error
		balance, err = engine.Balance(addr)
		return err
	})
	return balance, err
}

// FeeTotals returns the fees routed to wallet.
func (n *Node) FeeTotals(ctx context.Context, wallet [20]byte) (*fees.Totals, error) {
	var totals *fees.Totals
	err := n.view(ctx, "getFeeTotals", func(engine *creator.Engine, _ *state.Manager) error {
		var err error
		totals, err = engine.FeeTotals(wallet)
		return err
	})
	return totals, err
}
