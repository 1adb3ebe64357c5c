package loyalty

import (
	"errors"
	"fmt"
	"log/slog"
	"math/bits"

	"github.com/holiman/uint256"

	"justfriends/core/epoch"
	marketerrors "justfriends/core/errors"
	"justfriends/core/events"
)

var (
	errNilState     = errors.New("loyalty board: state not configured")
	errScoreOverrun = errors.New("loyalty board: score overflow")
)

// DefaultLeaderboardSize is the launch top fan count.
const DefaultLeaderboardSize = 3

type boardState interface {
	LoyaltyRecordGet(fan, creator [20]byte, epoch uint64) (*Record, bool, error)
	LoyaltyRecordPut(record *Record) error
	LoyaltyLedgerGet(creator [20]byte, epoch uint64) (*EpochLedger, bool, error)
	LoyaltyLedgerPut(ledger *EpochLedger) error
	LoyaltyCursorGet(creator [20]byte) (*Cursor, bool, error)
	LoyaltyCursorPut(cursor *Cursor) error
}

// Board maintains per creator, per epoch loyalty scores and the bounded
// leader list. Epoch rollover happens lazily on the first request for a
// creator that observes a later epoch.
type Board struct {
	state   boardState
	emitter events.Emitter
	epochs  epoch.Config
	size    int
	logger  *slog.Logger
}

// NewBoard constructs a board for the supplied epoch configuration and leader
// list capacity.
func NewBoard(epochs epoch.Config, size int) *Board {
	if size <= 0 {
		size = DefaultLeaderboardSize
	}
	return &Board{
		emitter: events.NoopEmitter{},
		epochs:  epochs,
		size:    size,
		logger:  slog.Default(),
	}
}

// SetState configures the state backend used by the board.
func (b *Board) SetState(state boardState) { b.state = state }

// SetEmitter configures the event emitter used by the board.
func (b *Board) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		b.emitter = events.NoopEmitter{}
		return
	}
	b.emitter = emitter
}

// SetLogger overrides the logger.
func (b *Board) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	b.logger = logger
}

// Size returns the leader list capacity.
func (b *Board) Size() int { return b.size }

// EpochAt returns the epoch index for height.
func (b *Board) EpochAt(height uint64) uint64 { return b.epochs.Index(height) }

func (b *Board) emit(evt events.Event) {
	if b == nil || evt == nil || b.emitter == nil {
		return
	}
	b.emitter.Emit(evt)
}

// Touch rolls the creator forward to the epoch containing height and returns
// the open ledger. The previously open ledger is closed exactly once.
func (b *Board) Touch(creator [20]byte, height uint64) (*EpochLedger, error) {
	if b == nil || b.state == nil {
		return nil, errNilState
	}
	current := b.epochs.Index(height)
	cursor, ok, err := b.state.LoyaltyCursorGet(creator)
	if err != nil {
		return nil, err
	}
	if ok && cursor != nil {
		switch {
		case current < cursor.Epoch:
			return nil, fmt.Errorf("%w: height %d maps to epoch %d, creator is at %d", marketerrors.ErrStaleEpoch, height, current, cursor.Epoch)
		case current == cursor.Epoch:
			ledger, found, err := b.state.LoyaltyLedgerGet(creator, current)
			if err != nil {
				return nil, err
			}
			if found && ledger != nil {
				return ledger, nil
			}
		default:
			if err := b.close(creator, cursor.Epoch); err != nil {
				return nil, err
			}
		}
	}
	ledger := newLedger(creator, current)
	if err := b.state.LoyaltyLedgerPut(ledger); err != nil {
		return nil, err
	}
	if err := b.state.LoyaltyCursorPut(&Cursor{Creator: creator, Epoch: current}); err != nil {
		return nil, err
	}
	return ledger, nil
}

func (b *Board) close(creator [20]byte, epochIndex uint64) error {
	prev, found, err := b.state.LoyaltyLedgerGet(creator, epochIndex)
	if err != nil {
		return err
	}
	if !found || prev == nil || prev.IsClosed {
		return nil
	}
	prev.IsClosed = true
	if err := b.state.LoyaltyLedgerPut(prev); err != nil {
		return err
	}
	b.logger.Debug("loyalty epoch closed",
		slog.String("creator", fmt.Sprintf("%x", creator)),
		slog.Uint64("epoch", epochIndex),
		slog.String("revenue", prev.Revenue.Dec()))
	b.emit(events.LoyaltyEpochClosed{
		Creator: creator,
		Epoch:   epochIndex,
		Revenue: new(uint256.Int).Set(prev.Revenue),
		Leaders: len(prev.Leaders),
	})
	return nil
}

// Award adds points to fan's score toward creator in the epoch containing
// height and re-ranks the leader list.
func (b *Board) Award(creator, fan [20]byte, points uint64, height uint64) (*Record, error) {
	ledger, err := b.Touch(creator, height)
	if err != nil {
		return nil, err
	}
	record, ok, err := b.state.LoyaltyRecordGet(fan, creator, ledger.Epoch)
	if err != nil {
		return nil, err
	}
	if !ok || record == nil {
		record = &Record{Fan: fan, Creator: creator, Epoch: ledger.Epoch}
	}
	score, carry := bits.Add64(record.Score, points, 0)
	if carry != 0 {
		return nil, errScoreOverrun
	}
	record.Score = score
	if err := b.state.LoyaltyRecordPut(record); err != nil {
		return nil, err
	}
	var rank int
	ledger.Leaders, rank = Reposition(ledger.Leaders, fan, score, b.size)
	if err := b.state.LoyaltyLedgerPut(ledger); err != nil {
		return nil, err
	}
	b.emit(events.LoyaltyAwarded{
		Creator: creator,
		Fan:     fan,
		Epoch:   ledger.Epoch,
		Points:  points,
		Score:   score,
		Rank:    rank,
	})
	return record.Clone(), nil
}

// AddRevenue accumulates curve revenue into the creator's open epoch.
func (b *Board) AddRevenue(creator [20]byte, amount *uint256.Int, height uint64) (*EpochLedger, error) {
	ledger, err := b.Touch(creator, height)
	if err != nil {
		return nil, err
	}
	if amount == nil || amount.IsZero() {
		return ledger.Clone(), nil
	}
	sum, overflow := new(uint256.Int).AddOverflow(ledger.Revenue, amount)
	if overflow {
		return nil, fmt.Errorf("%w: epoch revenue overflow", marketerrors.ErrPriceOutOfRange)
	}
	ledger.Revenue = sum
	if err := b.state.LoyaltyLedgerPut(ledger); err != nil {
		return nil, err
	}
	return ledger.Clone(), nil
}

// Record returns the loyalty record for (fan, creator, epoch).
func (b *Board) Record(fan, creator [20]byte, epochIndex uint64) (*Record, error) {
	if b == nil || b.state == nil {
		return nil, errNilState
	}
	record, ok, err := b.state.LoyaltyRecordGet(fan, creator, epochIndex)
	if err != nil {
		return nil, err
	}
	if !ok || record == nil {
		return &Record{Fan: fan, Creator: creator, Epoch: epochIndex}, nil
	}
	return record, nil
}

// Ledger returns the epoch ledger for (creator, epoch). A never opened epoch
// yields an empty ledger that is closed when it lies before the creator's
// open epoch and open otherwise.
func (b *Board) Ledger(creator [20]byte, epochIndex uint64) (*EpochLedger, error) {
	if b == nil || b.state == nil {
		return nil, errNilState
	}
	ledger, ok, err := b.state.LoyaltyLedgerGet(creator, epochIndex)
	if err != nil {
		return nil, err
	}
	if ok && ledger != nil {
		return ledger, nil
	}
	empty := newLedger(creator, epochIndex)
	cursor, found, err := b.state.LoyaltyCursorGet(creator)
	if err != nil {
		return nil, err
	}
	if found && cursor != nil && epochIndex < cursor.Epoch {
		empty.IsClosed = true
	}
	return empty, nil
}

// Leaders returns the leader identities for (creator, epoch) in rank order.
func (b *Board) Leaders(creator [20]byte, epochIndex uint64) ([][20]byte, error) {
	ledger, err := b.Ledger(creator, epochIndex)
	if err != nil {
		return nil, err
	}
	return ledger.Fans(), nil
}

// Cursor returns the epoch currently open for creator. ok is false when the
// creator has never been touched.
func (b *Board) Cursor(creator [20]byte) (uint64, bool, error) {
	if b == nil || b.state == nil {
		return 0, false, errNilState
	}
	cursor, ok, err := b.state.LoyaltyCursorGet(creator)
	if err != nil || !ok || cursor == nil {
		return 0, false, err
	}
	return cursor.Epoch, true, nil
}
