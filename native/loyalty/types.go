package loyalty

import "github.com/holiman/uint256"

// Record is a fan's loyalty score toward one creator within one epoch.
// Records from earlier epochs are never touched again.
type Record struct {
	Fan     [20]byte
	Creator [20]byte
	Epoch   uint64
	Score   uint64
	// Claimed is reserved for a future payout workflow and always false.
	Claimed bool
}

// Clone returns a copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := *r
	return &clone
}

// Leader is one slot of an epoch's leader list.
type Leader struct {
	Fan   [20]byte
	Score uint64
}

// EpochLedger tracks a creator's revenue and top fans for one epoch.
type EpochLedger struct {
	Creator  [20]byte
	Epoch    uint64
	Revenue  *uint256.Int
	IsClosed bool
	Leaders  []Leader
}

// Clone returns a deep copy of the ledger.
func (l *EpochLedger) Clone() *EpochLedger {
	if l == nil {
		return nil
	}
	clone := *l
	clone.Revenue = new(uint256.Int)
	if l.Revenue != nil {
		clone.Revenue.Set(l.Revenue)
	}
	clone.Leaders = append([]Leader(nil), l.Leaders...)
	return &clone
}

// Fans returns the leader identities in rank order.
func (l *EpochLedger) Fans() [][20]byte {
	if l == nil {
		return nil
	}
	out := make([][20]byte, len(l.Leaders))
	for i, leader := range l.Leaders {
		out[i] = leader.Fan
	}
	return out
}

// Cursor remembers the epoch currently open for a creator.
type Cursor struct {
	Creator [20]byte
	Epoch   uint64
}

func newLedger(creator [20]byte, epoch uint64) *EpochLedger {
	return &EpochLedger{
		Creator: creator,
		Epoch:   epoch,
		Revenue: new(uint256.Int),
		Leaders: []Leader{},
	}
}
