package creator

import (
	"fmt"
	"log/slog"

	"github.com/holiman/uint256"

	marketerrors "justfriends/core/errors"
	"justfriends/core/events"
	"justfriends/native/curve"
)

// genesisUnits is minted to the creator on post and can never be sold.
const genesisUnits uint64 = 1

// Post registers content under hash for caller, allocates the next access
// unit id and mints the genesis unit to the creator.
func (e *Engine) Post(caller [20]byte, hash [32]byte, basePrice *uint256.Int, isPaid bool, height uint64) (*Content, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if hash == ([32]byte{}) {
		return nil, fmt.Errorf("%w: empty content hash", marketerrors.ErrInvalidContent)
	}
	if basePrice == nil {
		basePrice = new(uint256.Int)
	}
	if err := curve.ValidateBasePrice(basePrice); err != nil {
		return nil, err
	}
	if isPaid && basePrice.IsZero() {
		return nil, fmt.Errorf("%w: paid content needs a positive base price", marketerrors.ErrInvalidContent)
	}
	if _, ok, err := e.state.CreatorContentGet(hash); err != nil {
		return nil, err
	} else if ok {
		return nil, fmt.Errorf("%w: %x already posted", marketerrors.ErrInvalidContent, hash)
	}
	if _, err := e.board.Touch(caller, height); err != nil {
		return nil, err
	}
	unitID, err := e.state.CreatorNextAccessUnitID()
	if err != nil {
		return nil, err
	}
	content := &Content{
		Hash:         hash,
		Creator:      caller,
		AccessUnitID: unitID,
		BasePrice:    new(uint256.Int).Set(basePrice),
		IsPaid:       isPaid,
		Revenue:      new(uint256.Int),
		PostedAt:     height,
	}
	if err := e.state.CreatorContentPut(content); err != nil {
		return nil, err
	}
	if err := e.state.CreatorAccessBalancePut(unitID, caller, genesisUnits); err != nil {
		return nil, err
	}
	e.logger.Debug("content posted",
		slog.String("hash", fmt.Sprintf("%x", hash)),
		slog.Uint64("accessUnitId", unitID),
		slog.Bool("paid", isPaid))
	e.emit(events.ContentCreated{
		Hash:         hash,
		Creator:      caller,
		BasePrice:    new(uint256.Int).Set(basePrice),
		IsPaid:       isPaid,
		AccessUnitID: unitID,
	})
	return content.Clone(), nil
}
