package errors

import stderrors "errors"

// Rejections surfaced by the marketplace. Every one aborts the whole request.
var (
	ErrInvalidContent      = stderrors.New("market: invalid content")
	ErrNotFound            = stderrors.New("market: content not found")
	ErrDuplicateVoting     = stderrors.New("market: duplicate voting")
	ErrInsufficientPayment = stderrors.New("market: insufficient payment")
	ErrInsufficientAccess  = stderrors.New("market: insufficient access")
)

var (
	ErrInvalidAmount     = stderrors.New("market: amount must be positive")
	ErrInvalidReaction   = stderrors.New("market: invalid reaction")
	ErrInsufficientFunds = stderrors.New("market: insufficient balance")
	ErrStaleEpoch        = stderrors.New("market: epoch already closed")
	ErrPriceOutOfRange   = stderrors.New("market: price or supply out of range")
)
