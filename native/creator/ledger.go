package creator

import (
	"fmt"
	"log/slog"

	"github.com/holiman/uint256"

	marketerrors "justfriends/core/errors"
	"justfriends/core/events"
	"justfriends/native/curve"
)

// BalanceOf returns holder's units of accessUnitID.
func (e *Engine) BalanceOf(unitID uint64, holder [20]byte) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	return e.state.CreatorAccessBalanceGet(unitID, holder)
}

// sellable returns how many of holder's units can go back to the curve. The
// creator's genesis unit is excluded.
func sellable(content *Content, holder [20]byte, balance uint64) uint64 {
	if holder != content.Creator {
		return balance
	}
	if balance <= genesisUnits {
		return 0
	}
	return balance - genesisUnits
}

func (e *Engine) tradable(hash [32]byte, amount uint64) (*Content, error) {
	content, err := e.loadContent(hash)
	if err != nil {
		return nil, err
	}
	if !content.IsPaid {
		return nil, fmt.Errorf("%w: %x is not paid content", marketerrors.ErrInvalidContent, hash)
	}
	if amount == 0 {
		return nil, marketerrors.ErrInvalidAmount
	}
	return content, nil
}

func (e *Engine) quoteBuy(content *Content, amount uint64) (*Quote, error) {
	cost, err := curve.BuyCost(content.BasePrice, content.UnitsSold, amount)
	if err != nil {
		return nil, err
	}
	res := e.params.Fees.ApplyBuy(cost)
	return &Quote{
		Hash:         content.Hash,
		Amount:       amount,
		Supply:       content.UnitsSold,
		Gross:        res.Gross,
		ProtocolFee:  res.Protocol,
		CreatorFee:   res.Creator,
		LoyaltyShare: res.Extra,
		Settlement:   res.Total,
	}, nil
}

func (e *Engine) quoteSell(content *Content, amount uint64) (*Quote, error) {
	proceeds, err := curve.SellProceeds(content.BasePrice, content.UnitsSold, amount)
	if err != nil {
		return nil, err
	}
	res := e.params.Fees.ApplySell(proceeds)
	return &Quote{
		Hash:         content.Hash,
		Amount:       amount,
		Supply:       content.UnitsSold,
		Gross:        res.Gross,
		ProtocolFee:  res.Protocol,
		CreatorFee:   res.Creator,
		LoyaltyShare: res.Extra,
		Settlement:   res.Net,
	}, nil
}

// QuoteBuy returns the full breakdown of buying amount units at the current
// supply.
func (e *Engine) QuoteBuy(hash [32]byte, amount uint64) (*Quote, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	content, err := e.tradable(hash, amount)
	if err != nil {
		return nil, err
	}
	return e.quoteBuy(content, amount)
}

// QuoteSell returns the full breakdown of selling amount units at the
// current supply.
func (e *Engine) QuoteSell(hash [32]byte, amount uint64) (*Quote, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	content, err := e.tradable(hash, amount)
	if err != nil {
		return nil, err
	}
	return e.quoteSell(content, amount)
}

// GetBuyPrice returns the value a buyer must attach to purchase amount units:
// the curve cost plus the protocol and creator fees.
func (e *Engine) GetBuyPrice(hash [32]byte, amount uint64) (*uint256.Int, error) {
	q, err := e.QuoteBuy(hash, amount)
	if err != nil {
		return nil, err
	}
	return q.Settlement, nil
}

// GetSellPrice returns what a seller of amount units would receive after
// fees.
func (e *Engine) GetSellPrice(hash [32]byte, amount uint64) (*uint256.Int, error) {
	q, err := e.QuoteSell(hash, amount)
	if err != nil {
		return nil, err
	}
	return q.Settlement, nil
}

// BuyContentAccess mints amount units of hash's access unit to caller. The
// caller must attach at least the buy price; only the price leaves the
// caller's account and the excess is reported as a refund.
func (e *Engine) BuyContentAccess(caller [20]byte, hash [32]byte, amount uint64, attached *uint256.Int, height uint64) (*Receipt, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	content, err := e.tradable(hash, amount)
	if err != nil {
		return nil, err
	}
	quote, err := e.quoteBuy(content, amount)
	if err != nil {
		return nil, err
	}
	if attached == nil {
		attached = new(uint256.Int)
	}
	if attached.Lt(quote.Settlement) {
		return nil, fmt.Errorf("%w: attached %s, price %s", marketerrors.ErrInsufficientPayment, attached.Dec(), quote.Settlement.Dec())
	}
	payer, err := e.account(caller)
	if err != nil {
		return nil, err
	}
	if payer.Balance.Lt(attached) {
		return nil, fmt.Errorf("%w: %x holds %s, attached %s", marketerrors.ErrInsufficientFunds, caller, payer.Balance.Dec(), attached.Dec())
	}
	refund := new(uint256.Int).Sub(attached, quote.Settlement)

	if err := e.transfer(caller, e.params.Reserve, quote.Gross); err != nil {
		return nil, err
	}
	if err := e.transfer(caller, e.params.Fees.Destination, quote.ProtocolFee); err != nil {
		return nil, err
	}
	if err := e.transfer(caller, content.Creator, quote.CreatorFee); err != nil {
		return nil, err
	}
	split := e.params.Fees.Split(quote.Gross)
	if err := e.recordFee(e.params.Fees.Destination, split, quote.ProtocolFee); err != nil {
		return nil, err
	}
	if err := e.recordFee(content.Creator, split, quote.CreatorFee); err != nil {
		return nil, err
	}

	balance, err := e.state.CreatorAccessBalanceGet(content.AccessUnitID, caller)
	if err != nil {
		return nil, err
	}
	balance += amount
	if err := e.state.CreatorAccessBalancePut(content.AccessUnitID, caller, balance); err != nil {
		return nil, err
	}
	content.UnitsSold += amount
	content.Revenue = new(uint256.Int).Add(content.Revenue, quote.Gross)
	if err := e.state.CreatorContentPut(content); err != nil {
		return nil, err
	}

	if _, err := e.board.AddRevenue(content.Creator, quote.Gross, height); err != nil {
		return nil, err
	}
	if e.params.PurchaseLoyaltyWeight > 0 {
		if _, err := e.board.Award(content.Creator, caller, amount*e.params.PurchaseLoyaltyWeight, height); err != nil {
			return nil, err
		}
	}

	e.logger.Debug("access purchased",
		slog.String("hash", fmt.Sprintf("%x", hash)),
		slog.Uint64("amount", amount),
		slog.String("total", quote.Settlement.Dec()))
	e.emit(events.AccessPurchased{
		Hash:         hash,
		Buyer:        caller,
		Amount:       amount,
		Cost:         new(uint256.Int).Set(quote.Gross),
		Total:        new(uint256.Int).Set(quote.Settlement),
		Refund:       new(uint256.Int).Set(refund),
		LoyaltyShare: new(uint256.Int).Set(quote.LoyaltyShare),
	})
	return &Receipt{Quote: *quote, Trader: caller, Refund: refund, Balance: balance}, nil
}

// SellContentAccess burns amount of caller's units and pays the curve
// proceeds, minus fees, out of the market reserve.
func (e *Engine) SellContentAccess(caller [20]byte, hash [32]byte, amount uint64, height uint64) (*Receipt, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	content, err := e.tradable(hash, amount)
	if err != nil {
		return nil, err
	}
	balance, err := e.state.CreatorAccessBalanceGet(content.AccessUnitID, caller)
	if err != nil {
		return nil, err
	}
	if free := sellable(content, caller, balance); free < amount {
		return nil, fmt.Errorf("%w: %x can sell %d units, asked %d", marketerrors.ErrInsufficientAccess, caller, free, amount)
	}
	quote, err := e.quoteSell(content, amount)
	if err != nil {
		return nil, err
	}
	if _, err := e.board.Touch(content.Creator, height); err != nil {
		return nil, err
	}

	reserve := e.params.Reserve
	if err := e.transfer(reserve, caller, quote.Settlement); err != nil {
		return nil, err
	}
	if err := e.transfer(reserve, e.params.Fees.Destination, quote.ProtocolFee); err != nil {
		return nil, err
	}
	if err := e.transfer(reserve, content.Creator, quote.CreatorFee); err != nil {
		return nil, err
	}
	split := e.params.Fees.Split(quote.Gross)
	if err := e.recordFee(e.params.Fees.Destination, split, quote.ProtocolFee); err != nil {
		return nil, err
	}
	if err := e.recordFee(content.Creator, split, quote.CreatorFee); err != nil {
		return nil, err
	}

	balance -= amount
	if err := e.state.CreatorAccessBalancePut(content.AccessUnitID, caller, balance); err != nil {
		return nil, err
	}
	content.UnitsSold -= amount
	if err := e.state.CreatorContentPut(content); err != nil {
		return nil, err
	}

	e.logger.Debug("access sold",
		slog.String("hash", fmt.Sprintf("%x", hash)),
		slog.Uint64("amount", amount),
		slog.String("net", quote.Settlement.Dec()))
	e.emit(events.AccessSold{
		Hash:        hash,
		Seller:      caller,
		Amount:      amount,
		NetProceeds: new(uint256.Int).Set(quote.Settlement),
	})
	return &Receipt{Quote: *quote, Trader: caller, Refund: new(uint256.Int), Balance: balance}, nil
}
