package rpc

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"

	"justfriends/crypto"
	"justfriends/native/creator"
	"justfriends/native/fees"
	"justfriends/native/loyalty"
)

// ContentResult describes registered content.
type ContentResult struct {
	Hash         string `json:"hash"`
	Creator      string `json:"creator"`
	AccessUnitID uint64 `json:"accessUnitId"`
	BasePrice    string `json:"basePrice"`
	IsPaid       bool   `json:"isPaid"`
	UnitsSold    uint64 `json:"unitsSold"`
	Revenue      string `json:"revenue"`
	Upvotes      uint64 `json:"upvotes"`
	Downvotes    uint64 `json:"downvotes"`
	PostedAt     uint64 `json:"postedAt"`
}

// QuoteResult breaks a prospective trade into curve value and fees.
type QuoteResult struct {
	Hash         string `json:"hash"`
	Amount       uint64 `json:"amount"`
	Supply       uint64 `json:"supply"`
	Gross        string `json:"gross"`
	ProtocolFee  string `json:"protocolFee"`
	CreatorFee   string `json:"creatorFee"`
	LoyaltyShare string `json:"loyaltyShare"`
	Settlement   string `json:"settlement"`
}

// ReceiptResult reports an applied buy or sell.
type ReceiptResult struct {
	QuoteResult
	Trader  string `json:"trader"`
	Refund  string `json:"refund"`
	Balance uint64 `json:"balance"`
}

// VoteResult reports an accepted reaction.
type VoteResult struct {
	Hash     string `json:"hash"`
	Voter    string `json:"voter"`
	Reaction string `json:"reaction"`
	Previous string `json:"previous"`
}

// LoyaltyRecordResult is a fan's score toward a creator in one epoch.
type LoyaltyRecordResult struct {
	Fan     string `json:"fan"`
	Creator string `json:"creator"`
	Epoch   uint64 `json:"epoch"`
	Score   uint64 `json:"score"`
	Claimed bool   `json:"claimed"`
}

// LeaderResult is one slot of a leader list.
type LeaderResult struct {
	Fan   string `json:"fan"`
	Score uint64 `json:"score"`
}

// EpochLedgerResult is a creator's ledger for one epoch.
type EpochLedgerResult struct {
	Creator  string         `json:"creator"`
	Epoch    uint64         `json:"epoch"`
	Revenue  string         `json:"revenue"`
	IsClosed bool           `json:"isClosed"`
	Leaders  []LeaderResult `json:"leaders"`
}

// FeeTotalsResult sums the fees routed to a wallet.
type FeeTotalsResult struct {
	Wallet string `json:"wallet"`
	Gross  string `json:"gross"`
	Fee    string `json:"fee"`
}

func formatAddress(addr [20]byte) string {
	return crypto.MustNewAddress(crypto.JFPrefix, addr[:]).String()
}

func formatHash(hash [32]byte) string {
	return hexutil.Encode(hash[:])
}

func formatAmount(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

func formatContent(content *creator.Content) ContentResult {
	return ContentResult{
		Hash:         formatHash(content.Hash),
		Creator:      formatAddress(content.Creator),
		AccessUnitID: content.AccessUnitID,
		BasePrice:    formatAmount(content.BasePrice),
		IsPaid:       content.IsPaid,
		UnitsSold:    content.UnitsSold,
		Revenue:      formatAmount(content.Revenue),
		Upvotes:      content.Upvotes,
		Downvotes:    content.Downvotes,
		PostedAt:     content.PostedAt,
	}
}

func formatQuote(quote *creator.Quote) QuoteResult {
	return QuoteResult{
		Hash:         formatHash(quote.Hash),
		Amount:       quote.Amount,
		Supply:       quote.Supply,
		Gross:        formatAmount(quote.Gross),
		ProtocolFee:  formatAmount(quote.ProtocolFee),
		CreatorFee:   formatAmount(quote.CreatorFee),
		LoyaltyShare: formatAmount(quote.LoyaltyShare),
		Settlement:   formatAmount(quote.Settlement),
	}
}

func formatReceipt(receipt *creator.Receipt) ReceiptResult {
	return ReceiptResult{
		QuoteResult: formatQuote(&receipt.Quote),
		Trader:      formatAddress(receipt.Trader),
		Refund:      formatAmount(receipt.Refund),
		Balance:     receipt.Balance,
	}
}

func formatRecord(record *loyalty.Record) LoyaltyRecordResult {
	return LoyaltyRecordResult{
		Fan:     formatAddress(record.Fan),
		Creator: formatAddress(record.Creator),
		Epoch:   record.Epoch,
		Score:   record.Score,
		Claimed: record.Claimed,
	}
}

func formatLedger(ledger *loyalty.EpochLedger) EpochLedgerResult {
	leaders := make([]LeaderResult, len(ledger.Leaders))
	for i, leader := range ledger.Leaders {
		leaders[i] = LeaderResult{Fan: formatAddress(leader.Fan), Score: leader.Score}
	}
	return EpochLedgerResult{
		Creator:  formatAddress(ledger.Creator),
		Epoch:    ledger.Epoch,
		Revenue:  formatAmount(ledger.Revenue),
		IsClosed: ledger.IsClosed,
		Leaders:  leaders,
	}
}

func formatFeeTotals(totals *fees.Totals) FeeTotalsResult {
	return FeeTotalsResult{
		Wallet: formatAddress(totals.Wallet),
		Gross:  formatAmount(totals.Gross),
		Fee:    formatAmount(totals.Fee),
	}
}

func parseAddress(field, value string) ([20]byte, error) {
	addr, err := crypto.ParseIdentity(strings.TrimSpace(value))
	if err != nil {
		return [20]byte{}, fmt.Errorf("invalid %s: %w", field, err)
	}
	return addr, nil
}

func parseHash(value string) ([32]byte, error) {
	var out [32]byte
	raw, err := hexutil.Decode(strings.TrimSpace(value))
	if err != nil {
		return out, fmt.Errorf("invalid hash: %w", err)
	}
	if len(raw) != len(out) {
		return out, fmt.Errorf("invalid hash: expected 32 bytes, got %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

// parseAmount reads a non-negative decimal amount. Empty means zero.
func parseAmount(field, value string) (*uint256.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return new(uint256.Int), nil
	}
	amount, err := uint256.FromDecimal(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", field, err)
	}
	return amount, nil
}
