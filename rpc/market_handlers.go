package rpc

import (
	"net/http"
	"strings"

	"lukechampine.com/blake3"

	"justfriends/native/reputation"
)

type postParams struct {
	Caller string `json:"caller"`
	// Hash identifies the content. When empty, Data is hashed instead.
	Hash      string `json:"hash,omitempty"`
	Data      string `json:"data,omitempty"`
	BasePrice string `json:"basePrice"`
	IsPaid    bool   `json:"isPaid"`
	Height    uint64 `json:"height"`
}

type voteParams struct {
	Caller   string `json:"caller"`
	Hash     string `json:"hash"`
	Reaction string `json:"reaction"`
	Height   uint64 `json:"height"`
}

type priceParams struct {
	Hash   string `json:"hash"`
	Amount uint64 `json:"amount"`
}

type buyParams struct {
	Caller  string `json:"caller"`
	Hash    string `json:"hash"`
	Amount  uint64 `json:"amount"`
	Payment string `json:"payment"`
	Height  uint64 `json:"height"`
}

type sellParams struct {
	Caller string `json:"caller"`
	Hash   string `json:"hash"`
	Amount uint64 `json:"amount"`
	Height uint64 `json:"height"`
}

type hashParams struct {
	Hash string `json:"hash"`
}

type creatorParams struct {
	Creator string `json:"creator"`
}

type dataParams struct {
	Data string `json:"data"`
}

type balanceOfParams struct {
	AccessUnitID uint64 `json:"accessUnitId"`
	Holder       string `json:"holder"`
}

type reactionParams struct {
	Voter string `json:"voter"`
	Hash  string `json:"hash"`
}

type loyaltyRecordParams struct {
	Fan     string `json:"fan"`
	Creator string `json:"creator"`
	Epoch   uint64 `json:"epoch"`
}

type epochParams struct {
	Creator string `json:"creator"`
	Epoch   uint64 `json:"epoch"`
}

type addressParams struct {
	Address string `json:"address"`
}

type currentEpochResult struct {
	Creator string `json:"creator"`
	Epoch   uint64 `json:"epoch"`
	Open    bool   `json:"open"`
}

func badParam(w http.ResponseWriter, req *RPCRequest, err error) {
	writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
}

func contentHash(data string) [32]byte {
	return blake3.Sum256([]byte(data))
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params postParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		badParam(w, req, err)
		return
	}
	if !s.authorize(w, r, req, caller) {
		return
	}
	var hash [32]byte
	switch {
	case strings.TrimSpace(params.Hash) != "":
		if hash, err = parseHash(params.Hash); err != nil {
			badParam(w, req, err)
			return
		}
	case params.Data != "":
		hash = contentHash(params.Data)
	default:
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "hash or data is required", nil)
		return
	}
	basePrice, err := parseAmount("basePrice", params.BasePrice)
	if err != nil {
		badParam(w, req, err)
		return
	}
	content, err := s.node.Post(r.Context(), caller, hash, basePrice, params.IsPaid, params.Height)
	if err != nil {
		s.writeMarketError(w, r, req, err)
		return
	}
	writeResult(w, req.ID, formatContent(content))
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params voteParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		badParam(w, req, err)
		return
	}
	if !s.authorize(w, r, req, caller) {
		return
	}
	hash, err := parseHash(params.Hash)
	if err != nil {
		badParam(w, req, err)
		return
	}
	reaction, err := reputation.ParseReaction(params.Reaction)
	if err != nil {
		s.writeMarketError(w, r, req, err)
		return
	}
	prev, err := s.node.Vote(r.Context(), caller, hash, reaction, params.Height)
	if err != nil {
		s.writeMarketError(w, r, req, err)
		return
	}
	writeResult(w, req.ID, VoteResult{
		Hash:     formatHash(hash),
		Voter:    formatAddress(caller),
		Reaction: reaction.String(),
		Previous: prev.String(),
	})
}

func (s *Server) decodePriceParams(w http.ResponseWriter, req *RPCRequest) (priceParams, [32]byte, bool) {
	var params priceParams
	if !decodeParams(w, req, &params) {
		return params, [32]byte{}, false
	}
	hash, err := parseHash(params.Hash)
	if err != nil {
		badParam(w, req, err)
		return params, hash, false
	}
	return params, hash, true
}

func (s *Server) handleGetBuyPrice(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	params, hash, ok := s.decodePriceParams(w, req)
	if !ok {
		return
	}
	price, err := s.node.GetBuyPrice(r.Context(), hash, params.Amount)
	if err != nil {
		s.writeMarketError(w, r, req, err)
		return
	}
	writeResult(w, req.ID, formatAmount(price))
}

func (s *Server) handleGetSellPrice(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	params, hash, ok := s.decodePriceParams(w, req)
	if !ok {
		return
	}
	price, err := s.node.GetSellPrice(r.Context(), hash, params.Amount)
	if err != nil {
		s.writeMarketError(w, r, req, err)
		return
	}
	writeResult(w, req.ID, formatAmount(price))
}

func (s *Server) handleQuoteBuy(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	params, hash, ok := s.decodePriceParams(w, req)
	if !ok {
		return
	}
	quote, err := s.node.QuoteBuy(r.Context(), hash, params.Amount)
	if err != nil {
		s.writeMarketError(w, r, req, err)
		return
	}
	writeResult(w, req.ID, formatQuote(quote))
}

func (s *Server) handleQuoteSell(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	params, hash, ok := s.decodePriceParams(w, req)
	if !ok {
		return
	}
	quote, err := s.node.QuoteSell(r.Context(), hash, params.Amount)
	if err != nil {
		s.writeMarketError(w, r, req, err)
		return
	}
	writeResult(w, req.ID, formatQuote(quote))
}

func (s *Server) handleBuyContentAccess(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params buyParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		badParam(w, req, err)
		return
	}
	if !s.authorize(w, r, req, caller) {
		return
	}
	hash, err := parseHash(params.Hash)
	if err != nil {
		badParam(w, req, err)
		return
	}
	payment, err := parseAmount("payment", params.Payment)
	if err != nil {
		badParam(w, req, err)
		return
	}
	receipt, err := s.node.BuyContentAccess(r.Context(), caller, hash, params.Amount, payment, params.Height)
	if err != nil {
		s.writeMarketError(w, r, req, err)
		return
	}
	writeResult(w, req.ID, formatReceipt(receipt))
}

func (s *Server) handleSellContentAccess(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params sellParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		badParam(w, req, err)
		return
	}
	if !s.authorize(w, r, req, caller) {
		return
	}
	hash, err := parseHash(params.Hash)
	if err != nil {
		badParam(w, req, err)
		return
	}
	receipt, err := s.node.SellContentAccess(r.Context(), caller, hash, params.Amount, params.Height)
	if err != nil {
		s.writeMarketError(w, r, req, err)
		return
	}
	writeResult(w, req.ID, formatReceipt(receipt))
}

func (s *Server) handleGetContent(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params hashParams
	if !decodeParams(w, req, &params) {
		return
	}
	hash, err := parseHash(params.Hash)
	if err != nil {
		badParam(w, req, err)
		return
	}
	content, err := s.node.Content(r.Context(), hash)
	if err != nil {
		s.writeMarketError(w, r, req, err)
		return
	}
	writeResult(w, req.ID, formatContent(content))
}

func (s *Server) handleListContent(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params creatorParams
	if !decodeParams(w, req, &params) {
		return
	}
	author, err := parseAddress("creator", params.Creator)
	if err != nil {
		badParam(w, req, err)
		return
	}
	hashes, err := s.node.ContentByCreator(r.Context(), author)
	if err != nil {
		s.writeMarketError(w, r, req, err)
		return
	}
	out := make([]string, len(hashes))
	for i, h := range hashes {
		out[i] = formatHash(h)
	}
	writeResult(w, req.ID, out)
}

func (s *Server) handleContentHash(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params dataParams
	if !decodeParams(w, req, &params) {
		return
	}
	if params.Data == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "data is required", nil)
		return
	}
	writeResult(w, req.ID, formatHash(contentHash(params.Data)))
}

func (s *Server) handleBalanceOf(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params balanceOfParams
	if !decodeParams(w, req, &params) {
		return
	}
	holder, err := parseAddress("holder", params.Holder)
	if err != nil {
		badParam(w, req, err)
		return
	}
	balance, err := s.node.BalanceOf(r.Context(), params.AccessUnitID, holder)
	if err != nil {
		s.writeMarketError(w, r, req, err)
		return
	}
	writeResult(w, req.ID, balance)
}

func (s *Server) handleGetReaction(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params reactionParams
	if !decodeParams(w, req, &params) {
		return
	}
	voter, err := parseAddress("voter", params.Voter)
	if err != nil {
		badParam(w, req, err)
		return
	}
	hash, err := parseHash(params.Hash)
	if err != nil {
		badParam(w, req, err)
		return
	}
	reaction, err := s.node.Reaction(r.Context(), voter, hash)
	if err != nil {
		s.writeMarketError(w, r, req, err)
		return
	}
	writeResult(w, req.ID, reaction.String())
}

func (s *Server) handleGetLoyaltyRecord(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params loyaltyRecordParams
	if !decodeParams(w, req, &params) {
		return
	}
	fan, err := parseAddress("fan", params.Fan)
	if err != nil {
		badParam(w, req, err)
		return
	}
	author, err := parseAddress("creator", params.Creator)
	if err != nil {
		badParam(w, req, err)
		return
	}
	record, err := s.node.LoyaltyRecord(r.Context(), fan, author, params.Epoch)
	if err != nil {
		s.writeMarketError(w, r, req, err)
		return
	}
	writeResult(w, req.ID, formatRecord(record))
}

func (s *Server) handleGetLeaders(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params epochParams
	if !decodeParams(w, req, &params) {
		return
	}
	author, err := parseAddress("creator", params.Creator)
	if err != nil {
		badParam(w, req, err)
		return
	}
	leaders, err := s.node.Leaders(r.Context(), author, params.Epoch)
	if err != nil {
		s.writeMarketError(w, r, req, err)
		return
	}
	out := make([]string, len(leaders))
	for i, fan := range leaders {
		out[i] = formatAddress(fan)
	}
	writeResult(w, req.ID, out)
}

func (s *Server) handleGetEpochLedger(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params epochParams
	if !decodeParams(w, req, &params) {
		return
	}
	author, err := parseAddress("creator", params.Creator)
	if err != nil {
		badParam(w, req, err)
		return
	}
	ledger, err := s.node.EpochLedger(r.Context(), author, params.Epoch)
	if err != nil {
		s.writeMarketError(w, r, req, err)
		return
	}
	writeResult(w, req.ID, formatLedger(ledger))
}

func (s *Server) handleCurrentEpoch(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params creatorParams
	if !decodeParams(w, req, &params) {
		return
	}
	author, err := parseAddress("creator", params.Creator)
	if err != nil {
		badParam(w, req, err)
		return
	}
	epoch, open, err := s.node.CurrentEpoch(r.Context(), author)
	if err != nil {
		s.writeMarketError(w, r, req, err)
		return
	}
	writeResult(w, req.ID, currentEpochResult{Creator: formatAddress(author), Epoch: epoch, Open: open})
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params addressParams
	if !decodeParams(w, req, &params) {
		return
	}
	addr, err := parseAddress("address", params.Address)
	if err != nil {
		badParam(w, req, err)
		return
	}
	balance, err := s.node.Balance(r.Context(), addr)
	if err != nil {
		s.writeMarketError(w, r, req, err)
		return
	}
	writeResult(w, req.ID, formatAmount(balance))
}

func (s *Server) handleGetFeeTotals(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params addressParams
	if !decodeParams(w, req, &params) {
		return
	}
	wallet, err := parseAddress("address", params.Address)
	if err != nil {
		badParam(w, req, err)
		return
	}
	totals, err := s.node.FeeTotals(r.Context(), wallet)
	if err != nil {
		s.writeMarketError(w, r, req, err)
		return
	}
	writeResult(w, req.ID, formatFeeTotals(totals))
}
