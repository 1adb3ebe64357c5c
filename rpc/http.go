package rpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"justfriends/core"
	marketerrors "justfriends/core/errors"
	"justfriends/core/events"
	"justfriends/observability/metrics"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
	requestIDHeader = "X-Request-ID"
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeRateLimited    = -32020
)

// Application error codes, one per market error.
const (
	codeInvalidContent = -32040 - iota
	codeNotFound
	codeDuplicateVoting
	codeInsufficientPayment
	codeInsufficientAccess
	codeInvalidAmount
	codeInvalidReaction
	codeInsufficientFunds
	codeStaleEpoch
	codePriceOutOfRange
)

// ServerConfig tunes the HTTP surface.
type ServerConfig struct {
	// RatePerSecond and Burst bound requests per client. Zero disables the
	// limiter.
	RatePerSecond float64
	Burst         int
	Auth          AuthConfig

	// AllowedOrigins lists the cross-origin host patterns accepted by the
	// event stream. Empty admits same-origin clients only.
	AllowedOrigins []string
}

// Server exposes the node over JSON-RPC 2.0.
type Server struct {
	node    *core.Node
	logger  *slog.Logger
	metrics *metrics.MarketMetrics
	limiter *rateLimiter
	auth    *authenticator
	index   EventIndex
	hub     *events.Hub
	origins []string
}

// NewServer builds a server for node.
func NewServer(node *core.Node, logger *slog.Logger, cfg ServerConfig) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		node:    node,
		logger:  logger,
		metrics: metrics.Market(),
		limiter: newRateLimiter(cfg.RatePerSecond, cfg.Burst),
		auth:    newAuthenticator(cfg.Auth),
		origins: normalizeOrigins(cfg.AllowedOrigins),
	}
}

// Handler returns the routed HTTP handler: JSON-RPC on POST /, the /ws
// event stream, /healthz and /metrics.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", s.handleEventStream)
	r.Method(http.MethodPost, "/", otelhttp.NewHandler(http.HandlerFunc(s.handle), "justfriends.rpc"))
	return r
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeMarketError maps a node error onto its JSON-RPC code.
func (s *Server) writeMarketError(w http.ResponseWriter, r *http.Request, req *RPCRequest, err error) {
	status, code := http.StatusBadRequest, codeServerError
	switch {
	case errors.Is(err, marketerrors.ErrInvalidContent):
		code = codeInvalidContent
	case errors.Is(err, marketerrors.ErrNotFound):
		status, code = http.StatusNotFound, codeNotFound
	case errors.Is(err, marketerrors.ErrDuplicateVoting):
		code = codeDuplicateVoting
	case errors.Is(err, marketerrors.ErrInsufficientPayment):
		code = codeInsufficientPayment
	case errors.Is(err, marketerrors.ErrInsufficientAccess):
		code = codeInsufficientAccess
	case errors.Is(err, marketerrors.ErrInvalidAmount):
		code = codeInvalidAmount
	case errors.Is(err, marketerrors.ErrInvalidReaction):
		code = codeInvalidReaction
	case errors.Is(err, marketerrors.ErrInsufficientFunds):
		code = codeInsufficientFunds
	case errors.Is(err, marketerrors.ErrStaleEpoch):
		code = codeStaleEpoch
	case errors.Is(err, marketerrors.ErrPriceOutOfRange):
		code = codePriceOutOfRange
	default:
		status = http.StatusInternalServerError
		s.logger.Error("rpc request failed",
			"method", req.Method,
			"requestId", r.Header.Get(requestIDHeader),
			"error", err)
	}
	writeError(w, status, req.ID, code, core.Outcome(err), err.Error())
}

// handle is the main request handler that routes to specific handlers.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}
	if !s.limiter.allow(clientID(r)) {
		s.metrics.IncRateLimited(req.Method)
		writeError(w, http.StatusTooManyRequests, req.ID, codeRateLimited, "rate limit exceeded", nil)
		return
	}

	started := time.Now()
	switch req.Method {
	case "jf_post":
		s.handlePost(w, r, req)
	case "jf_vote":
		s.handleVote(w, r, req)
	case "jf_getBuyPrice":
		s.handleGetBuyPrice(w, r, req)
	case "jf_getSellPrice":
		s.handleGetSellPrice(w, r, req)
	case "jf_quoteBuy":
		s.handleQuoteBuy(w, r, req)
	case "jf_quoteSell":
		s.handleQuoteSell(w, r, req)
	case "jf_buyContentAccess":
		s.handleBuyContentAccess(w, r, req)
	case "jf_sellContentAccess":
		s.handleSellContentAccess(w, r, req)
	case "jf_getContent":
		s.handleGetContent(w, r, req)
	case "jf_listContent":
		s.handleListContent(w, r, req)
	case "jf_contentHash":
		s.handleContentHash(w, r, req)
	case "jf_balanceOf":
		s.handleBalanceOf(w, r, req)
	case "jf_getReaction":
		s.handleGetReaction(w, r, req)
	case "jf_getLoyaltyRecord":
		s.handleGetLoyaltyRecord(w, r, req)
	case "jf_getLeaders":
		s.handleGetLeaders(w, r, req)
	case "jf_getEpochLedger":
		s.handleGetEpochLedger(w, r, req)
	case "jf_currentEpoch":
		s.handleCurrentEpoch(w, r, req)
	case "jf_getBalance":
		s.handleGetBalance(w, r, req)
	case "jf_getFeeTotals":
		s.handleGetFeeTotals(w, r, req)
	case "jf_getEvents":
		s.handleGetEvents(w, r, req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("unknown method: %s", req.Method), nil)
		return
	}
	s.logger.Debug("rpc request served",
		"method", req.Method,
		"requestId", r.Header.Get(requestIDHeader),
		"elapsed", time.Since(started))
}

// decodeParams unmarshals the single parameter object of req into out.
func decodeParams(w http.ResponseWriter, req *RPCRequest, out interface{}) bool {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return false
	}
	dec := json.NewDecoder(bytes.NewReader(req.Params[0]))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return false
	}
	return true
}

func normalizeOrigins(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
