package rpc

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"nhooyr.io/websocket"

	"justfriends/core/events"
	"justfriends/core/types"
	"justfriends/indexer"
)

const wsWriteTimeout = 10 * time.Second

// EventIndex answers history queries.
type EventIndex interface {
	Query(ctx context.Context, filter indexer.Filter) ([]indexer.Record, error)
}

// SetEventIndex enables jf_getEvents.
func (s *Server) SetEventIndex(index EventIndex) { s.index = index }

// SetEventHub enables the /ws event stream.
func (s *Server) SetEventHub(hub *events.Hub) { s.hub = hub }

type getEventsParams struct {
	Type    string `json:"type,omitempty"`
	Hash    string `json:"hash,omitempty"`
	Creator string `json:"creator,omitempty"`
	AfterID uint64 `json:"afterId,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

// EventResult is one indexed event.
type EventResult struct {
	ID         uint64            `json:"id"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
	CreatedAt  time.Time         `json:"createdAt"`
}

func (s *Server) handleGetEvents(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if s.index == nil {
		writeError(w, http.StatusServiceUnavailable, req.ID, codeServerError, "event index disabled", nil)
		return
	}
	var params getEventsParams
	if !decodeParams(w, req, &params) {
		return
	}
	filter := indexer.Filter{Type: strings.TrimSpace(params.Type), AfterID: params.AfterID, Limit: params.Limit}
	if strings.TrimSpace(params.Hash) != "" {
		hash, err := parseHash(params.Hash)
		if err != nil {
			badParam(w, req, err)
			return
		}
		filter.Hash = formatHash(hash)
	}
	if strings.TrimSpace(params.Creator) != "" {
		author, err := parseAddress("creator", params.Creator)
		if err != nil {
			badParam(w, req, err)
			return
		}
		filter.Creator = "0x" + hex.EncodeToString(author[:])
	}
	records, err := s.index.Query(r.Context(), filter)
	if err != nil {
		s.writeMarketError(w, r, req, err)
		return
	}
	out := make([]EventResult, 0, len(records))
	for _, record := range records {
		attrs, err := record.Decode()
		if err != nil {
			s.writeMarketError(w, r, req, err)
			return
		}
		out = append(out, EventResult{ID: record.ID, Type: record.Type, Attributes: attrs, CreatedAt: record.CreatedAt})
	}
	writeResult(w, req.ID, out)
}

// handleEventStream upgrades to a websocket and forwards committed events,
// optionally filtered by ?type=.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "event stream disabled", http.StatusServiceUnavailable)
		return
	}
	if !s.limiter.allow(clientID(r)) {
		s.metrics.IncRateLimited("ws")
		http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.origins})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	updates, cancel := s.hub.Subscribe(strings.TrimSpace(r.URL.Query().Get("type")))
	defer cancel()
	ctx := conn.CloseRead(r.Context())
	if err := streamEvents(ctx, conn, updates); err != nil {
		if websocket.CloseStatus(err) == -1 {
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func streamEvents(ctx context.Context, conn *websocket.Conn, updates <-chan *types.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-updates:
			if !ok {
				return nil
			}
			data, err := json.Marshal(evt)
			if err != nil {
				return err
			}
			writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
			err = conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}
