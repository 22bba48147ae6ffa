package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/xhad/finsight/pkg/ingest"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is the frame exchanged over /ws. Clients send "ask" (Content holds
// the question) or "ingest" (Data holds an ingest request). The server
// answers with status, progress, stream, response and error frames.
type Message struct {
	Type    string          `json:"type"`
	Content string          `json:"content"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Data    any    `json:"data,omitempty"`
}

// wsConn serialises writes; gorilla connections allow one writer at a time.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	var wg sync.WaitGroup
	defer wg.Wait()

	// In-flight handlers are cancelled once the client goes away.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := &wsConn{conn: conn}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn().Err(err).Msg("error reading message")
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.sendMessage(c, "error", fmt.Sprintf("invalid message: %v", err), nil)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleMessage(ctx, c, msg)
		}()
	}
}

func (s *Server) handleMessage(ctx context.Context, c *wsConn, msg Message) {
	switch msg.Type {
	case "ingest":
		s.handleIngestMessage(ctx, c, msg)
	case "ask", "":
		s.handleAskMessage(ctx, c, msg)
	default:
		s.sendMessage(c, "error", fmt.Sprintf("unknown message type %q", msg.Type), nil)
	}
}

func (s *Server) handleIngestMessage(ctx context.Context, c *wsConn, msg Message) {
	var req ingest.Request
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.sendMessage(c, "error", fmt.Sprintf("invalid ingest request: %v", err), nil)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.sendMessage(c, "error", err.Error(), nil)
		return
	}

	s.sendMessage(c, "status", fmt.Sprintf("Loading %s documents for %s", req.Kind, req.Symbol), nil)

	report, err := s.pipeline.Ingest(ctx, req, func(p ingest.Progress) {
		s.sendMessage(c, "progress", fmt.Sprintf("Indexed %d of %d chunks", p.Done, p.Total), p)
	})
	if err != nil {
		s.sendMessage(c, "error", err.Error(), report)
		return
	}

	s.sendMessage(c, "response",
		fmt.Sprintf("Indexed %d chunks from %d documents", report.Indexed, report.Loaded), report)
}

func (s *Server) handleAskMessage(ctx context.Context, c *wsConn, msg Message) {
	if s.chat == nil {
		s.sendMessage(c, "error", "chat engine is not configured", nil)
		return
	}

	req := askRequest{Query: msg.Content}
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			s.sendMessage(c, "error", fmt.Sprintf("invalid ask request: %v", err), nil)
			return
		}
		if req.Query == "" {
			req.Query = msg.Content
		}
	}

	answer, results, err := s.answer(ctx, req, func(chunk string) error {
		s.sendMessage(c, "stream", chunk, nil)
		return nil
	})
	if err != nil {
		s.sendMessage(c, "error", err.Error(), nil)
		return
	}

	s.sendMessage(c, "response", answer, publicResults(results))
}

func (s *Server) sendMessage(c *wsConn, msgType, content string, data any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.WriteJSON(outbound{Type: msgType, Content: content, Data: data}); err != nil {
		s.logger.Warn().Err(err).Str("type", msgType).Msg("error sending message")
	}
}
