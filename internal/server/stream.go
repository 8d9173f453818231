package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/zoobzio/repoql"
)

// ClientMessage is the envelope of client-to-server stream messages.
type ClientMessage struct {
	Type string          `json:"type"` // "subscribe", "request", "cancel", "ping"
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data,omitempty"`
}

// SubscribeData is the payload of "subscribe".
type SubscribeData struct {
	Query  string         `json:"query"`
	Params map[string]any `json:"params,omitempty"`
}

// RequestData is the payload of "request": n more records.
type RequestData struct {
	N int64 `json:"n"`
}

// ServerMessage is the envelope of server-to-client stream messages.
type ServerMessage struct {
	Type      string `json:"type"` // "subscribed", "record", "complete", "cancelled", "error", "pong"
	RequestID string `json:"request_id,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// ErrorData carries an error message.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handleStream serves a publisher per connection. Records flow only as
// the client requests them; a new subscribe cancels the previous one.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Warn("stream: websocket accept", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	st := &stream{server: s, conn: conn}
	defer st.cancel()

	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if status := websocket.CloseStatus(err); status != -1 {
				s.logger.Debug("stream: connection closed", "status", status)
			}
			return
		}

		switch msg.Type {
		case "subscribe":
			st.subscribe(ctx, msg)
		case "request":
			st.request(ctx, msg)
		case "cancel":
			if st.cancel() {
				st.send(ctx, ServerMessage{Type: "cancelled", RequestID: msg.ID})
			}
		case "ping":
			st.send(ctx, ServerMessage{Type: "pong", RequestID: msg.ID})
		default:
			st.sendError(ctx, msg.ID, "unknown_type", fmt.Sprintf("unknown message type: %s", msg.Type))
		}
	}
}

// stream is the state of one connection.
type stream struct {
	server *Server
	conn   *websocket.Conn

	mu      sync.Mutex
	current *subscriber
}

func (st *stream) subscribe(ctx context.Context, msg ClientMessage) {
	var data SubscribeData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		st.sendError(ctx, msg.ID, "invalid_data", "invalid subscribe data")
		return
	}
	stmt, err := st.server.engine.Prepare(data.Query)
	if err != nil {
		st.sendError(ctx, msg.ID, "parse_error", err.Error())
		return
	}
	if err := stmt.BindAll(normalizeMap(data.Params)); err != nil {
		st.sendError(ctx, msg.ID, "bind_error", err.Error())
		return
	}
	pub, err := repoql.Publish[repoql.Record](stmt)
	if err != nil {
		st.sendError(ctx, msg.ID, "exec_error", err.Error())
		return
	}

	st.cancel()
	id := msg.ID
	if id == "" {
		id = uuid.NewString()
	}
	sub := &subscriber{stream: st, ctx: ctx, id: id}
	st.mu.Lock()
	st.current = sub
	st.mu.Unlock()

	st.send(ctx, ServerMessage{Type: "subscribed", RequestID: id})
	pub.Subscribe(ctx, sub)
}

func (st *stream) request(ctx context.Context, msg ClientMessage) {
	var data RequestData
	if err := json.Unmarshal(msg.Data, &data); err != nil || data.N <= 0 {
		st.sendError(ctx, msg.ID, "invalid_data", "request needs a positive n")
		return
	}
	st.mu.Lock()
	sub := st.current
	st.mu.Unlock()
	if sub == nil {
		st.sendError(ctx, msg.ID, "no_subscription", "request before subscribe")
		return
	}
	sub.request(data.N)
}

// cancel stops the current subscription, reporting whether there was one.
func (st *stream) cancel() bool {
	st.mu.Lock()
	sub := st.current
	st.current = nil
	st.mu.Unlock()
	if sub == nil {
		return false
	}
	sub.cancel()
	return true
}

func (st *stream) finished(sub *subscriber) {
	st.mu.Lock()
	if st.current == sub {
		st.current = nil
	}
	st.mu.Unlock()
}

func (st *stream) send(ctx context.Context, msg ServerMessage) {
	if err := wsjson.Write(ctx, st.conn, msg); err != nil {
		st.server.logger.Debug("stream: write error", "error", err)
	}
}

func (st *stream) sendError(ctx context.Context, requestID, code, message string) {
	st.send(ctx, ServerMessage{
		Type:      "error",
		RequestID: requestID,
		Data:      ErrorData{Code: code, Message: message},
	})
}

// subscriber forwards publisher signals to the socket.
type subscriber struct {
	stream *stream
	ctx    context.Context
	id     string

	mu  sync.Mutex
	sub repoql.Subscription
}

func (s *subscriber) OnSubscribe(sub repoql.Subscription) {
	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()
}

func (s *subscriber) OnNext(rec repoql.Record) {
	s.stream.send(s.ctx, ServerMessage{Type: "record", RequestID: s.id, Data: rec})
}

func (s *subscriber) OnError(err error) {
	s.stream.finished(s)
	s.stream.sendError(s.ctx, s.id, "exec_error", err.Error())
}

func (s *subscriber) OnComplete() {
	s.stream.finished(s)
	s.stream.send(s.ctx, ServerMessage{Type: "complete", RequestID: s.id})
}

func (s *subscriber) request(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub != nil {
		s.sub.Request(n)
	}
}

func (s *subscriber) cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub != nil {
		s.sub.Cancel()
	}
}
