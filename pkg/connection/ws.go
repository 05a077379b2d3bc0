package connection

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/relaypoint/relaypoint.go/internal/codec"
	"github.com/relaypoint/relaypoint.go/pkg/models"
)

// RPCRequest is one procedure invocation frame.
type RPCRequest struct {
	ID     string        `json:"id" cbor:"id"`
	Method string        `json:"method" cbor:"method"`
	Token  string        `json:"token,omitempty" cbor:"token,omitempty"`
	Scope  *models.Scope `json:"scope,omitempty" cbor:"scope,omitempty"`
	Params any           `json:"params,omitempty" cbor:"params,omitempty"`
}

// RPCError is the error half of a response frame. Code mirrors HTTP status
// semantics so both transports share one error taxonomy.
type RPCError struct {
	Code    int    `json:"code" cbor:"code"`
	Rule    string `json:"rule,omitempty" cbor:"rule,omitempty"`
	Message string `json:"message,omitempty" cbor:"message,omitempty"`
}

// RPCResponse is one procedure result frame.
type RPCResponse struct {
	ID     string    `json:"id" cbor:"id"`
	Error  *RPCError `json:"error,omitempty" cbor:"error,omitempty"`
	Result any       `json:"result,omitempty" cbor:"result,omitempty"`
}

// WS carries named procedures over a single websocket. Responses are matched
// to in-flight calls by frame id; the socket read loop runs until the
// connection drops or Close is called, at which point every in-flight call
// fails with a TransientError.
type WS struct {
	conn  *websocket.Conn
	codec codec.Codec
	log   zerolog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	token   string
	scope   models.Scope
	pending map[string]chan *RPCResponse
	closed  bool
	done    chan struct{}
}

// WSOption configures the websocket transport.
type WSOption func(*WS)

// WithCodec selects the frame encoding. JSON is the default.
func WithCodec(c codec.Codec) WSOption {
	return func(w *WS) { w.codec = c }
}

// WithWSLogger sets the logger used for frame-level debug output.
func WithWSLogger(log zerolog.Logger) WSOption {
	return func(w *WS) { w.log = log }
}

// NewWS dials the realtime endpoint and starts the read loop.
func NewWS(url string, opts ...WSOption) (*WS, error) {
	dialer := *websocket.DefaultDialer
	dialer.EnableCompression = true

	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, &TransientError{Op: "dial " + url, Err: err}
	}

	ws := &WS{
		conn:    conn,
		codec:   codec.JSON{},
		log:     zerolog.Nop(),
		pending: make(map[string]chan *RPCResponse),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(ws)
	}
	go ws.readLoop()
	return ws, nil
}

func (w *WS) SetToken(token string) {
	w.mu.Lock()
	w.token = token
	w.mu.Unlock()
}

func (w *WS) UseScope(scope models.Scope) {
	w.mu.Lock()
	w.scope = scope
	w.mu.Unlock()
}

// Call sends one procedure frame and waits for the matching response or
// context cancellation. Cancellation abandons the response; if it arrives
// later it is discarded by the read loop.
func (w *WS) Call(ctx context.Context, proc string, params, out any) error {
	op := "call " + proc

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return &TransientError{Op: op, Err: fmt.Errorf("connection closed")}
	}
	id := uuid.NewString()
	ch := make(chan *RPCResponse, 1)
	w.pending[id] = ch
	req := &RPCRequest{
		ID:     id,
		Method: proc,
		Token:  w.token,
		Params: params,
	}
	if !w.scope.IsZero() {
		scope := w.scope
		req.Scope = &scope
	}
	w.mu.Unlock()

	if err := w.write(req); err != nil {
		w.forget(id)
		return &TransientError{Op: op, Err: err}
	}

	select {
	case <-ctx.Done():
		w.forget(id)
		return &TransientError{Op: op, Err: ctx.Err()}
	case <-w.done:
		return &TransientError{Op: op, Err: fmt.Errorf("connection closed")}
	case res := <-ch:
		if res.Error != nil {
			return statusError(op, res.Error.Code, res.Error.Rule, res.Error.Message)
		}
		if out == nil || res.Result == nil {
			return nil
		}
		return w.project(op, res.Result, out)
	}
}

func (w *WS) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	w.writeMu.Lock()
	_ = w.conn.WriteMessage(websocket.CloseMessage, msg)
	w.writeMu.Unlock()
	return w.conn.Close()
}

func (w *WS) write(req *RPCRequest) error {
	frame, err := w.codec.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	messageType := websocket.TextMessage
	if w.codec.Binary() {
		messageType = websocket.BinaryMessage
	}
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	return w.conn.WriteMessage(messageType, frame)
}

// project decodes a loosely-typed result value into out by round-tripping
// through the frame codec.
func (w *WS) project(op string, result, out any) error {
	raw, err := w.codec.Marshal(result)
	if err != nil {
		return &TransientError{Op: op, Err: fmt.Errorf("re-encode result: %w", err)}
	}
	if err := w.codec.Unmarshal(raw, out); err != nil {
		return &TransientError{Op: op, Err: fmt.Errorf("decode result: %w", err)}
	}
	return nil
}

func (w *WS) forget(id string) {
	w.mu.Lock()
	delete(w.pending, id)
	w.mu.Unlock()
}

func (w *WS) readLoop() {
	for {
		_, frame, err := w.conn.ReadMessage()
		if err != nil {
			w.mu.Lock()
			if !w.closed {
				w.closed = true
				w.conn.Close()
			}
			w.pending = make(map[string]chan *RPCResponse)
			w.mu.Unlock()
			close(w.done)
			return
		}

		var res RPCResponse
		if err := w.codec.Unmarshal(frame, &res); err != nil {
			w.log.Warn().Err(err).Msg("discarding undecodable frame")
			continue
		}

		w.mu.Lock()
		ch, ok := w.pending[res.ID]
		if ok {
			delete(w.pending, res.ID)
		}
		w.mu.Unlock()
		if ok {
			ch <- &res
		} else {
			w.log.Debug().Str("id", res.ID).Msg("discarding response for abandoned call")
		}
	}
}

// Combined routes named procedures over the websocket transport and entity
// CRUD over HTTP.
type Combined struct {
	HTTP *HTTP
	WS   *WS
}

func (c *Combined) Fetch(ctx context.Context, path string, query url.Values, out any) error {
	return c.HTTP.Fetch(ctx, path, query, out)
}

func (c *Combined) Create(ctx context.Context, path string, in, out any) error {
	return c.HTTP.Create(ctx, path, in, out)
}

func (c *Combined) Update(ctx context.Context, path string, in, out any) error {
	return c.HTTP.Update(ctx, path, in, out)
}

func (c *Combined) Delete(ctx context.Context, path string) error {
	return c.HTTP.Delete(ctx, path)
}

func (c *Combined) Call(ctx context.Context, proc string, params, out any) error {
	return c.WS.Call(ctx, proc, params, out)
}

func (c *Combined) SetToken(token string) {
	c.HTTP.SetToken(token)
	c.WS.SetToken(token)
}

func (c *Combined) UseScope(scope models.Scope) {
	c.HTTP.UseScope(scope)
	c.WS.UseScope(scope)
}

func (c *Combined) Close() error {
	wsErr := c.WS.Close()
	if err := c.HTTP.Close(); err != nil {
		return err
	}
	return wsErr
}
