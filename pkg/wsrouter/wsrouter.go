package wsrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gorilla/websocket"
)

// ErrInvalidPayload marks a message that failed decoding or validation.
// ServeConn drops such messages without replying; the connection stays open.
var ErrInvalidPayload = errors.New("invalid payload")

type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type HandlerFunc[T any] func(ctx context.Context, conn *websocket.Conn, input T) error

// Middleware wraps a handler after the payload has been decoded and validated.
type Middleware func(next HandlerFunc[any]) HandlerFunc[any]

type Router struct {
	routes      map[string]HandlerFunc[json.RawMessage]
	middlewares []Middleware
	validate    func(any) error
	logger      *slog.Logger
}

// New creates a message router. validate may be nil; when set it runs against
// every decoded input before the handler chain.
func New(logger *slog.Logger, validate func(any) error) *Router {
	return &Router{
		routes:   make(map[string]HandlerFunc[json.RawMessage]),
		validate: validate,
		logger:   logger,
	}
}

// Use appends middlewares. Must be called before Handle.
func (r *Router) Use(mws ...Middleware) {
	r.middlewares = append(r.middlewares, mws...)
}

// Handle registers a typed handler for a message type. The payload is decoded
// into T, validated, then passed through the middleware chain.
func Handle[T any](r *Router, messageType string, handler HandlerFunc[T]) {
	middlewares := r.middlewares

	r.routes[messageType] = func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
		var input T
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &input); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
			}
		}

		if r.validate != nil {
			if err := r.validate(input); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
			}
		}

		next := func(ctx context.Context, conn *websocket.Conn, in any) error {
			return handler(ctx, conn, in.(T))
		}
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}

		return next(ctx, conn, input)
	}
}

// ServeConn reads messages from the connection until the transport fails.
// Unknown message types and invalid payloads are logged and dropped; handler
// errors are logged and never close the connection.
func (r *Router) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			r.logger.DebugContext(ctx, "malformed message dropped", "error", err)
			continue
		}

		mctx := context.WithValue(ctx, messageTypeKey, msg.Type)

		handler, ok := r.routes[msg.Type]
		if !ok {
			r.logger.DebugContext(mctx, "unknown message type", "type", msg.Type)
			continue
		}

		if err := handler(mctx, conn, msg.Payload); err != nil {
			if errors.Is(err, ErrInvalidPayload) {
				r.logger.DebugContext(mctx, "invalid payload dropped", "type", msg.Type, "error", err)
				continue
			}

			r.logger.InfoContext(mctx, "failed to handle message", "type", msg.Type, "error", err)
		}
	}
}
