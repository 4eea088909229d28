package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// The graphql-transport-ws subprotocol.
const subprotocol = "graphql-transport-ws"

const (
	msgConnectionInit = "connection_init"
	msgConnectionAck  = "connection_ack"
	msgPing           = "ping"
	msgPong           = "pong"
	msgSubscribe      = "subscribe"
	msgNext           = "next"
	msgError          = "error"
	msgComplete       = "complete"
)

// wsMessage is the protocol envelope.
type wsMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WS runs subscriptions over the graphql-transport-ws protocol. Each
// Subscribe call dials its own connection.
type WS struct {
	url  string
	opts *Options
}

func NewWS(url string, opts ...Option) *WS {
	o := defaultOptions()
	for _, f := range opts {
		f(o)
	}
	return &WS{url: url, opts: o}
}

var _ SubscriptionTransport = (*WS)(nil)

// Subscribe implements SubscriptionTransport: dial, connection_init, await
// connection_ack, subscribe with a fresh message id, then deliver every next
// payload to handler until error, complete, or cancellation. Cancellation
// sends a best-effort complete and closes the socket.
func (t *WS) Subscribe(ctx context.Context, req Request, handler func(*Result) error) error {
	conn, _, err := websocket.Dial(ctx, t.url, &websocket.DialOptions{
		Subprotocols: []string{subprotocol},
		HTTPClient:   t.opts.HTTPClient,
		HTTPHeader:   t.opts.Header,
	})
	if err != nil {
		return fmt.Errorf("pipeline: dial %s: %w", t.url, err)
	}
	defer conn.Close(websocket.StatusInternalError, "")

	if err := t.handshake(ctx, conn); err != nil {
		return err
	}

	id := uuid.NewString()
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("pipeline: encode subscribe: %w", err)
	}
	if err := wsjson.Write(ctx, conn, wsMessage{ID: id, Type: msgSubscribe, Payload: payload}); err != nil {
		return fmt.Errorf("pipeline: subscribe: %w", err)
	}

	for {
		var msg wsMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if ctx.Err() != nil {
				t.complete(conn, id)
				return ctx.Err()
			}
			return fmt.Errorf("pipeline: read: %w", err)
		}
		switch msg.Type {
		case msgNext:
			if msg.ID != id {
				continue
			}
			res, err := decodeResult(msg.Payload)
			if err != nil {
				return err
			}
			if err := handler(res); err != nil {
				t.complete(conn, id)
				return err
			}
		case msgPing:
			if err := wsjson.Write(ctx, conn, wsMessage{Type: msgPong, Payload: msg.Payload}); err != nil {
				return fmt.Errorf("pipeline: pong: %w", err)
			}
		case msgError:
			if msg.ID != id {
				continue
			}
			var errs Errors
			if jsonErr := json.Unmarshal(msg.Payload, &errs); jsonErr != nil || len(errs) == 0 {
				return fmt.Errorf("pipeline: server error: %s", msg.Payload)
			}
			return errs
		case msgComplete:
			if msg.ID != id {
				continue
			}
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return nil
		}
	}
}

// handshake sends connection_init and waits for connection_ack, bounded by
// the ack timeout. Server pings arriving before the ack are answered.
func (t *WS) handshake(ctx context.Context, conn *websocket.Conn) error {
	ackCtx := ctx
	if t.opts.AckTimeout > 0 {
		var cancel context.CancelFunc
		ackCtx, cancel = context.WithTimeout(ctx, t.opts.AckTimeout)
		defer cancel()
	}
	if err := wsjson.Write(ackCtx, conn, wsMessage{Type: msgConnectionInit}); err != nil {
		return fmt.Errorf("pipeline: connection_init: %w", err)
	}
	for {
		var msg wsMessage
		if err := wsjson.Read(ackCtx, conn, &msg); err != nil {
			if errors.Is(ackCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
				return ErrAckTimeout
			}
			return fmt.Errorf("pipeline: await connection_ack: %w", err)
		}
		switch msg.Type {
		case msgConnectionAck:
			return nil
		case msgPing:
			if err := wsjson.Write(ackCtx, conn, wsMessage{Type: msgPong, Payload: msg.Payload}); err != nil {
				return fmt.Errorf("pipeline: pong: %w", err)
			}
		}
	}
}

// complete tells the server the client is done with the subscription and
// closes cleanly. Best effort on an already-broken connection.
func (t *WS) complete(conn *websocket.Conn, id string) {
	closeCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = wsjson.Write(closeCtx, conn, wsMessage{ID: id, Type: msgComplete})
	_ = conn.Close(websocket.StatusNormalClosure, "")
}
