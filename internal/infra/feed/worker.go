package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"frac_ledger/internal/domain"
	"frac_ledger/internal/engine"
	"frac_ledger/internal/event"
	"frac_ledger/internal/infra"
	"frac_ledger/internal/parser"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sony/gobreaker"
)

const (
	maxRetries       = 10
	handshakeTimeout = 10 * time.Second
	readTimeout      = 60 * time.Second
	writeTimeout     = 10 * time.Second
	breakerTrip      = 5
	breakerCooldown  = 30 * time.Second
)

// inboundMessage is what the host pushes. Messages without seq are control traffic.
type inboundMessage struct {
	Type      string           `json:"type"`
	Seq       *uint64          `json:"seq"`
	Ts        int64            `json:"ts"`
	Initiator string           `json:"initiator"`
	Command   string           `json:"command,omitempty"`
	Dispatch  *domain.Dispatch `json:"dispatch,omitempty"`
}

type subscribeMessage struct {
	Type    string `json:"type"`
	Session string `json:"session"`
	FromSeq uint64 `json:"fromSeq"`
}

// ResultMessage reports one op outcome back to the host.
type ResultMessage struct {
	Type    string `json:"type"`
	Seq     uint64 `json:"seq"`
	OK      bool   `json:"ok"`
	Kind    string `json:"kind,omitempty"`
	Ack     any    `json:"ack,omitempty"`
	Payload any    `json:"payload,omitempty"`
	Error   string `json:"error,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// NewResultMessage converts a sequencer outcome to its wire form.
func NewResultMessage(o engine.Outcome) ResultMessage {
	msg := ResultMessage{Type: "result", Seq: o.Seq}

	switch {
	case o.Err != nil:
		msg.Error = string(domain.CodeOf(o.Err))
		var le *domain.LedgerError
		if errors.As(o.Err, &le) {
			msg.Detail = le.Detail
		}
	case o.Response == nil:
		msg.OK = true
		msg.Kind = "noop"
	default:
		msg.OK = true
		msg.Kind = o.Response.Kind.String()
		if o.Response.Ack != nil {
			msg.Ack = o.Response.Ack
		} else {
			msg.Payload = o.Response.Payload
		}
	}
	return msg
}

// Worker handles the host feed WebSocket connection
type Worker struct {
	url      string
	token    string
	session  string
	inbox    chan<- *event.TxEvent
	position func() uint64 // next seq to request on (re)subscribe

	breaker *gobreaker.CircuitBreaker

	conn      *websocket.Conn
	mu        sync.RWMutex
	writeMu   sync.Mutex
	connected bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewWorker creates a new host feed worker. position reports the sequence the
// sequencer expects next.
func NewWorker(url, token string, inbox chan<- *event.TxEvent, position func() uint64) *Worker {
	w := &Worker{
		url:      url,
		token:    token,
		session:  uuid.New().String(),
		inbox:    inbox,
		position: position,
	}
	w.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "host-feed",
		Timeout: breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerTrip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			infra.GlobalMetrics.SetCircuitState(to == gobreaker.StateOpen)
			slog.Warn("Host feed circuit state changed",
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})
	return w
}

// Session returns the id sent with every subscribe.
func (w *Worker) Session() string {
	return w.session
}

// Connect starts the WebSocket connection with automatic reconnection
func (w *Worker) Connect(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.connectionLoop(ctx)

	return nil
}

// connectionLoop handles connection and reconnection with exponential backoff
func (w *Worker) connectionLoop(ctx context.Context) {
	defer w.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Host feed panic recovered", slog.Any("panic", r))
		}
	}()

	retryCount := 0
	for {
		select {
		case <-ctx.Done():
			slog.Info("Host feed connection loop stopped")
			return
		default:
		}

		_, err := w.breaker.Execute(func() (interface{}, error) {
			return nil, w.connect(ctx)
		})
		if err != nil {
			slog.Warn("Host feed connection failed",
				slog.Any("error", err),
				slog.Int("retry", retryCount),
			)

			// Exponential backoff
			delay := infra.CalculateBackoff(retryCount)
			retryCount++
			if retryCount > maxRetries {
				slog.Error("Host feed max retries exceeded, resetting counter")
				retryCount = 0
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		}

		// Connection successful, reset retry counter
		retryCount = 0

		// Read messages until error
		w.readLoop(ctx)
	}
}

// connect establishes the WebSocket connection and subscribes from the current position
func (w *Worker) connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
	}

	header := make(http.Header)
	if w.token != "" {
		header.Set("Authorization", "Bearer "+w.token)
	}

	conn, _, err := dialer.DialContext(ctx, w.url, header)
	if err != nil {
		return domain.NewNetworkError("dial", err)
	}

	w.mu.Lock()
	w.conn = conn
	w.connected = true
	w.mu.Unlock()
	infra.GlobalMetrics.IncrementConnections()

	if err := w.subscribe(); err != nil {
		w.closeConnection()
		return domain.NewNetworkError("subscribe", err)
	}

	slog.Info("Host feed connected",
		slog.String("session", w.session),
	)

	return nil
}

// subscribe asks the host to deliver ops from our next expected seq
func (w *Worker) subscribe() error {
	var from uint64 = 1
	if w.position != nil {
		from = w.position()
	}

	msgBytes, err := json.Marshal(subscribeMessage{
		Type:    "subscribe",
		Session: w.session,
		FromSeq: from,
	})
	if err != nil {
		return err
	}

	return w.threadSafeWrite(websocket.TextMessage, msgBytes)
}

// threadSafeWrite sends a message to the WebSocket connection in a thread-safe manner
func (w *Worker) threadSafeWrite(messageType int, data []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	w.mu.RLock()
	conn := w.conn
	w.mu.RUnlock()

	if conn == nil {
		return fmt.Errorf("connection is nil")
	}

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(messageType, data)
}

// Reply sends an op outcome to the host. Failures are logged; the host owns
// redelivery.
func (w *Worker) Reply(o engine.Outcome) {
	msgBytes, err := json.Marshal(NewResultMessage(o))
	if err != nil {
		slog.Error("Host feed result encode failed", slog.Uint64("seq", o.Seq), slog.Any("error", err))
		return
	}
	if err := w.threadSafeWrite(websocket.TextMessage, msgBytes); err != nil {
		infra.GlobalMetrics.RecordError()
		slog.Warn("Host feed result not delivered", slog.Uint64("seq", o.Seq), slog.Any("error", err))
	}
}

// readLoop reads messages from WebSocket
func (w *Worker) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		w.mu.RLock()
		conn := w.conn
		w.mu.RUnlock()

		if conn == nil {
			return
		}

		// Set read deadline
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("Host feed read error", slog.Any("error", err))
			}
			w.closeConnection()
			return
		}

		w.handleMessage(ctx, message)
	}
}

// handleMessage decodes one host message and hands ops to the sequencer
func (w *Worker) handleMessage(ctx context.Context, message []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		slog.Debug("Host feed message parse error", slog.Any("error", err))
		return
	}

	if msg.Seq == nil {
		slog.Debug("Host feed control message", slog.String("type", msg.Type))
		return
	}

	ev := event.AcquireTxEvent()
	ev.Seq = *msg.Seq
	ev.Ts = domain.TimeStamp(msg.Ts)
	ev.Type = msg.Type
	ev.Initiator = msg.Initiator
	ev.Dispatch = msg.Dispatch
	if ev.Dispatch == nil && msg.Command != "" {
		// An unparseable command still occupies its seq; execution rejects it.
		if d, ok := parser.Parse(msg.Command); ok {
			ev.Dispatch = &d
		}
	}

	// Ops are never dropped: order is the host's, a full inbox applies backpressure.
	select {
	case w.inbox <- ev:
	case <-ctx.Done():
		event.ReleaseTxEvent(ev)
	}
}

// closeConnection safely closes the WebSocket connection
func (w *Worker) closeConnection() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
	if w.connected {
		infra.GlobalMetrics.DecrementConnections()
	}
	w.connected = false
}

// Disconnect closes the WebSocket connection
func (w *Worker) Disconnect() {
	if w.cancel != nil {
		w.cancel()
	}
	w.closeConnection()
	w.wg.Wait()
	slog.Info("Host feed disconnected")
}

// IsConnected returns connection status
func (w *Worker) IsConnected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connected
}

var _ domain.HostFeed = (*Worker)(nil)
