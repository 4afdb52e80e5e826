package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultBridgeAddr is where the browser extension connects.
const DefaultBridgeAddr = "127.0.0.1:17373"

type bridgeRequest struct {
	ID           string `json:"id,omitempty"`
	Action       string `json:"action"`
	Code         string `json:"code,omitempty"`
	AwaitPromise bool   `json:"await_promise,omitempty"`
}

// bridgeMessage is anything the extension sends: eval results carry ok,
// the rest are tagged with type.
type bridgeMessage struct {
	ID     string          `json:"id"`
	Type   string          `json:"type"`
	OK     *bool           `json:"ok"`
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`

	From  string          `json:"from"`
	Level string          `json:"level"`
	Args  json.RawMessage `json:"args"`
}

type bridgeResult struct {
	value string
	err   string
}

type bridgeClient struct {
	conn      *websocket.Conn
	connected time.Time
	writeMu   sync.Mutex
}

func (c *bridgeClient) send(ctx context.Context, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.Write(ctx, websocket.MessageText, body)
}

// BridgeOptions configures a Bridge.
type BridgeOptions struct {
	Addr string
	// Heartbeat is the ping interval while an evaluation is outstanding.
	Heartbeat time.Duration
	// ClientWait bounds how long Evaluate waits for an extension to connect.
	ClientWait time.Duration
	Logger     *zap.Logger
}

// Bridge is a websocket server the browser extension connects to. The most
// recently connected extension receives evaluations.
type Bridge struct {
	opts   BridgeOptions
	logger *zap.Logger

	mu       sync.Mutex
	clients  []*bridgeClient
	pending  map[string]chan bridgeResult
	joined   chan struct{}
	listener net.Listener
	server   *http.Server
}

// NewBridge returns a bridge that is not listening yet.
func NewBridge(opts BridgeOptions) *Bridge {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Addr == "" {
		opts.Addr = DefaultBridgeAddr
	}
	if opts.ClientWait <= 0 {
		opts.ClientWait = 10 * time.Second
	}
	return &Bridge{
		opts:    opts,
		logger:  opts.Logger.With(zap.String("component", "extension_bridge")),
		pending: map[string]chan bridgeResult{},
		joined:  make(chan struct{}),
	}
}

// Start listens on the configured address and serves in the background.
func (b *Bridge) Start() error {
	ln, err := net.Listen("tcp", b.opts.Addr)
	if err != nil {
		return fmt.Errorf("%w: bridge listen %s: %v", errUnavailable, b.opts.Addr, err)
	}
	srv := &http.Server{Handler: b, ReadHeaderTimeout: 10 * time.Second}
	b.mu.Lock()
	b.listener, b.server = ln, srv
	b.mu.Unlock()
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			b.logger.Error("bridge server stopped", zap.Error(err))
		}
	}()
	b.logger.Info("extension bridge listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Addr is the listening address, or the configured one before Start.
func (b *Bridge) Addr() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listener != nil {
		return b.listener.Addr().String()
	}
	return b.opts.Addr
}

// Close stops the server and disconnects every extension.
func (b *Bridge) Close() error {
	b.mu.Lock()
	srv := b.server
	clients := b.clients
	b.clients = nil
	b.server, b.listener = nil, nil
	b.mu.Unlock()
	for _, c := range clients {
		_ = c.conn.Close(websocket.StatusGoingAway, "bridge closing")
	}
	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// Clients reports how many extensions are connected.
func (b *Bridge) Clients() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// ServeHTTP accepts an extension connection and reads from it until it
// goes away.
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Extensions connect from chrome-extension:// origins.
		InsecureSkipVerify: true,
	})
	if err != nil {
		b.logger.Warn("bridge handshake failed", zap.Error(err))
		return
	}
	conn.SetReadLimit(64 << 20)
	c := &bridgeClient{conn: conn, connected: time.Now()}
	b.addClient(c)
	defer b.removeClient(c)
	defer conn.Close(websocket.StatusNormalClosure, "")

	for {
		_, data, err := conn.Read(r.Context())
		if err != nil {
			b.logger.Debug("extension disconnected", zap.Error(err))
			return
		}
		var msg bridgeMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			b.logger.Warn("undecodable bridge message", zap.Error(err))
			continue
		}
		b.handle(msg)
	}
}

func (b *Bridge) handle(msg bridgeMessage) {
	switch {
	case msg.OK != nil && msg.ID != "":
		res := bridgeResult{value: rawString(msg.Result)}
		if !*msg.OK {
			res = bridgeResult{err: msg.Error}
			if res.err == "" {
				res.err = "unknown error"
			}
			b.logger.Warn("evaluation failed in the browser", zap.String("id", msg.ID), zap.String("error", truncate(res.err, 400)))
		}
		b.mu.Lock()
		ch, ok := b.pending[msg.ID]
		delete(b.pending, msg.ID)
		b.mu.Unlock()
		if ok {
			ch <- res
		}
	case msg.Type == "hello":
		b.logger.Info("extension said hello", zap.String("from", msg.From))
	case msg.Type == "heartbeat":
		b.logger.Debug("evaluation still running", zap.String("id", msg.ID))
	case msg.Type == "pong":
		b.logger.Debug("pong")
	case msg.Type == "console_event":
		b.logger.Info("browser console",
			zap.String("id", msg.ID),
			zap.String("level", msg.Level),
			zap.ByteString("args", msg.Args))
	default:
		b.logger.Debug("ignored bridge message", zap.String("type", msg.Type))
	}
}

func (b *Bridge) addClient(c *bridgeClient) {
	b.mu.Lock()
	b.clients = append(b.clients, c)
	close(b.joined)
	b.joined = make(chan struct{})
	n := len(b.clients)
	b.mu.Unlock()
	b.logger.Info("extension connected", zap.Int("clients", n))
}

func (b *Bridge) removeClient(c *bridgeClient) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, x := range b.clients {
		if x == c {
			b.clients = append(b.clients[:i], b.clients[i+1:]...)
			return
		}
	}
}

// latest waits up to ClientWait for a connected extension.
func (b *Bridge) latest(ctx context.Context) (*bridgeClient, error) {
	timer := time.NewTimer(b.opts.ClientWait)
	defer timer.Stop()
	for {
		b.mu.Lock()
		if n := len(b.clients); n > 0 {
			c := b.clients[n-1]
			b.mu.Unlock()
			return c, nil
		}
		joined := b.joined
		b.mu.Unlock()
		select {
		case <-joined:
		case <-timer.C:
			return nil, fmt.Errorf("%w: no browser extension connected to %s within %s", errUnavailable, b.Addr(), b.opts.ClientWait)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Evaluate sends code to the most recent extension and waits for its
// result. A script that throws yields "ERROR: <message>".
func (b *Bridge) Evaluate(ctx context.Context, code string) (string, error) {
	c, err := b.latest(ctx)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	ch := make(chan bridgeResult, 1)
	b.mu.Lock()
	b.pending[id] = ch
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
	}()

	if err := c.send(ctx, bridgeRequest{ID: id, Action: "eval", Code: code, AwaitPromise: true}); err != nil {
		return "", fmt.Errorf("%w: send to extension: %v", errUnavailable, err)
	}
	b.logger.Debug("evaluation sent", zap.String("id", id), zap.String("preview", truncate(code, 120)))

	stop := keepAlive(ctx, b.opts.Heartbeat, func(ctx context.Context) error {
		return c.send(ctx, bridgeRequest{Action: "ping"})
	}, b.logger)
	defer stop()

	select {
	case res := <-ch:
		if res.err != "" {
			return "ERROR: " + res.err, nil
		}
		return res.value, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
