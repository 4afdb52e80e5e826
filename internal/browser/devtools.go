// Package browser evaluates JavaScript in a running browser. Three
// transports are tried in order: the devtools protocol, the extension
// bridge and, as a last resort, the devtools console driven through the
// browser window itself.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// DefaultDevtoolsURL is where Chromium browsers listen when started with
// --remote-debugging-port=9222.
const DefaultDevtoolsURL = "http://127.0.0.1:9222"

// errUnavailable marks failures that mean "this transport is not there",
// as opposed to a script that ran and failed.
var errUnavailable = errors.New("transport unavailable")

// Target is one entry of the devtools /json listing.
type Target struct {
	ID                   string `json:"id"`
	Type                 string `json:"type"`
	Title                string `json:"title"`
	URL                  string `json:"url"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// DevtoolsClient talks the Chrome devtools protocol.
type DevtoolsClient struct {
	endpoint  string
	http      *http.Client
	heartbeat time.Duration
	logger    *zap.Logger
	nextID    atomic.Int64
}

// NewDevtoolsClient returns a client for endpoint, e.g. http://127.0.0.1:9222.
// heartbeat is the ping interval while a result is outstanding.
func NewDevtoolsClient(endpoint string, heartbeat time.Duration, logger *zap.Logger) *DevtoolsClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if endpoint == "" {
		endpoint = DefaultDevtoolsURL
	}
	return &DevtoolsClient{
		endpoint:  strings.TrimRight(endpoint, "/"),
		http:      &http.Client{Timeout: 5 * time.Second},
		heartbeat: heartbeat,
		logger:    logger.With(zap.String("component", "devtools")),
	}
}

// Targets lists the debuggable targets.
func (c *DevtoolsClient) Targets(ctx context.Context) ([]Target, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/json", nil)
	if err != nil {
		return nil, fmt.Errorf("devtools request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: devtools endpoint %s: %v", errUnavailable, c.endpoint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: devtools endpoint %s answered %s", errUnavailable, c.endpoint, resp.Status)
	}
	var targets []Target
	if err := json.NewDecoder(resp.Body).Decode(&targets); err != nil {
		return nil, fmt.Errorf("decode devtools targets: %w", err)
	}
	return targets, nil
}

// pickTarget chooses the page whose title the window title carries, or the
// first page.
func pickTarget(targets []Target, windowTitle string) (Target, bool) {
	var first *Target
	wt := strings.ToLower(windowTitle)
	for i := range targets {
		t := &targets[i]
		if t.Type != "page" || t.WebSocketDebuggerURL == "" {
			continue
		}
		if first == nil {
			first = t
		}
		if title := strings.ToLower(t.Title); title != "" && wt != "" && strings.Contains(wt, title) {
			return *t, true
		}
	}
	if first == nil {
		return Target{}, false
	}
	return *first, true
}

type cdpRequest struct {
	ID     int64          `json:"id"`
	Method string         `json:"method"`
	Params map[string]any `json:"params,omitempty"`
}

type cdpResponse struct {
	ID     int64 `json:"id"`
	Result struct {
		Result struct {
			Type        string          `json:"type"`
			Value       json.RawMessage `json:"value"`
			Description string          `json:"description"`
		} `json:"result"`
		ExceptionDetails *struct {
			Text      string `json:"text"`
			Exception struct {
				Description string `json:"description"`
			} `json:"exception"`
		} `json:"exceptionDetails"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Evaluate runs code in the tab matching windowTitle with Runtime.evaluate.
// Thrown exceptions come back as "ERROR: <message>".
func (c *DevtoolsClient) Evaluate(ctx context.Context, windowTitle, code string) (string, error) {
	targets, err := c.Targets(ctx)
	if err != nil {
		return "", err
	}
	target, ok := pickTarget(targets, windowTitle)
	if !ok {
		return "", fmt.Errorf("%w: no page target at %s", errUnavailable, c.endpoint)
	}
	log := c.logger.With(zap.String("target", target.ID), zap.String("title", target.Title))

	conn, _, err := websocket.Dial(ctx, target.WebSocketDebuggerURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: dial %s: %v", errUnavailable, target.WebSocketDebuggerURL, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")
	conn.SetReadLimit(64 << 20)

	id := c.nextID.Add(1)
	body, err := json.Marshal(cdpRequest{
		ID:     id,
		Method: "Runtime.evaluate",
		Params: map[string]any{
			"expression":    code,
			"awaitPromise":  true,
			"returnByValue": true,
		},
	})
	if err != nil {
		return "", err
	}
	if err := conn.Write(ctx, websocket.MessageText, body); err != nil {
		return "", fmt.Errorf("devtools write: %w", err)
	}
	log.Debug("evaluate sent", zap.Int64("id", id), zap.Int("code_len", len(code)))

	stopPing := keepAlive(ctx, c.heartbeat, func(ctx context.Context) error { return conn.Ping(ctx) }, log)
	defer stopPing()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return "", fmt.Errorf("devtools read: %w", err)
		}
		var resp cdpResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			log.Debug("skipping undecodable devtools message", zap.Error(err))
			continue
		}
		if resp.ID != id {
			continue
		}
		if resp.Error != nil {
			return "", fmt.Errorf("devtools error %d: %s", resp.Error.Code, resp.Error.Message)
		}
		if ex := resp.Result.ExceptionDetails; ex != nil {
			msg := ex.Exception.Description
			if msg == "" {
				msg = ex.Text
			}
			return "ERROR: " + msg, nil
		}
		r := resp.Result.Result
		if r.Type == "undefined" {
			return "null", nil
		}
		return rawString(r.Value), nil
	}
}

// rawString renders a JSON value the way results are reported: strings
// unquoted, everything else as JSON text.
func rawString(v json.RawMessage) string {
	if len(v) == 0 {
		return "null"
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return string(v)
}

// keepAlive calls ping every interval until the returned stop function
// runs.
func keepAlive(ctx context.Context, interval time.Duration, ping func(context.Context) error, log *zap.Logger) func() {
	if interval <= 0 {
		return func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := ping(ctx); err != nil && ctx.Err() == nil {
					log.Warn("heartbeat ping failed", zap.Error(err))
				}
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
