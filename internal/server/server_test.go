package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mj1618/desktop-automation/internal/config"
	"github.com/mj1618/desktop-automation/internal/engine"
	"github.com/mj1618/desktop-automation/internal/model"
	"github.com/mj1618/desktop-automation/internal/platform"
	"github.com/mj1618/desktop-automation/internal/platform/virtual"
)

func newTestServer(t *testing.T, opts Options) (*httptest.Server, *virtual.Desktop) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Resolver.DefaultTimeout = 200 * time.Millisecond
	cfg.Resolver.PollInitial = 5 * time.Millisecond
	cfg.Resolver.PollMax = 20 * time.Millisecond
	cfg.Actions.StabilityGap = 5 * time.Millisecond
	cfg.Actions.InputRate = 100000
	cfg.Actions.InputBurst = 1000

	d := virtual.Demo(nil)
	e, err := engine.New(engine.Options{}, engine.WithConfig(cfg), engine.WithProvider(d.Provider()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })

	ts := httptest.NewServer(New(e, opts))
	t.Cleanup(ts.Close)
	return ts, d
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, Options{})
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	report := decodeBody[engine.HealthReport](t, resp)
	assert.Equal(t, "virtual", report.Platform)
	assert.Equal(t, engine.StatusOK, report.Status)
}

func TestWindows_FrontmostFirst(t *testing.T) {
	ts, _ := newTestServer(t, Options{})
	resp, err := http.Get(ts.URL + "/windows")
	require.NoError(t, err)
	defer resp.Body.Close()

	windows := decodeBody[[]model.Window](t, resp)
	require.Len(t, windows, 2)
	assert.Equal(t, "Untitled - Editor", windows[0].Title)
	assert.Equal(t, 4200, windows[0].PID)
	assert.Equal(t, "Calculator", windows[1].Title)
	assert.Equal(t, 1, windows[1].ZOrder)
}

func TestMonitors(t *testing.T) {
	ts, _ := newTestServer(t, Options{})
	resp, err := http.Get(ts.URL + "/monitors")
	require.NoError(t, err)
	defer resp.Body.Close()

	mons := decodeBody[[]platform.Monitor](t, resp)
	require.Len(t, mons, 1)
	assert.True(t, mons[0].IsPrimary)
}

func TestTree(t *testing.T) {
	ts, _ := newTestServer(t, Options{})

	t.Run("frontmost window", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/tree")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		tr := decodeBody[TreeResponse](t, resp)
		assert.Equal(t, 4200, tr.PID)
		assert.Equal(t, "Untitled - Editor", tr.Tree.Name)
		assert.Equal(t, tr.Tree.Count(), tr.Count)
	})

	t.Run("by pid", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/tree?pid=4100&mode=fast")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		tr := decodeBody[TreeResponse](t, resp)
		assert.Equal(t, "Calculator", tr.Tree.Name)
	})

	t.Run("bad mode", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/tree?mode=slow")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestFind(t *testing.T) {
	ts, _ := newTestServer(t, Options{})

	resp := postJSON(t, ts.URL+"/find", FindRequest{Lookup: Lookup{Selector: "Button|Save"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fr := decodeBody[FindResponse](t, resp)
	require.Equal(t, 1, fr.Count)
	assert.Equal(t, "Save", fr.Elements[0].Name)
	assert.Equal(t, "save", fr.Elements[0].ID)

	resp = postJSON(t, ts.URL+"/find", FindRequest{Lookup: Lookup{Selector: "role:Button", App: "calc"}, All: true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fr = decodeBody[FindResponse](t, resp)
	assert.Equal(t, 5, fr.Count)

	resp = postJSON(t, ts.URL+"/find", FindRequest{Lookup: Lookup{Selector: "Button|Nope"}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decodeBody[errorBody](t, resp)
	assert.False(t, body.OK)
	assert.Equal(t, platform.CodeElementNotFound, body.Error.Code)
}

func TestAction(t *testing.T) {
	ts, _ := newTestServer(t, Options{})

	resp := postJSON(t, ts.URL+"/action", ActionRequest{Lookup: Lookup{Selector: "Button|Save"}, Action: "click"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ar := decodeBody[ActionResponse](t, resp)
	assert.True(t, ar.OK)
	require.NotNil(t, ar.Point)
	assert.Equal(t, engine.Point{X: 830, Y: 665}, *ar.Point)

	resp = postJSON(t, ts.URL+"/action", ActionRequest{Lookup: Lookup{Selector: "Edit|Display"}, Action: "set_value", Value: "42"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = postJSON(t, ts.URL+"/find", FindRequest{Lookup: Lookup{Selector: "Edit|Display"}})
	fr := decodeBody[FindResponse](t, resp)
	require.Len(t, fr.Elements, 1)
	assert.Equal(t, "42", fr.Elements[0].Value)

	resp = postJSON(t, ts.URL+"/action", ActionRequest{Lookup: Lookup{Selector: "Button|Save"}, Action: "explode"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	ts, _ := newTestServer(t, Options{})
	resp := postJSON(t, ts.URL+"/find", map[string]any{"selector": "Button|Save", "bogus": 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMetricsMounted(t *testing.T) {
	ts, _ := newTestServer(t, Options{Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok_metric 1\n"))
	})})
	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(platform.CodeTimeout))
	assert.Equal(t, http.StatusConflict, statusFor(platform.CodeElementObscured))
	assert.Equal(t, http.StatusNotImplemented, statusFor(platform.CodeUnsupportedOperation))
	assert.Equal(t, http.StatusInternalServerError, statusFor(platform.CodePlatformError))
}
