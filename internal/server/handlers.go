package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/mj1618/desktop-automation/internal/engine"
	"github.com/mj1618/desktop-automation/internal/model"
	"github.com/mj1618/desktop-automation/internal/platform"
	"github.com/mj1618/desktop-automation/internal/selector"
)

// Element is the JSON form of a resolved element.
type Element struct {
	Key     string          `json:"key"`
	Role    string          `json:"role"`
	Name    string          `json:"name,omitempty"`
	ID      string          `json:"id,omitempty"`
	PID     int             `json:"pid,omitempty"`
	Bounds  platform.Bounds `json:"bounds"`
	Value   string          `json:"value,omitempty"`
	Enabled bool            `json:"enabled"`
	Focused bool            `json:"focused,omitempty"`
}

func toElement(el *engine.Element) (Element, error) {
	p, err := el.Properties()
	if err != nil {
		return Element{}, err
	}
	return Element{
		Key:     el.Key(),
		Role:    p.Role,
		Name:    p.Name,
		ID:      p.ID,
		PID:     p.PID,
		Bounds:  p.Bounds,
		Value:   p.Value,
		Enabled: p.Enabled,
		Focused: p.Focused,
	}, nil
}

// Lookup names the element a request works on.
type Lookup struct {
	Selector string `json:"selector"`
	// App scopes the lookup to an application (fuzzy name match).
	App       string `json:"app,omitempty"`
	TimeoutMs int    `json:"timeout_ms,omitempty"`
}

// FindRequest is the body of POST /find.
type FindRequest struct {
	Lookup
	All   bool `json:"all,omitempty"`
	Depth int  `json:"depth,omitempty"`
}

// FindResponse is returned by POST /find.
type FindResponse struct {
	OK       bool      `json:"ok"`
	Count    int       `json:"count"`
	Elements []Element `json:"elements"`
}

// ActionRequest is the body of POST /action. Only the fields the action
// uses are read.
type ActionRequest struct {
	Lookup
	Action    string  `json:"action"`
	Text      string  `json:"text,omitempty"`
	Clear     bool    `json:"clear,omitempty"`
	Keys      string  `json:"keys,omitempty"`
	Value     string  `json:"value,omitempty"`
	On        bool    `json:"on,omitempty"`
	Number    float64 `json:"number,omitempty"`
	Direction string  `json:"direction,omitempty"`
	Amount    int     `json:"amount,omitempty"`
}

// ActionResponse is returned by POST /action.
type ActionResponse struct {
	OK        bool          `json:"ok"`
	Action    string        `json:"action"`
	Target    Element       `json:"target"`
	Validated *bool         `json:"validated,omitempty"`
	Point     *engine.Point `json:"point,omitempty"`
}

// EvalRequest is the body of POST /eval.
type EvalRequest struct {
	Lookup
	Script string `json:"script"`
}

// TreeResponse is returned by GET /tree.
type TreeResponse struct {
	OK    bool        `json:"ok"`
	PID   int         `json:"pid"`
	Count int         `json:"count"`
	Tree  *model.Node `json:"tree"`
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return platform.NewError(platform.CodeInvalidArgument, "invalid request body").WithCause(err)
	}
	return nil
}

func (s *Server) resolve(r *http.Request, l Lookup) (*engine.Element, error) {
	if l.Selector == "" {
		return nil, platform.NewError(platform.CodeInvalidArgument, "selector is required")
	}
	var root *engine.Element
	if l.App != "" {
		app, err := s.engine.Application(r.Context(), l.App)
		if err != nil {
			return nil, err
		}
		root = app
	}
	timeout := time.Duration(l.TimeoutMs) * time.Millisecond
	return s.engine.FindElement(r.Context(), selector.Parse(l.Selector), root, timeout)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.engine.Health(r.Context())
	status := http.StatusOK
	if report.Status != engine.StatusOK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func (s *Server) handleWindows(w http.ResponseWriter, r *http.Request) {
	windows, err := s.engine.Windows(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]model.Window, 0, len(windows))
	for _, win := range windows {
		out = append(out, win.Snapshot())
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMonitors(w http.ResponseWriter, r *http.Request) {
	mons, err := s.engine.Monitors(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mons)
}

// handleTree snapshots a window: ?pid= (default: the frontmost window's
// process), ?title=, ?mode=smart|fast|complete, ?depth=.
func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cfg := engine.DefaultTreeBuildConfig()
	if m := q.Get("mode"); m != "" {
		mode, err := engine.ParsePropertyMode(m)
		if err != nil {
			s.writeError(w, err)
			return
		}
		cfg.PropertyMode = mode
	}
	if d := q.Get("depth"); d != "" {
		depth, err := strconv.Atoi(d)
		if err != nil || depth < 1 {
			s.writeError(w, platform.Errorf(platform.CodeInvalidArgument, "invalid depth %q", d))
			return
		}
		cfg.MaxDepth = depth
	}
	pid := 0
	if p := q.Get("pid"); p != "" {
		v, err := strconv.Atoi(p)
		if err != nil {
			s.writeError(w, platform.Errorf(platform.CodeInvalidArgument, "invalid pid %q", p))
			return
		}
		pid = v
	}
	title := q.Get("title")
	if pid == 0 {
		windows, err := s.engine.Windows(r.Context())
		if err != nil {
			s.writeError(w, err)
			return
		}
		if len(windows) == 0 {
			s.writeError(w, platform.NewError(platform.CodeElementNotFound, "no windows are open"))
			return
		}
		pid = windows[0].PID
		if title == "" {
			title = windows[0].Title
		}
	}
	tree, err := s.engine.GetWindowTree(r.Context(), pid, title, cfg)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TreeResponse{OK: true, PID: pid, Count: tree.Count(), Tree: tree})
}

func (s *Server) handleFind(w http.ResponseWriter, r *http.Request) {
	var req FindRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	var els []*engine.Element
	if req.All {
		if req.Selector == "" {
			s.writeError(w, platform.NewError(platform.CodeInvalidArgument, "selector is required"))
			return
		}
		var root *engine.Element
		if req.App != "" {
			app, err := s.engine.Application(r.Context(), req.App)
			if err != nil {
				s.writeError(w, err)
				return
			}
			root = app
		}
		found, err := s.engine.FindElements(r.Context(), selector.Parse(req.Selector), root,
			time.Duration(req.TimeoutMs)*time.Millisecond, req.Depth)
		if err != nil {
			s.writeError(w, err)
			return
		}
		els = found
	} else {
		el, err := s.resolve(r, req.Lookup)
		if err != nil {
			s.writeError(w, err)
			return
		}
		els = []*engine.Element{el}
	}

	resp := FindResponse{OK: true, Elements: make([]Element, 0, len(els))}
	for _, el := range els {
		e, err := toElement(el)
		if err != nil {
			s.writeError(w, err)
			return
		}
		resp.Elements = append(resp.Elements, e)
	}
	resp.Count = len(resp.Elements)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	s.actionMu.Lock()
	defer s.actionMu.Unlock()

	el, err := s.resolve(r, req.Lookup)
	if err != nil {
		s.writeError(w, err)
		return
	}
	target, err := toElement(el)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp, err := s.perform(r, el, req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp.OK, resp.Action, resp.Target = true, req.Action, target
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) perform(r *http.Request, el *engine.Element, req ActionRequest) (ActionResponse, error) {
	ctx := r.Context()
	pointer := func(fn func() (engine.ActionResult, error)) (ActionResponse, error) {
		ar, err := fn()
		if err != nil {
			return ActionResponse{}, err
		}
		return ActionResponse{Validated: &ar.Validated, Point: &ar.Point}, nil
	}
	var err error
	switch req.Action {
	case "click":
		return pointer(func() (engine.ActionResult, error) { return el.Click(ctx) })
	case "double_click":
		return pointer(func() (engine.ActionResult, error) { return el.DoubleClick(ctx) })
	case "right_click":
		return pointer(func() (engine.ActionResult, error) { return el.RightClick(ctx) })
	case "hover":
		return pointer(func() (engine.ActionResult, error) { return el.Hover(ctx) })
	case "invoke":
		return pointer(func() (engine.ActionResult, error) { return el.Invoke(ctx) })
	case "focus":
		err = el.Focus(ctx)
	case "type":
		err = el.TypeText(ctx, req.Text, req.Clear)
	case "press":
		err = el.PressKey(ctx, req.Keys)
	case "set_value":
		err = el.SetValue(ctx, req.Value)
	case "set_toggled":
		err = el.SetToggled(ctx, req.On)
	case "set_selected":
		err = el.SetSelected(ctx, req.On)
	case "set_range":
		err = el.SetRangeValue(ctx, req.Number)
	case "scroll":
		if req.Direction == "" {
			req.Direction = string(platform.ScrollDown)
		}
		dir, perr := platform.ParseScrollDirection(req.Direction)
		if perr != nil {
			return ActionResponse{}, platform.NewError(platform.CodeInvalidArgument, perr.Error())
		}
		amount := req.Amount
		if amount <= 0 {
			amount = 3
		}
		err = el.Scroll(ctx, dir, amount)
	case "scroll_into_view":
		err = el.ScrollIntoView(ctx)
	case "close":
		err = el.Close(ctx)
	default:
		return ActionResponse{}, platform.NewError(platform.CodeInvalidArgument, fmt.Sprintf("unknown action %q", req.Action))
	}
	return ActionResponse{}, err
}

func (s *Server) handleEval(w http.ResponseWriter, r *http.Request) {
	var req EvalRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Script == "" {
		s.writeError(w, platform.NewError(platform.CodeInvalidArgument, "script is required"))
		return
	}
	el, err := s.resolve(r, req.Lookup)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out, err := el.ExecuteScript(r.Context(), req.Script)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "result": out})
}
