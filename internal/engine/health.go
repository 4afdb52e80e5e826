package engine

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mj1618/desktop-automation/internal/platform"
)

// Health status values.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
)

// HealthReport is the result of a liveness probe.
type HealthReport struct {
	Platform      string            `json:"platform" yaml:"platform"`
	Status        string            `json:"status" yaml:"status"`
	Diagnostics   map[string]string `json:"diagnostics" yaml:"diagnostics"`
	CheckDuration time.Duration     `json:"check_duration" yaml:"check_duration"`
}

// Health probes the backend: the accessibility API, the desktop root and a
// first level of elements are checked concurrently. Any failure degrades
// the status and is reported in the "error" diagnostic.
func (e *Engine) Health(ctx context.Context) HealthReport {
	start := time.Now()
	report := HealthReport{
		Platform:    e.provider.Name,
		Status:      StatusOK,
		Diagnostics: map[string]string{},
	}
	var mu sync.Mutex
	set := func(k, v string) {
		mu.Lock()
		report.Diagnostics[k] = v
		mu.Unlock()
	}

	var g errgroup.Group
	g.Go(func() error {
		if e.provider.Prober == nil {
			set("api_available", "unknown")
			return nil
		}
		var res platform.ProbeResult
		if err := e.run(ctx, func() error {
			res = e.provider.Prober.Probe()
			return nil
		}); err != nil {
			set("api_available", "unknown")
			return err
		}
		for k, v := range res.Diagnostics {
			set(k, v)
		}
		set("api_available", strconv.FormatBool(res.APIAvailable))
		if !res.APIAvailable {
			return platform.NewError(platform.CodePlatformError, "accessibility API is not available")
		}
		return nil
	})
	g.Go(func() error {
		root, err := e.Root(ctx)
		if err != nil {
			set("desktop_accessible", "false")
			set("can_enumerate_elements", "false")
			return err
		}
		set("desktop_accessible", "true")
		kids, err := root.Children()
		if err != nil {
			set("can_enumerate_elements", "false")
			return err
		}
		set("can_enumerate_elements", "true")
		set("top_level_elements", strconv.Itoa(len(kids)))
		return nil
	})

	if err := g.Wait(); err != nil {
		report.Status = StatusDegraded
		report.Diagnostics["error"] = err.Error()
	}
	report.CheckDuration = time.Since(start)
	return report
}
