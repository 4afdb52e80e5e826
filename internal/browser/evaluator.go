package browser

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/mj1618/desktop-automation/internal/config"
	"github.com/mj1618/desktop-automation/internal/engine"
	"github.com/mj1618/desktop-automation/internal/platform"
)

// Transport names reported in engine.ScriptResult.
const (
	TransportDevtools = "devtools"
	TransportBridge   = "bridge"
	TransportConsole  = "console"
)

// Evaluator implements engine.ScriptEvaluator by trying the devtools
// protocol, then the extension bridge, then the devtools console. A
// transport is skipped only when it is unreachable; a script that ran is
// never retried elsewhere.
type Evaluator struct {
	devtools *DevtoolsClient
	bridge   *Bridge
	console  *Console
	logger   *zap.Logger
}

// EvaluatorOptions selects the transports. Nil members are skipped.
type EvaluatorOptions struct {
	Devtools *DevtoolsClient
	Bridge   *Bridge
	Console  *Console
	Logger   *zap.Logger
}

// NewEvaluator combines the given transports.
func NewEvaluator(opts EvaluatorOptions) *Evaluator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{
		devtools: opts.Devtools,
		bridge:   opts.Bridge,
		console:  opts.Console,
		logger:   logger.With(zap.String("component", "script_evaluator")),
	}
}

// FromConfig builds an evaluator from the browser section of cfg. The
// bridge is started; Close stops it.
func FromConfig(cfg *config.Config, mac bool, logger *zap.Logger) *Evaluator {
	bc := cfg.Browser
	opts := EvaluatorOptions{
		Devtools: NewDevtoolsClient(cfg.DevtoolsURL, bc.HeartbeatInterval, logger),
		Logger:   logger,
	}
	if bc.BridgeAddr != "" {
		b := NewBridge(BridgeOptions{Addr: bc.BridgeAddr, Heartbeat: bc.HeartbeatInterval, Logger: logger})
		if err := b.Start(); err != nil {
			if logger != nil {
				logger.Warn("extension bridge disabled", zap.Error(err))
			}
		} else {
			opts.Bridge = b
		}
	}
	if bc.ConsoleFallback {
		opts.Console = NewConsole(mac, logger)
	}
	return NewEvaluator(opts)
}

// Evaluate implements engine.ScriptEvaluator.
func (ev *Evaluator) Evaluate(ctx context.Context, req engine.ScriptRequest) (engine.ScriptResult, error) {
	var tried []error
	if ev.devtools != nil {
		v, err := ev.devtools.Evaluate(ctx, req.WindowTitle, req.Code)
		if err == nil {
			return engine.ScriptResult{Value: v, Transport: TransportDevtools}, nil
		}
		if !errors.Is(err, errUnavailable) {
			return engine.ScriptResult{Transport: TransportDevtools}, scriptError(TransportDevtools, err)
		}
		ev.logger.Debug("devtools unavailable", zap.Error(err))
		tried = append(tried, err)
	}
	if ev.bridge != nil {
		v, err := ev.bridge.Evaluate(ctx, req.Code)
		if err == nil {
			return engine.ScriptResult{Value: v, Transport: TransportBridge}, nil
		}
		if !errors.Is(err, errUnavailable) {
			return engine.ScriptResult{Transport: TransportBridge}, scriptError(TransportBridge, err)
		}
		ev.logger.Debug("extension bridge unavailable", zap.Error(err))
		tried = append(tried, err)
	}
	if ev.console != nil {
		v, err := ev.console.Evaluate(ctx, req.UI, req.Code)
		if err == nil {
			return engine.ScriptResult{Value: v, Transport: TransportConsole}, nil
		}
		return engine.ScriptResult{Transport: TransportConsole}, scriptError(TransportConsole, err)
	}
	perr := platform.Unsupported("script execution: no browser transport is reachable")
	if len(tried) > 0 {
		perr = perr.WithCause(errors.Join(tried...))
	}
	return engine.ScriptResult{}, perr
}

// Close stops the extension bridge.
func (ev *Evaluator) Close() error {
	if ev.bridge == nil {
		return nil
	}
	return ev.bridge.Close()
}

func scriptError(transport string, err error) error {
	var perr *platform.Error
	if errors.As(err, &perr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return platform.NewError(platform.CodeTimeout, "script evaluation did not finish").WithCause(err)
	}
	return platform.NewPlatformError("execute_script", transport+" transport failed").WithCause(err)
}
