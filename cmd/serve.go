package cmd

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/mj1618/desktop-automation/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the automation engine over HTTP",
	Long: `Start an HTTP JSON API over one long-lived engine. Element properties are
cached between requests and invalidated after every action.

Endpoints:
  GET  /healthz   backend probe (503 when degraded)
  GET  /windows   top-level windows, frontmost first
  GET  /monitors  displays
  GET  /tree      ?pid= &title= &mode= &depth=
  POST /find      {"selector", "app", "timeout_ms", "all", "depth"}
  POST /action    {"selector", "action", ...}
  POST /eval      {"selector", "script"}
  GET  /metrics   prometheus metrics (metrics.enabled)

Examples:
  desktop-automation serve
  desktop-automation serve --addr 127.0.0.1:8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default: metrics.listen_addr)")
	serveCmd.Flags().Duration("request-timeout", 0, "Per-request deadline (default 30s)")
}

func runServe(cmd *cobra.Command, args []string) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	s, err := openSession(sessionOptions{scripts: true, registry: reg, useCache: true})
	if err != nil {
		return err
	}
	defer s.Close()

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = s.cfg.Metrics.ListenAddr
	}
	timeout, _ := cmd.Flags().GetDuration("request-timeout")

	opts := server.Options{Logger: s.logger, RequestTimeout: timeout}
	if s.metrics != nil {
		opts.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	}
	return server.Serve(cmd.Context(), addr, server.New(s.engine, opts), s.logger)
}
