package main

import (
	"fmt"
	"net/http"
	_ "net/http/pprof" // profiling endpoints under /debug/pprof

	"github.com/cuemby/relkv/pkg/rlog"
	"github.com/cuemby/relkv/pkg/rmetrics"
	"github.com/spf13/cobra"
)

var serveMetricsCmd = &cobra.Command{
	Use:   "serve-metrics",
	Short: "Serve Prometheus metrics and pprof profiling endpoints",
	Long: `serve-metrics starts an HTTP server exposing /metrics (the
scheduler/transaction/exchange gauges and counters in pkg/rmetrics) and,
when --enable-pprof is set, the standard net/http/pprof endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		pprofEnabled, _ := cmd.Flags().GetBool("enable-pprof")

		mux := http.NewServeMux()
		mux.Handle("/metrics", rmetrics.Handler())

		rlog.Logger.Info().Str("addr", addr).Msg("serving metrics")
		fmt.Printf("Metrics: http://%s/metrics\n", addr)
		if pprofEnabled {
			// the blank pprof import registers its handlers on DefaultServeMux
			mux.Handle("/debug/pprof/", http.DefaultServeMux)
			fmt.Printf("Profiling endpoints enabled at http://%s/debug/pprof/\n", addr)
		}
		return http.ListenAndServe(addr, mux)
	},
}

func init() {
	serveMetricsCmd.Flags().String("addr", ":9090", "Address to serve metrics and pprof on")
	serveMetricsCmd.Flags().Bool("enable-pprof", false, "Enable pprof profiling endpoints")
}
