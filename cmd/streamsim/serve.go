package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/DaveBerkeley/streamfab"
	"github.com/DaveBerkeley/streamfab/logger"
	"github.com/DaveBerkeley/streamfab/metrics"
	"github.com/DaveBerkeley/streamfab/scenario"
)

var serveConfig struct {
	Address      string
	ScenarioPath string
	Period       time.Duration
}

// serveCmd exposes a running scenario's /metrics and /healthz over HTTP,
// grounded on packetd/server.Server's mux.Router + net.Listen shape.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a scenario's Prometheus metrics and a health check over HTTP",
	Run: func(cmd *cobra.Command, args []string) {
		collector := metrics.New()
		log := logger.New(logger.Options{Stdout: true, Level: string(logger.LevelInfo)})

		if serveConfig.ScenarioPath != "" {
			spec, err := scenario.Load(serveConfig.ScenarioPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to load scenario: %v\n", err)
				os.Exit(1)
			}
			built, err := scenario.Build(spec, streamfab.WithMetrics(collector), streamfab.WithLogger(log))
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to build scenario: %v\n", err)
				os.Exit(1)
			}
			go tickForever(built, serveConfig.Period)
		}

		router := mux.NewRouter()
		router.Methods(http.MethodGet).Path("/healthz").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		router.Methods(http.MethodGet).Path("/metrics").Handler(
			promhttp.HandlerFor(collector.Registry(), promhttp.HandlerOpts{}))

		l, err := net.Listen("tcp", serveConfig.Address)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to listen on %s: %v\n", serveConfig.Address, err)
			os.Exit(1)
		}
		log.Infof("streamsim serve listening on %s", serveConfig.Address)
		if err := http.Serve(l, router); err != nil {
			fmt.Fprintf(os.Stderr, "server stopped: %v\n", err)
			os.Exit(1)
		}
	},
	Example: "  streamsim serve --address :8080 --scenario ./scenarios/sum_signed.yaml",
}

func tickForever(built *scenario.Built, period time.Duration) {
	if period <= 0 {
		period = 10 * time.Millisecond
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for range ticker.C {
		built.Netlist.Tick()
	}
}

func init() {
	serveCmd.Flags().StringVar(&serveConfig.Address, "address", ":8080", "Address to listen on")
	serveCmd.Flags().StringVar(&serveConfig.ScenarioPath, "scenario", "", "Optional scenario YAML file to tick continuously while serving")
	serveCmd.Flags().DurationVar(&serveConfig.Period, "period", 10*time.Millisecond, "Interval between Netlist ticks when --scenario is set")
	rootCmd.AddCommand(serveCmd)
}
