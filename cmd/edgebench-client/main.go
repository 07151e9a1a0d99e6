package main

import (
	"context"
	"flag"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/m-lab/go/flagx"
	"github.com/m-lab/go/prometheusx"
	"github.com/m-lab/go/rtx"

	"github.com/edgebench/edgebench/internal/dashboard"
	"github.com/edgebench/edgebench/internal/persistence"
	"github.com/edgebench/edgebench/pkg/bench"
	"github.com/edgebench/edgebench/pkg/spec"
	"github.com/edgebench/edgebench/pkg/version"
)

const clientName = "edgebench-client"

var (
	flagServer = flag.String("server", "",
		"Base URL of an edgebench server; used to build the default registry when -registry is not given")
	flagRegistry = flag.String("registry", "",
		"Path to a YAML endpoint registry")
	flagRuns  = flag.Int("runs", spec.DefaultRunCount, "Number of rounds")
	flagDelay = flag.Duration("delay", spec.DefaultInterRoundDelay,
		"Delay between rounds")
	flagTimeout = flag.Duration("timeout", spec.DefaultMeasureTimeout,
		"Per-request timeout")
	flagOutput = flag.String("output", "",
		"Directory to write the run archive to")
	flagDashboard = flag.String("dashboard", "",
		"Listen address for the live progress WebSocket (empty disables it)")
	flagDebug = flag.Bool("debug", false, "Enable debug output")
)

func makeUserAgent() string {
	return clientName + "/" + version.Version
}

func main() {
	flag.Parse()
	rtx.Must(flagx.ArgsFromEnv(flag.CommandLine), "could not get args from env")

	if *flagDebug {
		log.SetLevel(log.DebugLevel)
	}

	var registry *bench.Registry
	var err error
	switch {
	case *flagRegistry != "":
		registry, err = bench.LoadRegistry(*flagRegistry)
		rtx.Must(err, "failed to load registry %s", *flagRegistry)
	case *flagServer != "":
		registry, err = bench.DefaultRegistry(*flagServer)
		rtx.Must(err, "failed to build default registry")
	default:
		log.Fatal("either -registry or -server must be provided")
	}

	emitters := []bench.Emitter{bench.HumanReadable{Debug: *flagDebug}}
	if *flagDashboard != "" {
		broadcaster := dashboard.NewBroadcaster()
		defer broadcaster.Close()
		emitters = append(emitters, broadcaster)

		mux := http.NewServeMux()
		mux.Handle("/edgebench/v1/events", broadcaster)
		srv := &http.Server{
			Addr:         *flagDashboard,
			Handler:      mux,
			ReadTimeout:  time.Minute,
			WriteTimeout: time.Minute,
		}
		defer srv.Close()
		go func() {
			log.Info("Serving live progress", "endpoint", *flagDashboard)
			if err := srv.ListenAndServe(); err != http.ErrServerClosed {
				log.Error("dashboard server failed", "error", err)
			}
		}()
	}

	mid := uuid.NewString()
	runner := bench.NewRunner(registry, bench.Config{
		RunCount:        *flagRuns,
		InterRoundDelay: *flagDelay,
		Timeout:         *flagTimeout,
		UserAgent:       makeUserAgent(),
		Emitter:         bench.MultiEmitter(emitters...),
	})

	log.Info("Starting benchmark run", "mid", mid,
		"endpoints", registry.Len(), "runs", *flagRuns)
	result, err := runner.Run(context.Background())
	if err != nil {
		log.Fatal("benchmark run failed", "error", err)
	}

	printSummaryTable(registry.Endpoints(), result.Summary)

	if *flagOutput != "" {
		archive := result.Archive(prometheusx.GitShortCommit, version.Version, mid)
		df, err := persistence.WriteDataFile(*flagOutput, "benchmark", mid, archive)
		if err != nil {
			log.Error("failed to write run archive", "mid", mid, "error", err)
			return
		}
		log.Info("Run archive written", "path", df.Path, "size", df.Size)
	}
}
