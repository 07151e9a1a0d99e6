package main

import (
	"context"
	"flag"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/m-lab/go/flagx"
	"github.com/m-lab/go/prometheusx"
	"github.com/m-lab/go/rtx"

	"github.com/edgebench/edgebench/internal/binding"
	"github.com/edgebench/edgebench/internal/handler"
	"github.com/edgebench/edgebench/pkg/spec"
)

var (
	flagCertFile = flag.String("cert", "", "The file with server certificates in PEM format.")
	flagKeyFile  = flag.String("key", "", "The file with server key in PEM format.")
	flagEndpoint = flag.String("addr", ":8080", "Listen address/port for benchmark queries")
	flagEnvFile  = flag.String("envfile", "", "Optional .env file with binding definitions")
	flagDebug    = flag.Bool("debug", false, "Enable debug output")

	// Context for the whole program.
	ctx, cancel = context.WithCancel(context.Background())
)

// httpServer creates a new *http.Server with explicit Read and Write
// timeouts, the provided address and handler.
func httpServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:    addr,
		Handler: h,
		// NOTE: set absolute read and write timeouts for server connections.
		// This prevents clients, or middleboxes, from opening a connection and
		// holding it open indefinitely.
		ReadTimeout:  time.Minute,
		WriteTimeout: time.Minute,
	}
}

func main() {
	flag.Parse()
	rtx.Must(flagx.ArgsFromEnv(flag.CommandLine), "could not get args from env")

	// Initialize logging and metrics.
	log.SetReportCaller(true)
	log.SetReportTimestamp(true)
	if *flagDebug {
		log.SetLevel(log.DebugLevel)
	}

	promSrv := prometheusx.MustServeMetrics()
	defer promSrv.Close()

	if *flagEnvFile != "" {
		rtx.Must(godotenv.Load(*flagEnvFile), "failed to load env file %s", *flagEnvFile)
	}
	bindings, err := binding.FromEnv()
	rtx.Must(err, "failed to read bindings from the environment")
	if len(bindings) == 0 {
		log.Fatal("no bindings configured", "dbPrefix", binding.DBPrefix,
			"restPrefix", binding.RESTPrefix)
	}
	for _, b := range bindings {
		log.Info("Binding configured", "name", b.Name, "region", b.Region,
			"proxied", b.Proxied())
	}

	queryHandler := handler.New(bindings)
	defer queryHandler.Close()

	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)
	mux.Get(spec.QueryPath, queryHandler.Query)
	mux.Get("/health", func(rw http.ResponseWriter, req *http.Request) {
		rw.WriteHeader(http.StatusOK)
	})

	srv := httpServer(*flagEndpoint, mux)
	log.Info("About to listen for benchmark queries", "endpoint", *flagEndpoint)
	go func() {
		var err error
		if *flagCertFile != "" && *flagKeyFile != "" {
			err = srv.ListenAndServeTLS(*flagCertFile, *flagKeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		rtx.Must(err, "could not start server")
		defer srv.Close()
	}()

	<-ctx.Done()
	cancel()
}
