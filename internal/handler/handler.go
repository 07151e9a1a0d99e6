// Package handler implements the benchmark target endpoints: thin HTTP
// handlers that run one fixed query against a named binding, time it and
// return the JSON envelope.
package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jellydator/ttlcache/v3"

	"github.com/edgebench/edgebench/internal/binding"
	"github.com/edgebench/edgebench/pkg/model"
	"github.com/edgebench/edgebench/pkg/spec"
)

// upstreamTimeout bounds the proxied REST round trip.
const upstreamTimeout = 10 * time.Second

// maxUpstreamBody bounds how much of an upstream response is read.
const maxUpstreamBody = 1 << 20

// Handler serves the benchmark query endpoint for a set of bindings.
type Handler struct {
	dbs       map[string]*binding.DB
	upstreams map[string]binding.Binding

	// cache holds recently served envelopes for cacheable requests, so a
	// cacheable hit inside its TTL does not touch the database. TTL expiry
	// is the only invalidation.
	cache  *ttlcache.Cache[string, model.Envelope]
	client *http.Client
}

// New returns a Handler serving the given bindings.
func New(bindings []binding.Binding) *Handler {
	h := &Handler{
		dbs:       map[string]*binding.DB{},
		upstreams: map[string]binding.Binding{},
		cache:     ttlcache.New[string, model.Envelope](),
		client: &http.Client{
			Timeout: upstreamTimeout,
		},
	}
	for _, b := range bindings {
		if b.Proxied() {
			h.upstreams[b.Name] = b
		} else {
			h.dbs[b.Name] = binding.NewDB(b)
		}
	}
	go h.cache.Start()
	return h
}

// Close stops the cache cleanup goroutine and releases all pools.
func (h *Handler) Close() {
	h.cache.Stop()
	for _, db := range h.dbs {
		db.Close()
	}
}

// Query serves GET /edgebench/v1/query?binding=<name>[&cache=<seconds>].
//
// The named binding runs the fixed benchmark query; the response envelope
// carries the rows, the server-side duration in milliseconds and the
// binding name. Database and upstream failures are reported inside the
// envelope with HTTP 200: they are application-level errors, not transport
// errors.
//
// With a valid cache parameter the response is marked CDN-cacheable for
// that many seconds and served from a server-side cache within the TTL;
// otherwise it is marked no-store.
func (h *Handler) Query(rw http.ResponseWriter, req *http.Request) {
	query := req.URL.Query()
	name := query.Get(spec.BindingParam)
	if name == "" {
		log.Info("Received request without binding", "source", req.RemoteAddr)
		http.Error(rw, "missing binding parameter", http.StatusBadRequest)
		return
	}

	cacheTTL, err := parseCacheTTL(query.Get(spec.CacheParam))
	if err != nil {
		log.Info("Received request with invalid cache parameter",
			"source", req.RemoteAddr, "error", err)
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}

	db, direct := h.dbs[name]
	upstream, proxied := h.upstreams[name]
	if !direct && !proxied {
		log.Info("Received request for unknown binding",
			"source", req.RemoteAddr, "binding", name)
		http.Error(rw, "unknown binding: "+name, http.StatusNotFound)
		return
	}

	if cacheTTL > 0 {
		rw.Header().Set("Cache-Control",
			fmt.Sprintf("public, s-maxage=%d", int(cacheTTL.Seconds())))
		key := name + ":" + query.Get(spec.CacheParam)
		if item := h.cache.Get(key); item != nil {
			cacheHits.WithLabelValues(name).Inc()
			writeEnvelope(rw, item.Value())
			return
		}
		envelope := h.run(req, db, upstream, name)
		if envelope.Error == "" {
			h.cache.Set(key, envelope, cacheTTL)
		}
		writeEnvelope(rw, envelope)
		return
	}

	rw.Header().Set("Cache-Control", "no-store")
	writeEnvelope(rw, h.run(req, db, upstream, name))
}

// run executes the benchmark query on the binding and builds the envelope.
func (h *Handler) run(req *http.Request, db *binding.DB, upstream binding.Binding,
	name string) model.Envelope {
	start := time.Now()
	var data json.RawMessage
	var err error
	if db != nil {
		data, err = h.queryDirect(req, db)
	} else {
		data, err = h.queryUpstream(req, upstream)
	}
	elapsed := time.Since(start)
	timeMs := float64(elapsed.Microseconds()) / 1000.0

	if err != nil {
		log.Debug("Benchmark query failed", "binding", name, "error", err)
		queryDuration.WithLabelValues(name, "error").Observe(elapsed.Seconds())
		return model.Envelope{
			TimeMs:  &timeMs,
			Binding: name,
			Error:   err.Error(),
		}
	}
	queryDuration.WithLabelValues(name, "success").Observe(elapsed.Seconds())
	return model.Envelope{
		Data:    data,
		TimeMs:  &timeMs,
		Binding: name,
	}
}

func (h *Handler) queryDirect(req *http.Request, db *binding.DB) (json.RawMessage, error) {
	row, err := db.QueryOne(req.Context())
	if err != nil {
		return nil, err
	}
	return json.Marshal(row)
}

func (h *Handler) queryUpstream(req *http.Request, upstream binding.Binding) (json.RawMessage, error) {
	upReq, err := http.NewRequestWithContext(req.Context(), http.MethodGet,
		upstream.UpstreamURL, nil)
	if err != nil {
		return nil, err
	}
	upReq.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(upReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("upstream returned HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	if err != nil {
		return nil, fmt.Errorf("cannot read upstream body: %w", err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("upstream returned invalid JSON")
	}
	return body, nil
}

func parseCacheTTL(value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("invalid cache parameter: %q", value)
	}
	return time.Duration(seconds) * time.Second, nil
}

func writeEnvelope(rw http.ResponseWriter, envelope model.Envelope) {
	rw.Header().Set("Content-Type", "application/json")
	b, err := json.Marshal(envelope)
	if err != nil {
		log.Error("cannot marshal envelope", "error", err)
		rw.WriteHeader(http.StatusInternalServerError)
		return
	}
	rw.Write(b)
}
