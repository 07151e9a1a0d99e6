package handler_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/edgebench/edgebench/internal/binding"
	"github.com/edgebench/edgebench/internal/handler"
	"github.com/edgebench/edgebench/pkg/model"
	"github.com/edgebench/edgebench/pkg/spec"
)

func queryRequest(params string) *http.Request {
	return httptest.NewRequest(http.MethodGet, spec.QueryPath+"?"+params, nil)
}

func decodeEnvelope(t *testing.T, rw *httptest.ResponseRecorder) model.Envelope {
	t.Helper()
	var envelope model.Envelope
	if err := json.NewDecoder(rw.Result().Body).Decode(&envelope); err != nil {
		t.Fatalf("cannot decode envelope: %v", err)
	}
	return envelope
}

func TestHandler_QueryValidation(t *testing.T) {
	h := handler.New([]binding.Binding{
		{Name: "rest", UpstreamURL: "http://127.0.0.1:0/"},
	})
	defer h.Close()

	tests := []struct {
		name   string
		params string
		status int
	}{
		{"missing binding", "", http.StatusBadRequest},
		{"unknown binding", "binding=nope", http.StatusNotFound},
		{"invalid cache parameter", "binding=rest&cache=soon", http.StatusBadRequest},
		{"negative cache parameter", "binding=rest&cache=-1", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rw := httptest.NewRecorder()
			h.Query(rw, queryRequest(tt.params))
			if rw.Result().StatusCode != tt.status {
				t.Errorf("invalid HTTP status code %d (expected %d)",
					rw.Result().StatusCode, tt.status)
			}
		})
	}
}

func TestHandler_QueryProxied(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":1,"name":"first"}]`)
	}))
	defer upstream.Close()

	h := handler.New([]binding.Binding{
		{Name: "rest-us", Region: "iad1", UpstreamURL: upstream.URL},
	})
	defer h.Close()

	rw := httptest.NewRecorder()
	h.Query(rw, queryRequest("binding=rest-us"))

	if rw.Result().StatusCode != http.StatusOK {
		t.Fatalf("invalid HTTP status code %d (expected 200)", rw.Result().StatusCode)
	}
	if cc := rw.Result().Header.Get("Cache-Control"); cc != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", cc)
	}
	envelope := decodeEnvelope(t, rw)
	if envelope.Validate() != model.VerdictSuccess {
		t.Fatalf("invalid envelope: %+v", envelope)
	}
	if envelope.Binding != "rest-us" {
		t.Errorf("binding = %q, want rest-us", envelope.Binding)
	}
	if string(envelope.Data) != `[{"id":1,"name":"first"}]` {
		t.Errorf("unexpected data: %s", envelope.Data)
	}
	if *envelope.TimeMs <= 0 {
		t.Errorf("timeMs = %f, want > 0", *envelope.TimeMs)
	}
}

func TestHandler_QueryUpstreamFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer upstream.Close()

	h := handler.New([]binding.Binding{
		{Name: "rest", UpstreamURL: upstream.URL},
	})
	defer h.Close()

	rw := httptest.NewRecorder()
	h.Query(rw, queryRequest("binding=rest"))

	// Upstream failures are an application-level error inside the
	// envelope, not a transport error.
	if rw.Result().StatusCode != http.StatusOK {
		t.Fatalf("invalid HTTP status code %d (expected 200)", rw.Result().StatusCode)
	}
	envelope := decodeEnvelope(t, rw)
	if envelope.Validate() != model.VerdictErrorBody {
		t.Fatalf("expected error body, got: %+v", envelope)
	}
	if envelope.Binding != "rest" || envelope.TimeMs == nil {
		t.Errorf("error envelope lacks binding or timeMs: %+v", envelope)
	}
}

func TestHandler_QueryInvalidUpstreamBody(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>not json</html>")
	}))
	defer upstream.Close()

	h := handler.New([]binding.Binding{
		{Name: "rest", UpstreamURL: upstream.URL},
	})
	defer h.Close()

	rw := httptest.NewRecorder()
	h.Query(rw, queryRequest("binding=rest"))
	envelope := decodeEnvelope(t, rw)
	if envelope.Validate() != model.VerdictErrorBody {
		t.Errorf("invalid upstream JSON not reported: %+v", envelope)
	}
}

func TestHandler_QueryCached(t *testing.T) {
	var upstreamHits atomic.Int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamHits.Add(1)
		fmt.Fprint(w, `[{"id":1}]`)
	}))
	defer upstream.Close()

	h := handler.New([]binding.Binding{
		{Name: "rest", UpstreamURL: upstream.URL},
	})
	defer h.Close()

	first := httptest.NewRecorder()
	h.Query(first, queryRequest("binding=rest&cache=60"))
	if cc := first.Result().Header.Get("Cache-Control"); cc != "public, s-maxage=60" {
		t.Errorf("Cache-Control = %q, want public, s-maxage=60", cc)
	}

	second := httptest.NewRecorder()
	h.Query(second, queryRequest("binding=rest&cache=60"))

	if hits := upstreamHits.Load(); hits != 1 {
		t.Errorf("upstream hit %d times, want 1 (second request served from cache)", hits)
	}

	// The cached envelope is served verbatim, original timeMs included.
	firstEnvelope := decodeEnvelope(t, first)
	secondEnvelope := decodeEnvelope(t, second)
	if *firstEnvelope.TimeMs != *secondEnvelope.TimeMs {
		t.Errorf("cached response has a different timeMs: %f != %f",
			*firstEnvelope.TimeMs, *secondEnvelope.TimeMs)
	}
}

func TestHandler_QueryDirectUnreachable(t *testing.T) {
	h := handler.New([]binding.Binding{
		{Name: "primary", ConnString: "postgres://bench@127.0.0.1:9/bench?connect_timeout=1"},
	})
	defer h.Close()

	rw := httptest.NewRecorder()
	h.Query(rw, queryRequest("binding=primary"))

	if rw.Result().StatusCode != http.StatusOK {
		t.Fatalf("invalid HTTP status code %d (expected 200)", rw.Result().StatusCode)
	}
	envelope := decodeEnvelope(t, rw)
	if envelope.Validate() != model.VerdictErrorBody {
		t.Fatalf("unreachable database not reported in envelope: %+v", envelope)
	}
	if envelope.Binding != "primary" {
		t.Errorf("binding = %q, want primary", envelope.Binding)
	}
}
