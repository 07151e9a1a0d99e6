package dashboard

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/edgebench/edgebench/pkg/model"
)

func dialObserver(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := strings.Replace(srv.URL, "http://", "ws://", 1)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("cannot connect observer: %v", err)
	}
	return conn
}

func TestBroadcaster(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()
	srv := httptest.NewServer(b)
	defer srv.Close()

	conn := dialObserver(t, srv)
	defer conn.Close()

	// Give the server side time to register the observer.
	deadline := time.Now().Add(time.Second)
	for {
		b.mu.Lock()
		registered := len(b.conns) == 1
		b.mu.Unlock()
		if registered {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("observer never registered")
		}
		time.Sleep(time.Millisecond)
	}

	ms := 12.5
	b.OnMeasurement(2, "direct", model.MeasurementResult{
		ClientTimeMs: &ms,
		Binding:      "primary",
	})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var event Event
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("cannot read event: %v", err)
	}
	if event.Type != "measurement" || event.RunID != 2 || event.EndpointID != "direct" {
		t.Errorf("unexpected event: %+v", event)
	}
	if event.Result == nil || *event.Result.ClientTimeMs != 12.5 {
		t.Errorf("event result not carried: %+v", event.Result)
	}
}

func TestBroadcaster_Summary(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()
	srv := httptest.NewServer(b)
	defer srv.Close()

	conn := dialObserver(t, srv)
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	for {
		b.mu.Lock()
		registered := len(b.conns) == 1
		b.mu.Unlock()
		if registered {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("observer never registered")
		}
		time.Sleep(time.Millisecond)
	}

	avg := 42.5
	b.OnSummary(&model.Summary{
		Stats: map[string]model.AggregateStat{
			"direct": {AvgClientTimeMs: &avg},
		},
		BestClient: "direct",
	})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var event Event
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("cannot read event: %v", err)
	}
	if event.Type != "summary" || event.Summary == nil {
		t.Fatalf("unexpected event: %+v", event)
	}
	if event.Summary.BestClient != "direct" {
		t.Errorf("summary not carried: %+v", event.Summary)
	}
}

func TestBroadcaster_NoObservers(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()
	// Broadcasting without observers must not panic or block.
	b.OnRunStart(4, 5)
	b.OnRoundStart(model.NewRunRecord(1, []string{"a"}))
}
