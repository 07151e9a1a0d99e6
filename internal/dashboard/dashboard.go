// Package dashboard streams benchmark progress to WebSocket observers. It
// is the live view of a run: every emitter callback becomes one JSON event
// pushed to all connected clients.
package dashboard

import (
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/edgebench/edgebench/pkg/bench"
	"github.com/edgebench/edgebench/pkg/model"
)

// Event is one progress message sent to observers.
type Event struct {
	// Type is one of run-start, round-start, measurement, round-complete,
	// error or summary.
	Type string `json:"type"`

	// Endpoints and RunCount are set on run-start events.
	Endpoints int `json:"endpoints,omitempty"`
	RunCount  int `json:"runCount,omitempty"`

	// RunID is set on round and measurement events.
	RunID int `json:"runId,omitempty"`

	// EndpointID and Result are set on measurement events.
	EndpointID string                   `json:"endpointId,omitempty"`
	Result     *model.MeasurementResult `json:"result,omitempty"`

	// Record is set on round-start and round-complete events.
	Record *model.RunRecord `json:"record,omitempty"`

	// Error is set on error events.
	Error string `json:"error,omitempty"`

	// Summary is set on summary events.
	Summary *model.Summary `json:"summary,omitempty"`
}

// Broadcaster fans benchmark progress out to WebSocket observers. It
// implements bench.Emitter, so it can be combined with other emitters via
// bench.MultiEmitter.
type Broadcaster struct {
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewBroadcaster returns a Broadcaster with no connected observers.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		conns: map[*websocket.Conn]struct{}{},
	}
}

// ServeHTTP upgrades the request to a WebSocket and registers the
// connection as an observer. The connection is kept open until the peer
// closes it or a write fails.
func (b *Broadcaster) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	conn, err := b.upgrader.Upgrade(rw, req, nil)
	if err != nil {
		log.Info("Websocket upgrade failed", "source", req.RemoteAddr,
			"error", err)
		return
	}
	b.mu.Lock()
	b.conns[conn] = struct{}{}
	b.mu.Unlock()
	log.Debug("observer connected", "source", req.RemoteAddr)

	// Drain (and discard) incoming messages so close frames are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				b.remove(conn)
				return
			}
		}
	}()
}

func (b *Broadcaster) remove(conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.conns[conn]; ok {
		delete(b.conns, conn)
		conn.Close()
	}
}

// Close disconnects all observers.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(b.conns))
	for conn := range b.conns {
		conns = append(conns, conn)
	}
	b.mu.Unlock()
	for _, conn := range conns {
		b.remove(conn)
	}
}

func (b *Broadcaster) broadcast(event Event) {
	b.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(b.conns))
	for conn := range b.conns {
		conns = append(conns, conn)
	}
	b.mu.Unlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(event); err != nil {
			log.Debug("dropping observer", "error", err)
			b.remove(conn)
		}
	}
}

// OnRunStart broadcasts a run-start event.
func (b *Broadcaster) OnRunStart(endpoints, runCount int) {
	b.broadcast(Event{Type: "run-start", Endpoints: endpoints, RunCount: runCount})
}

// OnRoundStart broadcasts the freshly published round record.
func (b *Broadcaster) OnRoundStart(record *model.RunRecord) {
	b.broadcast(Event{Type: "round-start", RunID: record.RunID, Record: record})
}

// OnMeasurement broadcasts one resolved measurement.
func (b *Broadcaster) OnMeasurement(runID int, endpointID string, result model.MeasurementResult) {
	b.broadcast(Event{Type: "measurement", RunID: runID, EndpointID: endpointID,
		Result: &result})
}

// OnRoundComplete broadcasts the completed round record.
func (b *Broadcaster) OnRoundComplete(record *model.RunRecord) {
	b.broadcast(Event{Type: "round-complete", RunID: record.RunID, Record: record})
}

// OnError broadcasts an orchestration-fatal error.
func (b *Broadcaster) OnError(err error) {
	b.broadcast(Event{Type: "error", Error: err.Error()})
}

// OnSummary broadcasts the aggregate summary.
func (b *Broadcaster) OnSummary(summary *model.Summary) {
	b.broadcast(Event{Type: "summary", Summary: summary})
}

// Checks that Broadcaster implements bench.Emitter.
var _ bench.Emitter = &Broadcaster{}
