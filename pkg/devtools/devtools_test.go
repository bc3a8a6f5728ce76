package devtools

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vango-dev/reactive/pkg/middleware"
	"github.com/vango-dev/reactive/pkg/reactive"
)

func buildDiff(t *testing.T, hub *Hub, extra ...reactive.Observer) *reactive.Store {
	t.Helper()
	obs := append([]reactive.Observer{hub}, extra...)
	s := reactive.New(reactive.WithID("test-store"), reactive.WithObserver(obs...))
	a := reactive.NewAtom(s, reactive.Key("a"), func() int { return 0 })
	b := reactive.NewAtom(s, reactive.Key("b"), func() int { return 0 })
	reactive.NewReaction(s, reactive.Key("diff"), func() int { return a.Observe() - b.Observe() })
	a.Set(10)
	hub.Publish(s)
	return s
}

func TestTakeGraph(t *testing.T) {
	hub := NewHub(16)
	buildDiff(t, hub)

	g := hub.Graph()
	if g.Store != "test-store" {
		t.Errorf("Store = %q, want test-store", g.Store)
	}
	if len(g.Cells) != 3 {
		t.Fatalf("expected 3 cells, got %d", len(g.Cells))
	}
	var diff CellView
	for _, c := range g.Cells {
		if c.Key == "diff" {
			diff = c
		}
	}
	if diff.Kind != "reaction" || diff.Value != "10" || !diff.HasValue {
		t.Errorf("unexpected diff cell %+v", diff)
	}
	if len(g.Edges) != 2 {
		t.Errorf("expected 2 edges, got %+v", g.Edges)
	}
	if g.Stats.Writes != 1 {
		t.Errorf("Stats.Writes = %d, want 1", g.Stats.Writes)
	}
}

func TestHubRingBuffer(t *testing.T) {
	hub := NewHub(4)
	s := reactive.New(reactive.WithObserver(hub))
	a := reactive.NewAtom(s, reactive.Key("a"), func() int { return 0 })
	for i := 1; i <= 10; i++ {
		a.Set(i)
	}

	recent := hub.Recent()
	if len(recent) != 4 {
		t.Fatalf("expected 4 buffered events, got %d", len(recent))
	}
	for i := 1; i < len(recent); i++ {
		if recent[i].Seq != recent[i-1].Seq+1 {
			t.Errorf("events out of order: %d then %d", recent[i-1].Seq, recent[i].Seq)
		}
	}
	if last := recent[len(recent)-1]; last.Kind != EventWrite || last.Key != "a" {
		t.Errorf("unexpected last event %+v", last)
	}
}

func TestHubSubscribe(t *testing.T) {
	hub := NewHub(8)
	s := reactive.New(reactive.WithObserver(hub))
	a := reactive.NewAtom(s, reactive.Key("a"), func() int { return 0 })

	backlog, live := hub.Subscribe("one", 4)
	if len(backlog) != 1 || backlog[0].Kind != EventRecompute {
		t.Fatalf("unexpected backlog %+v", backlog)
	}
	if hub.Subscribers() != 1 {
		t.Errorf("Subscribers() = %d, want 1", hub.Subscribers())
	}

	a.Set(1)
	select {
	case e := <-live:
		if e.Kind != EventWrite {
			t.Errorf("expected write event, got %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("no live event")
	}

	hub.Unsubscribe("one")
	if _, ok := <-live; ok {
		t.Error("expected channel to be closed after Unsubscribe")
	}
}

func TestHubSlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub(8)
	s := reactive.New(reactive.WithObserver(hub))
	a := reactive.NewAtom(s, reactive.Key("a"), func() int { return 0 })
	_, live := hub.Subscribe("slow", 1)

	for i := 0; i < 20; i++ {
		a.Set(i)
	}
	if got := len(live); got != 1 {
		t.Errorf("expected queue to hold 1 event, got %d", got)
	}
}

func TestHubFaultEvent(t *testing.T) {
	hub := NewHub(8)
	s := reactive.New(reactive.WithObserver(hub))
	_ = reactive.Catch(func() { reactive.Get[int](s, reactive.Key("nope")) })

	recent := hub.Recent()
	if len(recent) != 1 {
		t.Fatalf("expected 1 event, got %d", len(recent))
	}
	if recent[0].Kind != EventFault || recent[0].Code != reactive.CodeCellMissing {
		t.Errorf("unexpected fault event %+v", recent[0])
	}
}

func TestServerGraphAndEvents(t *testing.T) {
	hub := NewHub(32)
	buildDiff(t, hub)
	srv := NewServer(hub)

	req := httptest.NewRequest(http.MethodGet, "/graph", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /graph status = %d", rec.Code)
	}
	var g Graph
	if err := json.Unmarshal(rec.Body.Bytes(), &g); err != nil {
		t.Fatalf("decode graph: %v", err)
	}
	if len(g.Cells) != 3 {
		t.Errorf("expected 3 cells, got %d", len(g.Cells))
	}

	req = httptest.NewRequest(http.MethodGet, "/events", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	var events []Event
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(events) == 0 || events[len(events)-1].Kind != EventSnapshot {
		t.Errorf("expected the snapshot event last, got %+v", events)
	}

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("/metrics without gatherer: status = %d, want 404", rec.Code)
	}
}

func TestServerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	hub := NewHub(8)
	buildDiff(t, hub, middleware.Prometheus(middleware.WithRegistry(reg)))
	srv := NewServer(hub, WithGatherer(reg))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics status = %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "rxstate_writes_total") {
		t.Errorf("metrics output missing rxstate_writes_total:\n%s", body)
	}
}

func TestServerWebsocketStream(t *testing.T) {
	hub := NewHub(32)
	s := buildDiff(t, hub)
	srv := NewServer(hub)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var h hello
	if err := conn.ReadJSON(&h); err != nil {
		t.Fatalf("read hello: %v", err)
	}
	if h.Type != "hello" || h.Session == "" {
		t.Errorf("unexpected hello %+v", h)
	}

	backlog := len(hub.Recent())
	for i := 0; i < backlog; i++ {
		var e Event
		if err := conn.ReadJSON(&e); err != nil {
			t.Fatalf("read backlog %d: %v", i, err)
		}
	}

	b := reactive.NewAtom(s, reactive.Key("b"), func() int { return 0 })
	b.Set(4)

	var e Event
	if err := conn.ReadJSON(&e); err != nil {
		t.Fatalf("read live event: %v", err)
	}
	if e.Kind != EventWrite || e.Key != "b" {
		t.Errorf("expected write to b, got %+v", e)
	}
}

func TestServerServeShutdown(t *testing.T) {
	hub := NewHub(8)
	srv := NewServer(hub)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
