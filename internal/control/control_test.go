package control

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"gitlab.com/gomidi/midi/v2"

	"github.com/TattooNOW/tattoonow-show/internal/models"
)

type fakeNavigator struct {
	mu    sync.Mutex
	calls []string
	label string
}

func (f *fakeNavigator) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeNavigator) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeNavigator) NextSlide() bool        { f.record("next"); return true }
func (f *fakeNavigator) PreviousSlide() bool    { f.record("previous"); return false }
func (f *fakeNavigator) ToggleQR() bool         { f.record("qr"); return true }
func (f *fakeNavigator) ToggleLowerThird() bool { f.record("lowerThird"); return true }
func (f *fakeNavigator) TogglePortfolioLayout() models.PortfolioLayout {
	f.record("layout")
	return models.LayoutFullscreen
}
func (f *fakeNavigator) JumpToSegment(label string) bool {
	f.record("jump")
	f.label = label
	return true
}

func TestDispatchVocabulary(t *testing.T) {
	nav := &fakeNavigator{}
	reqs := []Request{
		{Command: "next"},
		{Command: "previous"},
		{Command: "toggleQR"},
		{Command: "togglelowerthird"},
		{Command: "togglePortfolioLayout"},
		{Command: "jumpToSegment", Label: "Panel"},
	}
	for _, req := range reqs {
		if _, err := Dispatch(nav, req); err != nil {
			t.Fatalf("Dispatch(%+v): %v", req, err)
		}
	}
	want := []string{"next", "previous", "qr", "lowerThird", "layout", "jump"}
	got := nav.Calls()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("got calls %v, want %v", got, want)
	}
	if nav.label != "Panel" {
		t.Errorf("label %q", nav.label)
	}
}

func TestDispatchRejects(t *testing.T) {
	nav := &fakeNavigator{}
	if _, err := Dispatch(nav, Request{Command: "selfDestruct"}); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("got %v, want ErrUnknownCommand", err)
	}
	if _, err := Dispatch(nav, Request{Command: "jumpToSegment"}); err == nil {
		t.Error("jumpToSegment without label should fail")
	}
	if len(nav.Calls()) != 0 {
		t.Errorf("rejected commands reached the navigator: %v", nav.Calls())
	}
}

func TestDispatchReportsNoop(t *testing.T) {
	res, err := Dispatch(&fakeNavigator{}, Request{Command: "previous"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Changed {
		t.Error("expected Changed=false for a boundary no-op")
	}
}

func TestMIDITranslate(t *testing.T) {
	m := DefaultMIDIMapping()

	req, ok := m.Translate(midi.NoteOn(0, NoteFastForward, 100))
	if !ok || req.Command != string(CommandNext) {
		t.Errorf("fast forward: got %+v, %v", req, ok)
	}
	if _, ok := m.Translate(midi.NoteOn(0, NoteFastForward, 0)); ok {
		t.Error("zero-velocity note on should be ignored")
	}
	if _, ok := m.Translate(midi.NoteOff(0, NoteFastForward)); ok {
		t.Error("note off should be ignored")
	}
	req, ok = m.Translate(midi.ControlChange(0, CCFootSwitch, 127))
	if !ok || req.Command != string(CommandNext) {
		t.Errorf("foot switch: got %+v, %v", req, ok)
	}
	if _, ok := m.Translate(midi.ControlChange(0, CCFootSwitch, 0)); ok {
		t.Error("foot switch release should be ignored")
	}
	if _, ok := m.Translate(midi.NoteOn(0, 10, 100)); ok {
		t.Error("unbound key should not map")
	}
}

var upgrader = websocket.Upgrader{}

func deviceServer(t *testing.T, send []Request) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, req := range send {
			if err := conn.WriteJSON(req); err != nil {
				return
			}
		}
		conn.WriteMessage(websocket.TextMessage, []byte("{not json"))
		conn.WriteJSON(Request{Command: "toggleQR"})
		// keep the connection open until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBridgeDispatchesDeviceCommands(t *testing.T) {
	srv := deviceServer(t, []Request{{Command: "next"}, {Command: "bogus"}, {Command: "previous"}})
	nav := &fakeNavigator{}
	b := NewBridge(wsURL(srv), nav, BridgeOptions{InitialDelay: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()

	waitFor(t, func() bool { return len(nav.Calls()) == 3 })
	if got := strings.Join(nav.Calls(), ","); got != "next,previous,qr" {
		t.Errorf("got calls %s", got)
	}
	if !b.Available() {
		t.Error("bridge should report available while connected")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("bridge did not stop after cancel")
	}
	if b.Available() {
		t.Error("bridge still available after stop")
	}
}

func TestBridgeReconnectsPromptlyAfterDrop(t *testing.T) {
	const refusals = 10
	var mu sync.Mutex
	var dials int
	var accepted []time.Time
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		dials++
		refuse := dials <= refusals
		mu.Unlock()
		if refuse {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		mu.Lock()
		accepted = append(accepted, time.Now())
		first := len(accepted) == 1
		mu.Unlock()
		if first {
			// drop the first session right away
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			conn.Close()
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	b := NewBridge(wsURL(srv), &fakeNavigator{}, BridgeOptions{InitialDelay: time.Millisecond, MaxDelay: 5 * time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(accepted) >= 2
	})
	mu.Lock()
	gap := accepted[1].Sub(accepted[0])
	mu.Unlock()
	if gap > 500*time.Millisecond {
		t.Errorf("reconnect after a drop took %v; backoff was not reset", gap)
	}
}

func TestBridgeUnreachableDegradesSilently(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := wsURL(srv)
	srv.Close()

	b := NewBridge(url, &fakeNavigator{}, BridgeOptions{InitialDelay: 5 * time.Millisecond, MaxDelay: 20 * time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	b.Run(ctx)
	if b.Available() {
		t.Error("unreachable device reported available")
	}
}

func TestServeConnAcks(t *testing.T) {
	nav := &fakeNavigator{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		ServeConn(conn, nav, true)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(Request{Command: "next"}); err != nil {
		t.Fatal(err)
	}
	var res Result
	if err := conn.ReadJSON(&res); err != nil {
		t.Fatal(err)
	}
	if res.Command != CommandNext || !res.Changed {
		t.Errorf("unexpected ack %+v", res)
	}

	if err := conn.WriteJSON(Request{Command: "nope"}); err != nil {
		t.Fatal(err)
	}
	var errReply map[string]string
	if err := conn.ReadJSON(&errReply); err != nil {
		t.Fatal(err)
	}
	if errReply["error"] == "" {
		t.Errorf("expected error reply, got %v", errReply)
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/shows/ep-1/control" {
			http.NotFound(w, r)
			return
		}
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"command":"next","changed":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "ep-1")
	c.Delay = time.Millisecond
	res, err := c.Send(context.Background(), Request{Command: "next"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Command != CommandNext || !res.Changed {
		t.Errorf("result %+v", res)
	}
	if calls != 2 {
		t.Errorf("got %d calls, want 2", calls)
	}
}

func TestClientDoesNotRetryRejections(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"status":"invalid"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "ep-1")
	c.Delay = time.Millisecond
	if _, err := c.Send(context.Background(), Request{Command: "bogus"}); err == nil {
		t.Fatal("expected rejection")
	}
	if calls != 1 {
		t.Errorf("got %d calls, want 1", calls)
	}
}
