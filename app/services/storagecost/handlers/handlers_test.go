package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ardanlabs/storagecost/app/services/storagecost/handlers"
	"github.com/ardanlabs/storagecost/business/core/display"
	"github.com/ardanlabs/storagecost/business/core/publish"
	"github.com/ardanlabs/storagecost/business/web/errs"
	"github.com/ardanlabs/storagecost/foundation/events"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// =============================================================================

type store struct {
	mu    sync.Mutex
	input string
}

func (s *store) SetInput(ctx context.Context, text string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = text
	return display.ByteSize(text), nil
}

func (s *store) View() display.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return display.View{Input: s.input, Bytes: display.ByteSize(s.input), Pending: []string{}, CanPublish: s.input != ""}
}

type publisher struct {
	mu      sync.Mutex
	store   *store
	pending map[publish.Strategy]bool
}

func (p *publisher) Submit(ctx context.Context, strategy publish.Strategy) (*publish.Task, error) {
	if p.store.View().Input == "" {
		return nil, publish.ErrEmptyInput
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pending[strategy] {
		return nil, publish.ErrPending
	}
	p.pending[strategy] = true

	task := publish.Task{ID: "task-1", Strategy: strategy, Data: p.store.View().Input, Started: time.Now()}
	return &task, nil
}

func (p *publisher) Cancel(strategy publish.Strategy) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.pending[strategy] {
		return publish.ErrNotPending
	}
	delete(p.pending, strategy)
	return nil
}

type poller struct{}

func (poller) Read(ctx context.Context, source display.Source) (string, error) {
	if source == display.ChildRead {
		return "", errors.New("execution reverted")
	}
	return "stored data", nil
}

func newMux(t *testing.T) http.Handler {
	return newMuxWith(t, &store{}, events.New())
}

func newMuxWith(t *testing.T, s *store, evts *events.Events) http.Handler {

	mux, err := handlers.PublicMux(handlers.MuxConfig{
		Shutdown:   make(chan os.Signal, 1),
		Log:        zap.NewNop().Sugar(),
		Tracer:     noop.NewTracerProvider().Tracer("test"),
		CORSOrigin: "*",
		Contract:   "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		Account:    "0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4",
		Store:      s,
		Publisher:  &publisher{store: s, pending: make(map[publish.Strategy]bool)},
		Poller:     poller{},
		Evts:       evts,
	})
	if err != nil {
		t.Fatalf("constructing mux: %s", err)
	}

	return mux
}

func send(mux http.Handler, method string, path string, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	return w
}

// =============================================================================

func TestInput(t *testing.T) {
	mux := newMux(t)

	t.Log("Given the need to edit the input through the api.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen a multi byte character is sent.", testID)
		{
			w := send(mux, http.MethodPut, "/v1/input", `{"data":"€"}`)
			if w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest %d:\tShould receive a status code of 200, got %d.", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould receive a status code of 200.", success, testID)

			var got struct {
				Data  string `json:"data"`
				Bytes int    `json:"bytes"`
			}
			if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to decode the response: %s", failed, testID, err)
			}
			if got.Bytes != 3 {
				t.Fatalf("\t%s\tTest %d:\tShould report 3 bytes, got %d.", failed, testID, got.Bytes)
			}
			t.Logf("\t%s\tTest %d:\tShould report 3 bytes.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the input is at the byte limit.", testID)
		{
			w := send(mux, http.MethodPut, "/v1/input", `{"data":"`+strings.Repeat("€", 43690)+`"}`)
			if w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest %d:\tShould accept 131070 bytes, got %d.", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould accept 131070 bytes.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the input exceeds the byte limit in fewer characters.", testID)
		{
			w := send(mux, http.MethodPut, "/v1/input", `{"data":"`+strings.Repeat("€", 43691)+`"}`)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("\t%s\tTest %d:\tShould reject 131073 bytes, got %d.", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould reject 131073 bytes.", success, testID)

			var resp errs.Response
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to decode the response: %s", failed, testID, err)
			}
			if _, exists := resp.Fields["data"]; !exists {
				t.Fatalf("\t%s\tTest %d:\tShould name the data field: %+v", failed, testID, resp)
			}
			t.Logf("\t%s\tTest %d:\tShould name the data field.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the document has unknown fields.", testID)
		{
			w := send(mux, http.MethodPut, "/v1/input", `{"text":"hello"}`)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("\t%s\tTest %d:\tShould receive a status code of 400, got %d.", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould receive a status code of 400.", success, testID)
		}
	}
}

func TestPublish(t *testing.T) {
	mux := newMux(t)

	t.Log("Given the need to start and cancel writes through the api.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the input is empty.", testID)
		{
			w := send(mux, http.MethodPost, "/v1/publish/event", "")
			if w.Code != http.StatusBadRequest {
				t.Fatalf("\t%s\tTest %d:\tShould receive a status code of 400, got %d.", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould receive a status code of 400.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a write is started twice.", testID)
		{
			send(mux, http.MethodPut, "/v1/input", `{"data":"hello"}`)

			w := send(mux, http.MethodPost, "/v1/publish/self", "")
			if w.Code != http.StatusAccepted {
				t.Fatalf("\t%s\tTest %d:\tShould receive a status code of 202, got %d.", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould receive a status code of 202.", success, testID)

			var task struct {
				TaskID   string `json:"task_id"`
				Strategy string `json:"strategy"`
				Status   string `json:"status"`
			}
			if err := json.NewDecoder(w.Body).Decode(&task); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to decode the response: %s", failed, testID, err)
			}
			if task.TaskID != "task-1" || task.Strategy != "self" || task.Status != "pending" {
				t.Fatalf("\t%s\tTest %d:\tShould describe the pending task: %+v", failed, testID, task)
			}
			t.Logf("\t%s\tTest %d:\tShould describe the pending task.", success, testID)

			w = send(mux, http.MethodPost, "/v1/publish/self", "")
			if w.Code != http.StatusConflict {
				t.Fatalf("\t%s\tTest %d:\tShould receive a status code of 409, got %d.", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould receive a status code of 409.", success, testID)

			w = send(mux, http.MethodDelete, "/v1/publish/self", "")
			if w.Code != http.StatusNoContent {
				t.Fatalf("\t%s\tTest %d:\tShould cancel with a status code of 204, got %d.", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould cancel with a status code of 204.", success, testID)

			w = send(mux, http.MethodDelete, "/v1/publish/self", "")
			if w.Code != http.StatusNotFound {
				t.Fatalf("\t%s\tTest %d:\tShould receive a status code of 404 with nothing pending, got %d.", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould receive a status code of 404 with nothing pending.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the write carries its own text.", testID)
		{
			w := send(mux, http.MethodPost, "/v1/publish/child", `{"data":"world"}`)
			if w.Code != http.StatusAccepted {
				t.Fatalf("\t%s\tTest %d:\tShould receive a status code of 202, got %d.", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould receive a status code of 202.", success, testID)

			var task struct {
				Data string `json:"data"`
			}
			if err := json.NewDecoder(w.Body).Decode(&task); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to decode the response: %s", failed, testID, err)
			}
			if task.Data != "world" {
				t.Fatalf("\t%s\tTest %d:\tShould write the text sent with the request, got %q.", failed, testID, task.Data)
			}
			t.Logf("\t%s\tTest %d:\tShould write the text sent with the request.", success, testID)

			w = send(mux, http.MethodGet, "/v1/state", "")
			if !strings.Contains(w.Body.String(), `"input":"world"`) {
				t.Fatalf("\t%s\tTest %d:\tShould store the text as the input: %s", failed, testID, w.Body.String())
			}
			t.Logf("\t%s\tTest %d:\tShould store the text as the input.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the write carries a malformed body.", testID)
		{
			w := send(mux, http.MethodPost, "/v1/publish/event", `{"data":`)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("\t%s\tTest %d:\tShould receive a status code of 400, got %d.", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould receive a status code of 400.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the strategy is unknown.", testID)
		{
			w := send(mux, http.MethodPost, "/v1/publish/ipfs", "")
			if w.Code != http.StatusBadRequest {
				t.Fatalf("\t%s\tTest %d:\tShould receive a status code of 400, got %d.", failed, testID, w.Code)
			}

			var resp errs.Response
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to decode the response: %s", failed, testID, err)
			}
			if _, exists := resp.Fields["strategy"]; !exists {
				t.Fatalf("\t%s\tTest %d:\tShould name the strategy field: %+v", failed, testID, resp)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the strategy field.", success, testID)
		}
	}
}

func TestReadAndPage(t *testing.T) {
	mux := newMux(t)

	tt := []struct {
		name   string
		method string
		path   string
		status int
		body   string
	}{
		{"self read", http.MethodGet, "/v1/read/self", http.StatusOK, "stored data"},
		{"failed child read", http.MethodGet, "/v1/read/child", http.StatusBadGateway, "execution reverted"},
		{"write source read", http.MethodGet, "/v1/read/event", http.StatusBadRequest, "source"},
		{"state", http.MethodGet, "/v1/state", http.StatusOK, `"can_publish":false`},
		{"page", http.MethodGet, "/", http.StatusOK, "Publish as separate contract"},
	}

	t.Log("Given the need to read state through the api.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen requesting %s.", testID, tst.name)
			{
				w := send(mux, tst.method, tst.path, "")
				if w.Code != tst.status {
					t.Fatalf("\t%s\tTest %d:\tShould receive a status code of %d, got %d.", failed, testID, tst.status, w.Code)
				}
				t.Logf("\t%s\tTest %d:\tShould receive a status code of %d.", success, testID, tst.status)

				if !strings.Contains(w.Body.String(), tst.body) {
					t.Fatalf("\t%s\tTest %d:\tShould contain %q: %s", failed, testID, tst.body, w.Body.String())
				}
				t.Logf("\t%s\tTest %d:\tShould contain %q.", success, testID, tst.body)
			}
		}
	}
}

func TestEvents(t *testing.T) {
	evts := events.New()
	defer evts.Shutdown()

	mux := newMuxWith(t, &store{input: "hello"}, evts)

	srv := httptest.NewServer(mux)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/events"

	next := func(t *testing.T, conn *websocket.Conn) display.View {
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))

		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("reading view: %s", err)
		}

		var v display.View
		if err := json.Unmarshal(msg, &v); err != nil {
			t.Fatalf("decoding view: %s", err)
		}
		return v
	}

	sendView := func(t *testing.T, v display.View) {
		msg, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("encoding view: %s", err)
		}
		evts.Send(msg)
	}

	t.Log("Given the need to push every rendered view to connected clients.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen a client connects before anything is rendered.", testID)
		{
			conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to connect: %s", failed, testID, err)
			}
			defer conn.Close()
			t.Logf("\t%s\tTest %d:\tShould be able to connect.", success, testID)

			if v := next(t, conn); v.Input != "hello" || v.Loading {
				t.Fatalf("\t%s\tTest %d:\tShould receive the current view first: %+v", failed, testID, v)
			}
			t.Logf("\t%s\tTest %d:\tShould receive the current view first.", success, testID)

			sendView(t, display.View{Seq: 1, Input: "hello", Loading: true, Pending: []string{"self_write"}})
			sendView(t, display.View{Seq: 2, Pending: []string{}, Display: "hello"})

			if v := next(t, conn); v.Seq != 1 || !v.Loading {
				t.Fatalf("\t%s\tTest %d:\tShould receive the pending view next: %+v", failed, testID, v)
			}
			t.Logf("\t%s\tTest %d:\tShould receive the pending view next.", success, testID)

			if v := next(t, conn); v.Seq != 2 || v.Loading || v.Display != "hello" {
				t.Fatalf("\t%s\tTest %d:\tShould receive the confirmed view last: %+v", failed, testID, v)
			}
			t.Logf("\t%s\tTest %d:\tShould receive the confirmed view last.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a client connects after views were rendered.", testID)
		{
			conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to connect: %s", failed, testID, err)
			}
			defer conn.Close()

			if v := next(t, conn); v.Seq != 2 || v.Display != "hello" {
				t.Fatalf("\t%s\tTest %d:\tShould receive the last rendered view: %+v", failed, testID, v)
			}
			t.Logf("\t%s\tTest %d:\tShould receive the last rendered view.", success, testID)
		}
	}
}
