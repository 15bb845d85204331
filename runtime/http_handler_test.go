package runtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/BDNK1/durable/runtime/action"
)

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	app := NewApp()
	if err := app.RegisterFunc("greet", greet); err != nil {
		t.Fatal(err)
	}
	g := gin.New()
	NewHttpHandler(discard, NewRunner(discard, app), app, g)
	return g
}

func serve(g *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	return w
}

func TestHttpHandler_Decide(t *testing.T) {
	g := newTestServer(t)

	tests := []struct {
		name       string
		body       string
		wantDone   bool
		wantOutput any
		wantCount  int
	}{
		{
			name:      "bare history array",
			body:      `[{"EventType":"ExecutionStarted","EventId":-1,"Input":"null"}]`,
			wantDone:  false,
			wantCount: 1,
		},
		{
			name: "payload object with camelCase and completed history",
			body: `{"instanceId":"abc","history":[
				{"eventType":0,"eventId":-1},
				{"eventType":"TaskScheduled","eventId":0,"name":"SayHello"},
				{"eventType":"TaskCompleted","eventId":-1,"taskScheduledId":0,"result":"\"Hello Tokyo!\""},
				{"eventType":"TaskScheduled","eventId":1,"name":"SayHello"},
				{"eventType":"TaskCompleted","eventId":-1,"taskScheduledId":1,"result":"\"Hello Seattle!\""}
			]}`,
			wantDone:   true,
			wantOutput: []any{"Hello Tokyo!", "Hello Seattle!"},
			wantCount:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(g, http.MethodPost, "/orchestrations/greet/decide", tt.body)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", w.Code, w.Body)
			}

			var d Decision
			if err := json.Unmarshal(w.Body.Bytes(), &d); err != nil {
				t.Fatalf("decoding decision: %v", err)
			}
			if d.IsDone != tt.wantDone {
				t.Errorf("isDone = %v, want %v", d.IsDone, tt.wantDone)
			}
			if tt.wantOutput != nil && !jsonEqual(d.Output, tt.wantOutput) {
				t.Errorf("output = %#v, want %#v", d.Output, tt.wantOutput)
			}
			if d.ActionCount() != tt.wantCount {
				t.Errorf("actions = %d, want %d", d.ActionCount(), tt.wantCount)
			}
			if a := d.Actions[0][0]; a.Type() != action.TypeCallActivity || a.Function() != "SayHello" {
				t.Errorf("first action = %#v", a)
			}
		})
	}
}

func TestHttpHandler_Errors(t *testing.T) {
	g := newTestServer(t)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"malformed json", "/orchestrations/greet/decide", `{`, http.StatusBadRequest},
		{"no history", "/orchestrations/greet/decide", `{"instanceId":"x"}`, http.StatusBadRequest},
		{"unknown orchestration", "/orchestrations/missing/decide", `[]`, http.StatusNotFound},
		{"nondeterministic history", "/orchestrations/greet/decide",
			`[{"EventType":"TaskScheduled","EventId":0,"Name":"Other"}]`, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(g, http.MethodPost, tt.path, tt.body)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.status, w.Body)
			}
			var body map[string]any
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body["message"] == nil {
				t.Errorf("expected message body, got %s", w.Body)
			}
		})
	}
}

func TestHttpHandler_List(t *testing.T) {
	w := serve(newTestServer(t), http.MethodGet, "/orchestrations", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var body struct {
		Orchestrations []string `json:"orchestrations"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Orchestrations) != 1 || body.Orchestrations[0] != "greet" {
		t.Errorf("orchestrations = %v", body.Orchestrations)
	}
}

func jsonEqual(a, b any) bool {
	x, _ := json.Marshal(a)
	y, _ := json.Marshal(b)
	return string(x) == string(y)
}

func TestHttpHandler_InstanceID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	app := NewApp()
	err := app.RegisterFunc("whoami", func(exec *Execution) (any, error) {
		return map[string]any{"instance": exec.InstanceID, "input": exec.Input}, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	g := gin.New()
	NewHttpHandler(discard, NewRunner(discard, app), app, g)

	tests := []struct {
		name string
		path string
		body string
		want map[string]any
	}{
		{
			name: "from payload",
			path: "/orchestrations/whoami/decide",
			body: `{"instanceId":"from-body","input":"{\"n\":1}","history":[]}`,
			want: map[string]any{"instance": "from-body", "input": map[string]any{"n": float64(1)}},
		},
		{
			name: "query overrides payload",
			path: "/orchestrations/whoami/decide?instanceId=from-query",
			body: `{"instanceId":"from-body","history":[]}`,
			want: map[string]any{"instance": "from-query", "input": nil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(g, http.MethodPost, tt.path, tt.body)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", w.Code, w.Body)
			}
			var d Decision
			if err := json.Unmarshal(w.Body.Bytes(), &d); err != nil {
				t.Fatal(err)
			}
			if !jsonEqual(d.Output, tt.want) {
				t.Errorf("output = %#v, want %#v", d.Output, tt.want)
			}
		})
	}
}
