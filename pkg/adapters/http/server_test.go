package http

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/synthex"
	"github.com/aretw0/synthex/internal/testutils"
	"github.com/aretw0/synthex/pkg/adapters/memory"
	"github.com/aretw0/synthex/pkg/domain"
	"github.com/aretw0/synthex/pkg/session"
)

const naclProcedure = "To a solution of 1.0 g of NaCl in 10 mL of water was added 5 mL of ethanol. The mixture was stirred for 1 h."

// MockEngine for testing
type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) Submit(ctx context.Context, text string, cred domain.Credential) domain.Outcome {
	args := m.Called(ctx, text, cred)
	return args.Get(0).(domain.Outcome)
}

type fixture struct {
	handler  http.Handler
	stub     *testutils.StubExtractor
	sessions *session.Manager
}

func newFixture(t *testing.T, stub *testutils.StubExtractor, opts ...Option) *fixture {
	t.Helper()
	eng, err := synthex.New(synthex.WithExtractor(stub), synthex.WithDefaultCredential("server-key"))
	require.NoError(t, err)

	sessions := session.NewManager(memory.NewStore())
	handler, err := NewHandler(eng, sessions, opts...)
	require.NoError(t, err)

	return &fixture{handler: handler, stub: stub, sessions: sessions}
}

func (f *fixture) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestGetExtractor_IssuesSession(t *testing.T) {
	f := newFixture(t, testutils.NewStubExtractor())

	w := f.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Paste your chemical reaction procedure text below:")
	assert.Contains(t, w.Body.String(), `name="procedure"`)

	cookie := sessionCookie(t, w)
	assert.True(t, cookie.HttpOnly)

	sess, err := f.sessions.Peek(context.Background(), cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, domain.PageExtractor, sess.Page)
}

func TestPostExtract_Success(t *testing.T) {
	f := newFixture(t, testutils.NewStubExtractor(
		"MAKESOLUTION with 1.0 g NaCl and 10 mL water",
		"ADD ethanol (5 mL)",
		"STIR for 1 h",
	))

	w := f.do(postForm("/extract", url.Values{"procedure": {naclProcedure}}))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "Extracted Protocol Steps:")
	assert.Contains(t, body, `<li value="1">MAKESOLUTION with 1.0 g NaCl and 10 mL water</li>`)
	assert.Contains(t, body, `<li value="2">ADD ethanol (5 mL)</li>`)
	assert.Contains(t, body, `<li value="3">STIR for 1 h</li>`)

	require.Equal(t, 1, f.stub.Calls())
	req := f.stub.Requests()[0]
	assert.Equal(t, naclProcedure, req.Paragraph)
	assert.Equal(t, domain.Credential("server-key"), req.Credential)

	sess, err := f.sessions.Peek(context.Background(), sessionCookie(t, w).Value)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusIdle, sess.Status)
	require.NotNil(t, sess.LastOutcome)
	assert.Equal(t, domain.OutcomeSuccess, sess.LastOutcome.Kind)
}

// outcomeRejectingStore fails any Save that records an outcome.
type outcomeRejectingStore struct {
	*memory.Store
}

func (s *outcomeRejectingStore) Save(ctx context.Context, id string, sess *domain.Session) error {
	if sess.LastOutcome != nil {
		return errors.New("disk full")
	}
	return s.Store.Save(ctx, id, sess)
}

func TestPostExtract_OutcomeShownWhenNotRecorded(t *testing.T) {
	stub := testutils.NewStubExtractor("ADD water", "STIR")
	eng, err := synthex.New(synthex.WithExtractor(stub), synthex.WithDefaultCredential("server-key"))
	require.NoError(t, err)
	handler, err := NewHandler(eng, session.NewManager(&outcomeRejectingStore{Store: memory.NewStore()}))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, postForm("/extract", url.Values{"procedure": {"x"}}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `<li value="2">STIR</li>`)

	cookie := sessionCookie(t, w)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, postJSON("/api/v1/extract", `{"procedure":"x","session_id":"`+cookie.Value+`"}`))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"kind":"success"`)
	assert.Equal(t, 2, stub.Calls())
}

func TestPostExtract_Outcomes(t *testing.T) {
	tests := []struct {
		name     string
		stub     *testutils.StubExtractor
		text     string
		expected string
		calls    int
	}{
		{"Empty", testutils.NewStubExtractor("STIR"), "   ", "Please enter some reaction procedure text first.", 0},
		{"No Steps", testutils.NewStubExtractor(), "Hello world", "No protocol steps extracted. Please verify the input format.", 1},
		{"Service Error", testutils.NewFailingExtractor(&domain.ServiceError{Err: assert.AnError}), naclProcedure, "Error calling IBM RXN API: " + assert.AnError.Error(), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.stub)

			w := f.do(postForm("/extract", url.Values{"procedure": {tt.text}}))
			require.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), tt.expected)
			assert.NotContains(t, w.Body.String(), "<ol>")
			assert.Equal(t, tt.calls, tt.stub.Calls())
		})
	}
}

func TestPostExtract_EscapesServiceText(t *testing.T) {
	f := newFixture(t, testutils.NewStubExtractor("<script>alert(1)</script>"))

	w := f.do(postForm("/extract", url.Values{"procedure": {"x"}}))
	assert.NotContains(t, w.Body.String(), "<script>alert(1)</script>")
	assert.Contains(t, w.Body.String(), "&lt;script&gt;")
}

func TestStaticPages(t *testing.T) {
	f := newFixture(t, testutils.NewStubExtractor())

	for path, want := range map[string]string{
		"/about":   "IBM RXN for Chemistry",
		"/contact": "Contact",
		"/docs":    "Documentation",
	} {
		t.Run(path, func(t *testing.T) {
			w := f.do(httptest.NewRequest(http.MethodGet, path, nil))
			require.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), want)
			assert.Contains(t, w.Body.String(), `class="active"`)
		})
	}
	assert.Zero(t, f.stub.Calls())
}

func TestPageNavigationRecorded(t *testing.T) {
	f := newFixture(t, testutils.NewStubExtractor())

	w := f.do(httptest.NewRequest(http.MethodGet, "/", nil))
	cookie := sessionCookie(t, w)

	f.do(httptest.NewRequest(http.MethodGet, "/about", nil), cookie)

	sess, err := f.sessions.Peek(context.Background(), cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, domain.PageAbout, sess.Page)
}

func TestSettings_ThemeAndCredential(t *testing.T) {
	f := newFixture(t, testutils.NewStubExtractor("STIR"))

	w := f.do(httptest.NewRequest(http.MethodGet, "/settings", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Using the server key.")
	cookie := sessionCookie(t, w)

	w = f.do(postForm("/settings", url.Values{"theme": {"dark"}, "api_key": {"my-secret-key"}}), cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `<body class="dark">`)
	assert.Contains(t, w.Body.String(), "A key is set for this session.")
	assert.NotContains(t, w.Body.String(), "my-secret-key")

	f.do(postForm("/extract", url.Values{"procedure": {naclProcedure}}), cookie)
	require.Equal(t, 1, f.stub.Calls())
	assert.Equal(t, domain.Credential("my-secret-key"), f.stub.Requests()[0].Credential)

	w = f.do(postForm("/settings", url.Values{"clear_key": {"1"}}), cookie)
	assert.Contains(t, w.Body.String(), "Using the server key.")
	assert.Contains(t, w.Body.String(), `<body class="dark">`, "theme kept")
}

func TestSessionsAreIsolated(t *testing.T) {
	f := newFixture(t, testutils.NewStubExtractor("STIR"))

	alice := sessionCookie(t, f.do(httptest.NewRequest(http.MethodGet, "/", nil)))
	bob := sessionCookie(t, f.do(httptest.NewRequest(http.MethodGet, "/", nil)))
	require.NotEqual(t, alice.Value, bob.Value)

	f.do(postForm("/settings", url.Values{"theme": {"dark"}, "api_key": {"alice-key"}}), alice)
	f.do(postForm("/extract", url.Values{"procedure": {"x"}}), bob)

	require.Equal(t, 1, f.stub.Calls())
	assert.Equal(t, domain.Credential("server-key"), f.stub.Requests()[0].Credential)

	sess, err := f.sessions.Peek(context.Background(), bob.Value)
	require.NoError(t, err)
	assert.Equal(t, domain.ThemeLight, sess.Theme)
}

func TestInvalidCookieReplaced(t *testing.T) {
	f := newFixture(t, testutils.NewStubExtractor())

	w := f.do(httptest.NewRequest(http.MethodGet, "/", nil), &http.Cookie{Name: SessionCookie, Value: "../../etc"})
	assert.NotEqual(t, "../../etc", sessionCookie(t, w).Value)
}

func TestAPI_Extract(t *testing.T) {
	tests := []struct {
		name   string
		stub   *testutils.StubExtractor
		body   string
		status int
		kind   domain.OutcomeKind
		steps  int
	}{
		{"Success", testutils.NewStubExtractor("ADD water", "STIR"), `{"procedure":"` + naclProcedure + `"}`, http.StatusOK, domain.OutcomeSuccess, 2},
		{"No Steps", testutils.NewStubExtractor(), `{"procedure":"Hello world"}`, http.StatusOK, domain.OutcomeInfo, 0},
		{"Empty", testutils.NewStubExtractor("STIR"), `{"procedure":"  "}`, http.StatusUnprocessableEntity, domain.OutcomeWarning, 0},
		{"Service Error", testutils.NewFailingExtractor(assert.AnError), `{"procedure":"x"}`, http.StatusBadGateway, domain.OutcomeError, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.stub)

			w := f.do(postJSON("/api/v1/extract", tt.body))
			require.Equal(t, tt.status, w.Code, w.Body.String())

			var outcome domain.Outcome
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &outcome))
			assert.Equal(t, tt.kind, outcome.Kind)
			assert.Len(t, outcome.Steps, tt.steps)
		})
	}
}

func TestAPI_Extract_Malformed(t *testing.T) {
	f := newFixture(t, testutils.NewStubExtractor("STIR"))

	for _, body := range []string{`{}`, `{"procedure": 42}`, `not json`} {
		t.Run(body, func(t *testing.T) {
			w := f.do(postJSON("/api/v1/extract", body))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "invalid request")
		})
	}
	assert.Zero(t, f.stub.Calls())
}

func TestAPI_Extract_WithSession(t *testing.T) {
	f := newFixture(t, testutils.NewStubExtractor("STIR"))

	cookie := sessionCookie(t, f.do(httptest.NewRequest(http.MethodGet, "/", nil)))
	f.do(postForm("/settings", url.Values{"api_key": {"session-key"}}), cookie)

	w := f.do(postJSON("/api/v1/extract", `{"procedure":"x","session_id":"`+cookie.Value+`"}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.Credential("session-key"), f.stub.Requests()[0].Credential)

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/session?session_id="+cookie.Value, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "session-key")

	var view SessionView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.True(t, view.HasCredential)
	assert.Equal(t, domain.StatusIdle, view.Status)
	require.NotNil(t, view.LastOutcome)
	assert.Equal(t, domain.OutcomeSuccess, view.LastOutcome.Kind)
}

func TestAPI_GetSession_Errors(t *testing.T) {
	f := newFixture(t, testutils.NewStubExtractor())

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/session?session_id="+session.NewID(), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/session", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/session?session_id=index", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPI_MalformedSessionID(t *testing.T) {
	f := newFixture(t, testutils.NewStubExtractor("STIR"))

	for _, id := range []string{"index", "lock:abc", "../../etc"} {
		t.Run(id, func(t *testing.T) {
			w := f.do(postJSON("/api/v1/extract", `{"procedure":"x","session_id":"`+id+`"}`))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "session_id must be a UUID")

			w = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/events?session_id="+url.QueryEscape(id), nil))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	assert.Zero(t, f.stub.Calls())

	ids, err := f.sessions.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestAPI_Extract_MockEngine(t *testing.T) {
	eng := new(MockEngine)
	eng.On("Submit", mock.Anything, "  keep my spacing  ", domain.Credential("")).
		Return(domain.Outcome{Kind: domain.OutcomeInfo, Message: domain.MessageNoSteps}).Once()

	handler, err := NewHandler(eng, session.NewManager(memory.NewStore()))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, postJSON("/api/v1/extract", `{"procedure":"  keep my spacing  "}`))

	assert.Equal(t, http.StatusOK, w.Code)
	eng.AssertExpectations(t)
}

func TestHealthInfoAndSpec(t *testing.T) {
	f := newFixture(t, testutils.NewStubExtractor())

	w := f.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = f.do(httptest.NewRequest(http.MethodGet, "/info", nil))
	var info map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "synthex-http", info["app"])
	assert.Equal(t, "1.0.0", info["api_version"])

	w = f.do(httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
	assert.Contains(t, w.Body.String(), "/api/v1/extract")

	w = f.do(httptest.NewRequest(http.MethodGet, "/swagger", nil))
	assert.Contains(t, w.Body.String(), "swagger-ui")
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, testutils.NewStubExtractor())
	w := f.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	f = newFixture(t, testutils.NewStubExtractor(), WithMetricsHandler(promhttp.Handler()))
	w = f.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORS(t *testing.T) {
	f := newFixture(t, testutils.NewStubExtractor())
	w := f.do(httptest.NewRequest(http.MethodOptions, "/api/v1/extract", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSubscribeEvents_Session(t *testing.T) {
	f := newFixture(t, testutils.NewStubExtractor("STIR"))
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sessionID := session.NewID()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/events?session_id="+sessionID, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: ping\n", line)

	extract, err := http.Post(srv.URL+"/api/v1/extract", "application/json",
		strings.NewReader(`{"procedure":"x","session_id":"`+sessionID+`"}`))
	require.NoError(t, err)
	extract.Body.Close()

	var events []string
	for len(events) < 2 {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: {") {
			events = append(events, strings.TrimPrefix(strings.TrimSpace(line), "data: "))
		}
	}

	assert.JSONEq(t, `{"type":"status","status":"calling"}`, events[0])
	assert.Contains(t, events[1], `"status":"idle"`)
	assert.Contains(t, events[1], `"kind":"success"`)
}
