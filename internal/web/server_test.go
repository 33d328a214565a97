package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/lexscout/internal/catalog"
	"github.com/blockedby/lexscout/internal/session"
)

func startServer(t *testing.T, srv *Server) {
	t.Helper()
	go func() { _ = srv.Start() }()
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })

	require.Eventually(t, func() bool {
		resp, err := http.Get(srv.BaseURL() + "/health")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)
}

func TestServer_HealthEndpoint(t *testing.T) {
	srv := NewServer(&Config{Port: 0}, nil, nil)
	startServer(t, srv)

	resp, err := http.Get(srv.BaseURL() + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var health struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	assert.NotEmpty(t, health.Version)
}

func TestServer_ServesStatic(t *testing.T) {
	staticDir := filepath.Join(t.TempDir(), "static")
	require.NoError(t, os.MkdirAll(filepath.Join(staticDir, "css"), 0755))
	cssContent := "body { background: #f8fafc; }"
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "css", "app.css"), []byte(cssContent), 0644))

	srv := NewServer(&Config{Port: 0, StaticDir: staticDir}, nil, nil)
	startServer(t, srv)

	resp, err := http.Get(srv.BaseURL() + "/static/css/app.css")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/css")
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, cssContent, string(body))
}

func TestServer_WebSocket(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	mgr := session.NewManager(catalog.Default(), nil, hub, session.Options{})
	srv := NewServer(&Config{Port: 0}, hub, mgr)
	startServer(t, srv)

	u := url.URL{Scheme: "ws", Host: srv.listener.Addr().String(), Path: "/ws"}
	c, wsResp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	require.NoError(t, err)
	defer c.Close()

	var cookie *http.Cookie
	for _, ck := range wsResp.Cookies() {
		if ck.Name == SessionCookieName {
			cookie = ck
		}
	}
	require.NotNil(t, cookie, "handshake should set the session cookie")

	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	var hello session.Event
	require.NoError(t, c.ReadJSON(&hello))
	assert.Equal(t, EventHello, hello.Type)
	require.NotNil(t, hello.State)
	assert.Equal(t, cookie.Value, hello.State.ID)
	assert.Equal(t, "Taiwan", hello.State.Country)

	ws, ok := mgr.Get(cookie.Value)
	require.True(t, ok)
	require.NoError(t, ws.SetCountry("Japan"))

	var evt session.Event
	require.NoError(t, c.ReadJSON(&evt))
	assert.Equal(t, session.EventSettings, evt.Type)
	assert.Equal(t, "日本語", evt.State.Language)
}

func TestServer_WebSocketReusesSession(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	mgr := session.NewManager(catalog.Default(), nil, hub, session.Options{})
	existing, _ := mgr.GetOrCreate("")

	srv := NewServer(&Config{Port: 0}, hub, mgr)
	startServer(t, srv)

	header := http.Header{}
	header.Add("Cookie", SessionCookieName+"="+existing.ID())
	u := url.URL{Scheme: "ws", Host: srv.listener.Addr().String(), Path: "/ws"}
	c, wsResp, err := websocket.DefaultDialer.Dial(u.String(), header)
	require.NoError(t, err)
	defer c.Close()

	assert.Empty(t, wsResp.Header.Get("Set-Cookie"))

	var hello session.Event
	require.NoError(t, c.ReadJSON(&hello))
	assert.Equal(t, existing.ID(), hello.State.ID)
	assert.Equal(t, 1, mgr.Len())
}

func TestServer_MountAPI_CORS(t *testing.T) {
	srv := NewServer(&Config{Port: 0, AllowedOrigins: []string{"https://example.org"}}, nil, nil)
	srv.MountAPI(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.URL.Path))
	}))
	startServer(t, srv)

	req, _ := http.NewRequest(http.MethodGet, srv.BaseURL()+"/api/v1/catalog", nil)
	req.Header.Set("Origin", "https://example.org")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "/api/v1/catalog", string(body))
	assert.Equal(t, "https://example.org", resp.Header.Get("Access-Control-Allow-Origin"))
}

type stubUI struct{}

func (stubUI) Index(w http.ResponseWriter, _ *http.Request)         { _, _ = w.Write([]byte("index")) }
func (stubUI) State(w http.ResponseWriter, _ *http.Request)         {}
func (stubUI) Settings(w http.ResponseWriter, _ *http.Request)      {}
func (stubUI) SetCountry(w http.ResponseWriter, _ *http.Request)    {}
func (stubUI) SetLanguage(w http.ResponseWriter, _ *http.Request)   {}
func (stubUI) SetActive(w http.ResponseWriter, _ *http.Request)     {}
func (stubUI) Results(w http.ResponseWriter, _ *http.Request)       {}
func (stubUI) Search(w http.ResponseWriter, _ *http.Request)        { w.WriteHeader(http.StatusAccepted) }
func (stubUI) TranslateCard(w http.ResponseWriter, _ *http.Request) {}

func TestServer_RegisterUIHandler(t *testing.T) {
	srv := NewServer(&Config{Port: 0}, nil, nil)
	srv.RegisterUIHandler(stubUI{})
	startServer(t, srv)

	resp, err := http.Get(srv.BaseURL() + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "index", string(body))

	resp, err = http.Post(srv.BaseURL()+"/ui/law/search", "application/x-www-form-urlencoded", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestSessionCookie(t *testing.T) {
	c := SessionCookie("abc", 30*time.Minute)
	assert.Equal(t, SessionCookieName, c.Name)
	assert.Equal(t, "abc", c.Value)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, 1800, c.MaxAge)
}

func TestResolveWorkspace_CookieFollowsMaxIdle(t *testing.T) {
	mgr := session.NewManager(catalog.Default(), nil, nil, session.Options{})
	mgr.SetMaxIdle(45 * time.Minute)

	rec := httptest.NewRecorder()
	ws := ResolveWorkspace(rec, httptest.NewRequest(http.MethodGet, "/", nil), mgr)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, ws.ID(), cookies[0].Value)
	assert.Equal(t, 2700, cookies[0].MaxAge)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestServer_HealthReportsVersionAndDatabase(t *testing.T) {
	tests := []struct {
		name     string
		db       Pinger
		code     int
		status   string
		database string
	}{
		{"no database", nil, http.StatusOK, "ok", ""},
		{"database up", stubPinger{}, http.StatusOK, "ok", "ok"},
		{"database down", stubPinger{err: errors.New("connection refused")}, http.StatusServiceUnavailable, "degraded", "unreachable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(&Config{Version: "1.4.0", Database: tt.db}, nil, nil)

			rec := httptest.NewRecorder()
			srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			require.Equal(t, tt.code, rec.Code)

			var resp healthStatus
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.status, resp.Status)
			assert.Equal(t, "1.4.0", resp.Version)
			assert.Equal(t, tt.database, resp.Database)
		})
	}
}
