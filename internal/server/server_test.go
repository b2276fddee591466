package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayusman/lipread/internal/app"
	"github.com/ayusman/lipread/internal/detector"
	"github.com/ayusman/lipread/internal/mesh"
	"github.com/ayusman/lipread/internal/reader"
	"github.com/ayusman/lipread/internal/store"
)

func TestServer_Health(t *testing.T) {
	s := New(Config{})

	t.Run("returns 200 with JSON response", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		contentType := rec.Header().Get("Content-Type")
		if contentType != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", contentType)
		}

		var response map[string]interface{}
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if response["status"] != "ok" {
			t.Errorf("expected status 'ok', got %v", response["status"])
		}

		if _, exists := response["uptime"]; !exists {
			t.Error("expected 'uptime' field in response")
		}
	})

	t.Run("only allows GET method", func(t *testing.T) {
		methods := []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch}

		for _, method := range methods {
			req := httptest.NewRequest(method, "/api/health", nil)
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
			}
		}
	})
}

func TestServer_NotFound(t *testing.T) {
	s := New(Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/nonexistent", nil)
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestServer_StaticFiles(t *testing.T) {
	tmpDir := t.TempDir()

	// Create a test HTML file
	testContent := "<html><body>Hello, World!</body></html>"
	if err := os.WriteFile(filepath.Join(tmpDir, "index.html"), []byte(testContent), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	// Create a CSS file for testing direct file access
	cssContent := "body { color: red; }"
	if err := os.WriteFile(filepath.Join(tmpDir, "style.css"), []byte(cssContent), 0644); err != nil {
		t.Fatalf("failed to create test CSS file: %v", err)
	}

	s := New(Config{StaticDir: tmpDir})

	t.Run("serves index.html at root path", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		if rec.Body.String() != testContent {
			t.Errorf("expected body %q, got %q", testContent, rec.Body.String())
		}
	})

	t.Run("serves static files from configured directory", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/style.css", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		if rec.Body.String() != cssContent {
			t.Errorf("expected body %q, got %q", cssContent, rec.Body.String())
		}
	})

	t.Run("returns 404 for non-existent static files", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/nonexistent.html", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})
}

func TestServer_NoStaticDir(t *testing.T) {
	s := New(Config{})

	t.Run("root path returns 404 when no static dir configured", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})
}

func TestNew(t *testing.T) {
	t.Run("creates server with config", func(t *testing.T) {
		cfg := Config{StaticDir: "/some/path"}
		s := New(cfg)

		if s == nil {
			t.Fatal("expected non-nil server")
		}

		if s.config.StaticDir != cfg.StaticDir {
			t.Errorf("expected StaticDir %s, got %s", cfg.StaticDir, s.config.StaticDir)
		}
	})

	t.Run("server implements http.Handler", func(t *testing.T) {
		s := New(Config{})
		var _ http.Handler = s
	})
}

// newTestApp builds an app over an in-memory pattern store.
func newTestApp(t *testing.T) *app.App {
	t.Helper()

	a := app.New(app.Config{
		Patterns:   store.NewPatternStore(store.NewVocabulary("hello", "yes", "no"), nil, zerolog.Nop()),
		PluginDir:  t.TempDir(),
		Classifier: reader.DefaultConfig(),
		Window:     3,
		Logger:     zerolog.Nop(),
	})
	a.SetDetector(detector.NewMockDetector())
	return a
}

func TestServer_AppRoutes(t *testing.T) {
	s := New(Config{App: newTestApp(t), Logger: zerolog.Nop()})

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{method: http.MethodGet, path: "/api/vocabulary", want: http.StatusOK},
		{method: http.MethodGet, path: "/api/training", want: http.StatusOK},
		{method: http.MethodGet, path: "/api/patterns", want: http.StatusOK},
		{method: http.MethodGet, path: "/api/patterns/yes", want: http.StatusOK},
		{method: http.MethodPost, path: "/api/stream", want: http.StatusMethodNotAllowed},
		// Actions need a database.
		{method: http.MethodGet, path: "/api/actions", want: http.StatusNotFound},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != tt.want {
			t.Errorf("%s %s: expected status %d, got %d", tt.method, tt.path, tt.want, rec.Code)
		}
	}
}

func TestServer_HealthReportsApp(t *testing.T) {
	a := newTestApp(t)
	a.SetEnabled(true)
	s := New(Config{App: a, Logger: zerolog.Nop()})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	var response map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response["enabled"] != true {
		t.Errorf("enabled = %v, want true", response["enabled"])
	}
	if response["running"] != false {
		t.Errorf("running = %v, want false", response["running"])
	}
}

func TestServer_DeletePatternsResetsDebounce(t *testing.T) {
	a := newTestApp(t)
	s := New(Config{App: a, Logger: zerolog.Nop()})

	if err := a.ArmTraining("yes"); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		a.HandleFace(context.Background(), mesh.OpenMouthLandmarks())
	}
	if out := a.HandleFace(context.Background(), mesh.OpenMouthLandmarks()); out.Kind != app.OutcomePredicted {
		t.Fatalf("outcome = %+v, want a prediction", out)
	}

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	var health struct {
		Classifier reader.State `json:"classifier"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&health); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if health.Classifier.LastPrediction != "yes" || health.Classifier.Cooldown != reader.DefaultCooldown {
		t.Errorf("health classifier = %+v, want yes with full cooldown", health.Classifier)
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/patterns/yes", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if got := a.Classifier().State(); got != (reader.State{}) {
		t.Errorf("classifier state after delete = %+v, want zero", got)
	}
}

func TestServer_ListenAndServe_Shutdown(t *testing.T) {
	s := New(Config{Logger: zerolog.Nop()})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("ListenAndServe() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ListenAndServe() did not return after cancel")
	}
}

// staticFrames is a FrameSource with a fixed frame.
type staticFrames struct {
	jpg      []byte
	watchers int
}

func (f *staticFrames) Watch() func() {
	f.watchers++
	return func() { f.watchers-- }
}

func (f *staticFrames) LatestJPEG() []byte { return f.jpg }

func TestStreamHandler(t *testing.T) {
	source := &staticFrames{jpg: []byte{0xff, 0xd8, 0xff, 0xd9}}
	handler := NewStreamHandler(source)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "multipart/x-mixed-replace") {
		t.Errorf("Content-Type = %q", ct)
	}
	// An unchanged frame is written once.
	if n := strings.Count(rec.Body.String(), "--frame"); n != 1 {
		t.Errorf("wrote %d frames, want 1", n)
	}
	if source.watchers != 0 {
		t.Errorf("watchers = %d after the client left", source.watchers)
	}
}
