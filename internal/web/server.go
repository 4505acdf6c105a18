package web

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vbonduro/shotcoach/internal/flow"
	"github.com/vbonduro/shotcoach/internal/session"
	"github.com/vbonduro/shotcoach/internal/vision"
)

const (
	sessionCookie         = "sid"
	defaultMaxUploadBytes = 50 << 20
	shutdownTimeout       = 10 * time.Second
	minWriteTimeout       = 120 * time.Second
	writeTimeoutMargin    = 30 * time.Second
)

type Options struct {
	CameraModel    string
	MaxUploadBytes int64
	// ModelTimeout is the outbound model call limit. Synchronous API
	// responses must be writable for at least that long.
	ModelTimeout time.Duration
}

type Server struct {
	sessions     *session.Store
	analyzer     vision.VisionAnalyzer
	templates    embed.FS
	mux          *http.ServeMux
	tmplFuncs    template.FuncMap
	logger       *slog.Logger
	camera       string
	maxUpload    int64
	writeTimeout time.Duration
}

func NewServer(sessions *session.Store, analyzer vision.VisionAnalyzer, tmpl embed.FS, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}
	camera := opts.CameraModel
	if camera == "" {
		camera = "Canon EOS R50"
	}

	s := &Server{
		sessions:     sessions,
		analyzer:     analyzer,
		templates:    tmpl,
		mux:          http.NewServeMux(),
		logger:       logger,
		camera:       camera,
		maxUpload:    maxUpload,
		writeTimeout: writeTimeout(opts.ModelTimeout),
		tmplFuncs: template.FuncMap{
			"plain":   StripMarkup,
			"dataURL": dataURL,
		},
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /image", s.handleSelectImage)
	s.mux.HandleFunc("POST /analyze", s.handleChooseMode)
	s.mux.HandleFunc("POST /reset", s.handleReset)
	s.mux.HandleFunc("POST /retry", s.handleReset)
	s.mux.HandleFunc("POST /api/analyze", s.handleAPIAnalyze)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy",
			"default-src 'self'; "+
				"script-src 'self' 'unsafe-inline'; "+
				"style-src 'self' 'unsafe-inline'; "+
				"img-src 'self' data: blob:; "+
				"connect-src 'self'")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, securityHeaders(s.mux)).ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then drains open
// connections.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: s.writeTimeout,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// writeTimeout leaves room for a full model call plus upload parsing and
// rendering.
func writeTimeout(modelTimeout time.Duration) time.Duration {
	if d := modelTimeout + writeTimeoutMargin; d > minWriteTimeout {
		return d
	}
	return minWriteTimeout
}

// pageData is what every page template receives.
type pageData struct {
	Camera string
	View   flow.View
	Alert  string
}

var pageFiles = map[flow.Screen]string{
	flow.ScreenUpload:     "pages/upload.html",
	flow.ScreenModeSelect: "pages/mode_select.html",
	flow.ScreenLoading:    "pages/loading.html",
	flow.ScreenResult:     "pages/result.html",
	flow.ScreenError:      "pages/error.html",
}

func (s *Server) renderView(w http.ResponseWriter, status int, view flow.View, alert string) error {
	data := pageData{
		Camera: s.camera,
		View:   view,
		Alert:  alert,
	}
	return s.renderPage(w, status, data, "base.html", pageFiles[view.Screen])
}

// renderPage parses and executes a full-page template set.
func (s *Server) renderPage(w http.ResponseWriter, status int, data any, files ...string) error {
	tmpl, err := template.New("").Funcs(s.tmplFuncs).ParseFS(s.templates, files...)
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, err = buf.WriteTo(w)
	return err
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("write json failed", "error", err)
	}
}

// existingSession returns the caller's session when the cookie names a live
// one. It never creates a session.
func (s *Server) existingSession(r *http.Request) (*session.Session, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil, false
	}
	return s.sessions.Lookup(c.Value)
}

// session returns the caller's session, issuing a cookie when a new one was
// created.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *session.Session {
	var id string
	if c, err := r.Cookie(sessionCookie); err == nil {
		id = c.Value
	}
	sess := s.sessions.Get(id)
	if sess.ID != id {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    sess.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess
}

// dataURL marks an image data URI as safe for an img src attribute.
// Anything that is not an image data URI renders as an empty URL.
func dataURL(uri string) template.URL {
	if !strings.HasPrefix(uri, "data:image/") {
		return ""
	}
	return template.URL(uri)
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
