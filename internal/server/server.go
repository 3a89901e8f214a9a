package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/exec"
	"runtime/debug"
	"strings"
	"time"

	"github.com/example/go-translit/internal/config"
	"github.com/example/go-translit/internal/speech"
	"github.com/example/go-translit/internal/symtab"
	"github.com/example/go-translit/internal/text"
	"github.com/example/go-translit/internal/transducer"
	"github.com/example/go-translit/internal/translit"
)

// ErrorTrailer carries the error of a /transliterate stream that failed
// after output had already been sent.
const ErrorTrailer = "X-Translit-Error"

// ParseLogLevel converts a case-insensitive level string to slog.Level.
// An empty string returns slog.LevelInfo. Unknown strings return an error.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug|info|warn|error)", s)
	}
}

// Transliterator is the conversion service behind the HTTP API.
type Transliterator interface {
	Transliterate(ctx context.Context, r io.Reader, w io.Writer) (transducer.Stats, error)
	Translate(ctx context.Context, text string) (translit.Translation, error)
	Table() *symtab.Table
}

// Speaker renders text to WAV bytes.
type Speaker interface {
	Speak(ctx context.Context, text, voice string) ([]byte, error)
}

// ---------------------------------------------------------------------------
// Functional options
// ---------------------------------------------------------------------------

type options struct {
	maxTextBytes   int
	workers        int
	requestTimeout time.Duration
	speaker        Speaker
	logger         *slog.Logger
}

func defaultOptions() options {
	return options{
		maxTextBytes:   64 * 1024,
		workers:        4,
		requestTimeout: 30 * time.Second,
		logger:         slog.Default(),
	}
}

// Option configures the HTTP handler.
type Option func(*options)

// WithMaxTextBytes sets the maximum accepted request text in bytes.
func WithMaxTextBytes(n int) Option {
	return func(o *options) { o.maxTextBytes = n }
}

// WithWorkers sets the maximum number of concurrent conversions.
// Zero disables throttling.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithRequestTimeout sets the per-request deadline.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) { o.requestTimeout = d }
}

// WithSpeaker enables POST /speak.
func WithSpeaker(s Speaker) Option {
	return func(o *options) { o.speaker = s }
}

// WithLogger sets the slog.Logger used for request logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// ---------------------------------------------------------------------------
// handler
// ---------------------------------------------------------------------------

type handler struct {
	svc  Transliterator
	opts options
	sem  chan struct{} // semaphore for worker pool
	log  *slog.Logger
}

// NewHandler returns an http.Handler that serves /health, /table,
// POST /transliterate, POST /translate and, with a Speaker, POST /speak.
func NewHandler(svc Transliterator, optFns ...Option) http.Handler {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	h := &handler{
		svc:  svc,
		opts: opts,
		log:  opts.logger,
	}
	if opts.workers > 0 {
		h.sem = make(chan struct{}, opts.workers)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/table", h.handleTable)
	mux.HandleFunc("/transliterate", h.handleTransliterate)
	mux.HandleFunc("/translate", h.handleTranslate)
	if opts.speaker != nil {
		mux.HandleFunc("/speak", h.handleSpeak)
	}
	return mux
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildVersion(),
	})
}

type tableResponse struct {
	Name       string         `json:"name"`
	Policy     string         `json:"policy"`
	StressMark string         `json:"stress_mark"`
	Entries    []symtab.Entry `json:"entries"`
}

func (h *handler) handleTable(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	t := h.svc.Table()
	writeJSON(w, http.StatusOK, tableResponse{
		Name:       t.Name(),
		Policy:     t.Policy().String(),
		StressMark: t.StressMark(),
		Entries:    t.Entries(),
	})
}

// acquire takes a worker slot, honouring cancellation while waiting. The
// returned release func is nil when the request was cancelled.
func (h *handler) acquire(r *http.Request) func() {
	if h.sem == nil {
		return func() {}
	}
	select {
	case h.sem <- struct{}{}:
		return func() { <-h.sem }
	case <-r.Context().Done():
		return nil
	}
}

func (h *handler) handleTransliterate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if r.Body == nil {
		writeError(w, http.StatusBadRequest, "request body is required")
		return
	}
	if r.ContentLength > int64(h.opts.maxTextBytes) {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("text exceeds maximum size of %d bytes", h.opts.maxTextBytes))
		return
	}

	release := h.acquire(r)
	if release == nil {
		writeError(w, http.StatusServiceUnavailable, "request cancelled while waiting for worker")
		return
	}
	defer release()

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.requestTimeout)
	defer cancel()

	// HTTP/1.x closes the request body at the first flush unless the
	// connection is full duplex; output is flushed while input is read.
	if err := http.NewResponseController(w).EnableFullDuplex(); err != nil {
		h.log.DebugContext(r.Context(), "full duplex unavailable", slog.Any("error", err))
	}

	body := http.MaxBytesReader(w, r.Body, int64(h.opts.maxTextBytes))
	sw := &streamWriter{w: w}

	start := time.Now()
	stats, err := h.svc.Transliterate(ctx, body, sw)
	durationMS := time.Since(start).Milliseconds()

	if err != nil {
		h.logFailure(r, "transliteration failed", err,
			slog.Int("text_len", stats.Bytes),
			slog.Int64("duration_ms", durationMS),
			slog.Int("glyph_bytes", stats.Glyphs),
		)
		if sw.started {
			w.Header().Set(ErrorTrailer, err.Error())
			return
		}
		status, msg := statusFor(err)
		writeError(w, status, msg)
		return
	}

	sw.start()
	h.log.InfoContext(r.Context(), "transliteration complete",
		slog.Int("text_len", stats.Bytes),
		slog.Int64("duration_ms", durationMS),
		slog.Int("glyph_bytes", stats.Glyphs),
		slog.Int("tokens", stats.Tokens),
	)
}

type translateRequest struct {
	Text string `json:"text"`
}

func (h *handler) handleTranslate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var input string
	if !h.decodeText(w, r, &input) {
		return
	}

	release := h.acquire(r)
	if release == nil {
		writeError(w, http.StatusServiceUnavailable, "request cancelled while waiting for worker")
		return
	}
	defer release()

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.requestTimeout)
	defer cancel()

	start := time.Now()
	res, err := h.svc.Translate(ctx, input)
	durationMS := time.Since(start).Milliseconds()
	if err != nil {
		h.logFailure(r, "translation failed", err,
			slog.Int("text_len", len(input)),
			slog.Int64("duration_ms", durationMS),
		)
		status, msg := statusFor(err)
		writeError(w, status, msg)
		return
	}

	h.log.InfoContext(r.Context(), "translation complete",
		slog.Int("text_len", len(input)),
		slog.Int64("duration_ms", durationMS),
		slog.Int("glyph_bytes", len(res.Glyphs)),
		slog.Int("missing", len(res.Missing)),
	)
	writeJSON(w, http.StatusOK, res)
}

type speakRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

func (h *handler) handleSpeak(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req speakRequest
	if r.Body == nil {
		writeError(w, http.StatusBadRequest, "request body is required")
		return
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if !h.checkText(w, req.Text) {
		return
	}

	release := h.acquire(r)
	if release == nil {
		writeError(w, http.StatusServiceUnavailable, "request cancelled while waiting for worker")
		return
	}
	defer release()

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.requestTimeout)
	defer cancel()

	start := time.Now()
	wav, err := h.opts.speaker.Speak(ctx, req.Text, req.Voice)
	durationMS := time.Since(start).Milliseconds()
	if err != nil {
		h.logFailure(r, "speech failed", err,
			slog.String("voice", req.Voice),
			slog.Int("text_len", len(req.Text)),
			slog.Int64("duration_ms", durationMS),
		)
		status, msg := statusFor(err)
		writeError(w, status, msg)
		return
	}

	h.log.InfoContext(r.Context(), "speech complete",
		slog.String("voice", req.Voice),
		slog.Int("text_len", len(req.Text)),
		slog.Int64("duration_ms", durationMS),
		slog.Int("wav_bytes", len(wav)),
	)

	w.Header().Set("Content-Type", "audio/wav")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(wav)
}

// decodeText reads a {"text": ...} body into dst and validates it.
func (h *handler) decodeText(w http.ResponseWriter, r *http.Request, dst *string) bool {
	if r.Body == nil {
		writeError(w, http.StatusBadRequest, "request body is required")
		return false
	}
	var req translateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	if !h.checkText(w, req.Text) {
		return false
	}
	*dst = req.Text
	return true
}

func (h *handler) checkText(w http.ResponseWriter, s string) bool {
	if strings.TrimSpace(s) == "" {
		writeError(w, http.StatusBadRequest, "text field is required")
		return false
	}
	if len(s) > h.opts.maxTextBytes {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("text exceeds maximum size of %d bytes", h.opts.maxTextBytes))
		return false
	}
	return true
}

func (h *handler) logFailure(r *http.Request, msg string, err error, attrs ...any) {
	attrs = append(attrs, slog.String("error", err.Error()))
	if isTimeout(err) {
		h.log.WarnContext(r.Context(), msg, attrs...)
		return
	}
	h.log.ErrorContext(r.Context(), msg, attrs...)
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

// statusFor maps a service error to an HTTP status and client message.
func statusFor(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge,
			fmt.Sprintf("text exceeds maximum size of %d bytes", tooLarge.Limit)
	case errors.Is(err, symtab.ErrUnknownSymbol):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, text.ErrEmptyText):
		return http.StatusBadRequest, "text field is required"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "request cancelled"
	case errors.Is(err, exec.ErrNotFound):
		return http.StatusServiceUnavailable, "speech synthesizer unavailable"
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

// streamWriter delays the response header until the first glyph so that
// errors raised before any output still get a proper status.
type streamWriter struct {
	w       http.ResponseWriter
	started bool
}

func (s *streamWriter) start() {
	if s.started {
		return
	}
	s.started = true
	s.w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	s.w.Header().Set("X-Content-Type-Options", "nosniff")
	s.w.Header().Set("Trailer", ErrorTrailer)
	s.w.WriteHeader(http.StatusOK)
}

func (s *streamWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	s.start()
	return s.w.Write(p)
}

// Flush pushes committed glyphs to the client.
func (s *streamWriter) Flush() {
	if !s.started {
		return
	}
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// ---------------------------------------------------------------------------
// Server wires handler into net/http.Server with graceful shutdown
// ---------------------------------------------------------------------------

// Server wires the HTTP handler into a net/http.Server with graceful shutdown.
type Server struct {
	cfg             config.Config
	svc             *translit.Service
	speaker         Speaker
	shutdownTimeout time.Duration
}

// New returns a Server for cfg. A nil svc is built from cfg on Start.
func New(cfg config.Config, svc *translit.Service) *Server {
	shutdown := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	if shutdown <= 0 {
		shutdown = 30 * time.Second
	}
	return &Server{
		cfg:             cfg,
		svc:             svc,
		speaker:         speech.FromConfig(cfg.Speech),
		shutdownTimeout: shutdown,
	}
}

// WithShutdownTimeout overrides the graceful-shutdown drain period.
func (s *Server) WithShutdownTimeout(d time.Duration) *Server {
	s.shutdownTimeout = d
	return s
}

// WithSpeaker replaces the espeak-ng speaker built from the config. A nil
// speaker disables POST /speak.
func (s *Server) WithSpeaker(sp Speaker) *Server {
	s.speaker = sp
	return s
}

// Handler builds the request handler from the server's configuration.
func (s *Server) Handler() (http.Handler, error) {
	svc := s.svc
	if svc == nil {
		var err error
		svc, err = translit.NewService(s.cfg)
		if err != nil {
			return nil, fmt.Errorf("initialize transliteration service: %w", err)
		}
		s.svc = svc
	}

	handlerOpts := []Option{
		WithWorkers(s.cfg.Server.Workers),
		WithMaxTextBytes(s.cfg.Server.MaxTextBytes),
		WithRequestTimeout(time.Duration(s.cfg.Server.RequestTimeout) * time.Second),
	}
	if s.speaker != nil {
		handlerOpts = append(handlerOpts, WithSpeaker(s.speaker))
	}
	return NewHandler(svc, handlerOpts...), nil
}

func (s *Server) Start(ctx context.Context) error {
	h, err := s.Handler()
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              s.cfg.Server.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return fmt.Errorf("http listen: %w", err)
	}
}

func CheckHTTP(addr string) error {
	resp, err := http.Get("http://" + addr + "/health") //nolint:noctx
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected health status: %s", resp.Status)
	}
	return nil
}
