// Package httpsrv implements the HTTP host shared by the services of a node.
// Every request gets a request ID and is logged once it is served.
package httpsrv

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"go.dedis.ch/sealbox"
	"golang.org/x/xerrors"
)

type key int

const (
	requestIDKey key = 0
)

// RequestIDHeader is the header carrying the request ID.
const RequestIDHeader = "X-Request-Id"

const shutdownTimeout = 10 * time.Second

// Server is an HTTP host. Handlers can be registered before or after the
// server starts.
type Server struct {
	sync.Mutex

	mux        *http.ServeMux
	server     *http.Server
	logger     zerolog.Logger
	listenAddr string
	ln         net.Listener
	done       chan struct{}
}

// New creates a new server that will listen on the address. An empty port
// picks a random free one.
func New(listenAddr string) *Server {
	logger := sealbox.Logger.With().Timestamp().Str("role", "http").Logger()

	mux := http.NewServeMux()

	return &Server{
		mux: mux,
		server: &http.Server{
			Handler:           tracing(nextRequestID)(logging(logger)(mux)),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger:     logger,
		listenAddr: listenAddr,
	}
}

// Handle registers the handler for the given path.
func (s *Server) Handle(path string, handler http.Handler) {
	s.mux.Handle(path, handler)
}

// Start binds the listening address and serves the requests in the
// background.
func (s *Server) Start() error {
	s.Lock()
	defer s.Unlock()

	if s.ln != nil {
		return xerrors.New("server already started")
	}

	ln, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return xerrors.Errorf("failed to create conn '%s': %v", s.listenAddr, err)
	}

	s.ln = ln
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		err := s.server.Serve(ln)
		if err != nil && err != http.ErrServerClosed {
			s.logger.Err(err).Msg("server failed")
		}
	}()

	s.logger.Info().Msgf("Server is ready to handle requests at %s", s.URL())

	return nil
}

// Listen starts the server and blocks until it is stopped.
func (s *Server) Listen() error {
	err := s.Start()
	if err != nil {
		return err
	}

	<-s.done

	s.logger.Info().Msg("Server stopped")

	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	s.Lock()
	done := s.done
	s.Unlock()

	if done == nil {
		return nil
	}

	s.logger.Info().Msg("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.server.SetKeepAlivesEnabled(false)

	err := s.server.Shutdown(ctx)
	if err != nil {
		return xerrors.Errorf("could not gracefully shutdown the server: %v", err)
	}

	<-done

	return nil
}

// GetAddr returns the address the server is listening on, or nil if it is not
// started.
func (s *Server) GetAddr() net.Addr {
	s.Lock()
	defer s.Unlock()

	if s.ln == nil {
		return nil
	}

	return s.ln.Addr()
}

// URL returns the base URL of the server.
func (s *Server) URL() string {
	lu := &url.URL{Scheme: "http"}

	addr := s.listenAddr
	if s.ln != nil {
		addr = s.ln.Addr().String()
	}

	if strings.HasPrefix(addr, ":") {
		lu.Host = "localhost" + addr
	} else {
		lu.Host = addr
	}

	return lu.String()
}

// RequestID returns the ID of the request the context belongs to, or an empty
// string.
func RequestID(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDKey).(string)
	return requestID
}

func nextRequestID() string {
	return xid.New().String()
}

// logging is a utility function that logs the http server events
func logging(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			defer func() {
				requestID := RequestID(r.Context())
				if requestID == "" {
					requestID = "unknown"
				}

				logger.Info().Str("requestID", requestID).
					Str("method", r.Method).
					Str("url", r.URL.Path).
					Int("status", rec.status).
					Dur("duration", time.Since(start)).
					Str("remoteAddr", r.RemoteAddr).
					Str("agent", r.UserAgent()).Msg("")
			}()

			next.ServeHTTP(rec, r)
		})
	}
}

// tracing is a utility function that adds header tracing
func tracing(nextRequestID func() string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = nextRequestID()
			}

			ctx := context.WithValue(r.Context(), requestIDKey, requestID)
			w.Header().Set(RequestIDHeader, requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
