package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/mscrnt/memprobe/pkg/control"
	"github.com/mscrnt/memprobe/pkg/smbus"
	"github.com/mscrnt/memprobe/pkg/spdreader"
	"github.com/mscrnt/memprobe/pkg/timings"
)

// Endpoints serving control records. Each returns the packed record of its
// control code as application/octet-stream.
const (
	EndpointSPD     = "spd"
	EndpointTimings = "timings"
	EndpointSysinfo = "sysinfo"
	EndpointHealth  = "health"

	headerControlCode = "X-Control-Code"
)

type recordRoute struct {
	code uint32
	size int
}

var recordRoutes = map[string]recordRoute{
	EndpointSPD:     {control.CodeReadSPD, spdreader.ArraySize},
	EndpointTimings: {control.CodeReadTimings, timings.RecordSize},
}

// Server represents the agent server
type Server struct {
	addr       string
	device     control.Device
	httpServer *http.Server
	logger     *log.Logger
}

// NewServer creates an agent that listens on addr and answers requests from
// device. A nil logger writes to stdout.
func NewServer(addr string, creds Credentials, device control.Device, logger *log.Logger) (*Server, error) {
	tlsConfig, err := creds.ServerTLS()
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS config: %w", err)
	}
	if logger == nil {
		logger = log.New(os.Stdout, "[agent] ", log.LstdFlags)
	}

	server := newServer(device, logger)
	server.addr = addr
	server.httpServer = &http.Server{
		Addr:         addr,
		Handler:      server.Handler(),
		TLSConfig:    tlsConfig,
		ErrorLog:     logger,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return server, nil
}

func newServer(device control.Device, logger *log.Logger) *Server {
	return &Server{
		device: device,
		logger: logger,
	}
}

// Handler returns the request router
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	for name, route := range recordRoutes {
		mux.HandleFunc("/"+name, s.loggingMiddleware(s.recordHandler(route)))
	}
	mux.HandleFunc("/"+EndpointSysinfo, s.loggingMiddleware(sysinfoHandler))
	mux.HandleFunc("/"+EndpointHealth, s.loggingMiddleware(healthHandler))
	return mux
}

// Start starts the agent server
func (s *Server) Start() error {
	s.logger.Printf("Starting agent server on %s with mTLS", s.addr)

	// certificates are already loaded in the TLS config
	err := s.httpServer.ListenAndServeTLS("", "")
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Println("Shutting down agent server...")
	return s.httpServer.Shutdown(ctx)
}

// loggingMiddleware logs incoming requests
func (s *Server) loggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientCert := "none"
		if r.TLS != nil && len(r.TLS.PeerCertificates) > 0 {
			clientCert = r.TLS.PeerCertificates[0].Subject.CommonName
		}

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(wrapped, r)

		s.logger.Printf("%s %s %d %s client=%s duration=%s",
			r.Method,
			r.URL.Path,
			wrapped.statusCode,
			r.RemoteAddr,
			clientCert,
			time.Since(start),
		)
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// recordHandler issues one control request and returns its record
func (s *Server) recordHandler(route recordRoute) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		out := make([]byte, route.size)
		n, err := s.device.IoControl(route.code, nil, out)
		if err != nil {
			s.logger.Printf("%s failed: %v", control.CodeName(route.code), err)
			http.Error(w, err.Error(), statusFor(err))
			return
		}

		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set(headerControlCode, fmt.Sprintf("0x%06X", route.code))
		_, _ = w.Write(out[:n])
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, smbus.ErrControllerNotFound):
		return http.StatusServiceUnavailable
	case errors.Is(err, control.ErrUnsupportedRequest):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// healthHandler returns server health status
func healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK\n")
}
