package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/bnema/annotation-relay/internal/application"
	"github.com/bnema/annotation-relay/internal/domain"
	"github.com/bnema/annotation-relay/internal/ports"
	"github.com/go-logr/logr"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	readTimeout  = 15 * time.Second
	idleTimeout  = 60 * time.Second
	writeSlack   = 15 * time.Second
	maxBodyBytes = 1 << 20
)

// Relay is the slice of the relay service the HTTP surface drives.
type Relay interface {
	Register(ctx context.Context, consumerID string) (domain.SessionID, error)
	Create(ctx context.Context, consumerID string, requestedID string) (domain.SessionID, error)
	LinkURL(ctx context.Context, id domain.SessionID, prefix string) error
	FindByURL(ctx context.Context, url string) (domain.SessionSummary, bool, error)
	Get(ctx context.Context, id domain.SessionID) (domain.SessionSummary, error)
	Poll(ctx context.Context, id domain.SessionID, timeout time.Duration) (application.PollResult, error)
	Submit(ctx context.Context, note string, element domain.Element) (application.SubmitResult, error)
	List(ctx context.Context) ([]domain.SessionSummary, error)
	Archived(ctx context.Context, query ports.ArchiveQuery) ([]domain.Annotation, error)
	Count() int
}

type Options struct {
	Addr string
	// ExtensionID pins browser-extension origins to one extension when set.
	ExtensionID    string
	MaxPollTimeout time.Duration
	Gatherer       prometheus.Gatherer
	Logger         logr.Logger
}

type Server struct {
	relay       Relay
	log         logr.Logger
	gatherer    prometheus.Gatherer
	extensionID string
	httpServer  *http.Server
}

func NewServer(relay Relay, opts Options) *Server {
	s := &Server{
		relay:       relay,
		log:         opts.Logger,
		gatherer:    opts.Gatherer,
		extensionID: opts.ExtensionID,
	}

	maxPoll := opts.MaxPollTimeout
	if maxPoll <= 0 {
		maxPoll = application.DefaultMaxPollTimeout
	}

	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      maxPoll + writeSlack,
		IdleTimeout:       idleTimeout,
	}

	return s
}

// Handler returns the full middleware chain around the API router.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/session/register", s.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/session/create", s.handleCreate).Methods(http.MethodPost)
	api.HandleFunc("/session/link-url", s.handleLinkURL).Methods(http.MethodPost)
	api.HandleFunc("/session/find-by-url", s.handleFindByURL).Methods(http.MethodGet)
	api.HandleFunc("/session/poll", s.handlePoll).Methods(http.MethodGet)
	api.HandleFunc("/session/{id}", s.handleGetSession).Methods(http.MethodGet)
	api.HandleFunc("/annotation", s.handleSubmit).Methods(http.MethodPost)
	api.HandleFunc("/sessions", s.handleSessions).Methods(http.MethodGet)
	api.HandleFunc("/annotations", s.handleAnnotations).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, fmt.Errorf("%w: no such route", errNotFound))
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, errMethodNotAllowed)
	})

	return s.recoverPanics(s.logRequests(s.cors(router)))
}

// ListenAndServe blocks until the server stops. A graceful Shutdown is not
// reported as an error.
func (s *Server) ListenAndServe() error {
	s.log.Info("relay listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}
	return nil
}

func (s *Server) Serve(listener net.Listener) error {
	s.log.Info("relay listening", "addr", listener.Addr().String())
	if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
