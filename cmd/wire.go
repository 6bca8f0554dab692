package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bnema/annotation-relay/internal/adapters/archive/chain"
	"github.com/bnema/annotation-relay/internal/adapters/archive/jsonl"
	"github.com/bnema/annotation-relay/internal/adapters/httpapi"
	metricsadapter "github.com/bnema/annotation-relay/internal/adapters/metrics/prometheus"
	"github.com/bnema/annotation-relay/internal/adapters/relayclient"
	annotationsrender "github.com/bnema/annotation-relay/internal/adapters/render/annotations"
	sessionsrender "github.com/bnema/annotation-relay/internal/adapters/render/sessions"
	"github.com/bnema/annotation-relay/internal/adapters/repo/memory"
	sqliterepo "github.com/bnema/annotation-relay/internal/adapters/repo/sqlite"
	tomlrepo "github.com/bnema/annotation-relay/internal/adapters/repo/toml"
	"github.com/bnema/annotation-relay/internal/application"
	"github.com/bnema/annotation-relay/internal/config"
	"github.com/bnema/annotation-relay/internal/domain"
	"github.com/bnema/annotation-relay/internal/logging"
	"github.com/bnema/annotation-relay/internal/ports"
	"github.com/go-logr/logr"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/viper"
)

type app struct {
	cfg                config.Config
	viper              *viper.Viper
	log                logr.Logger
	client             *relayclient.Client
	annotationRenderer func([]domain.Annotation, annotationsrender.RenderOptions) (string, error)
	sessionRenderer    func([]domain.SessionSummary, sessionsrender.RenderOptions) string
	isTerminal         func(io.Writer) bool
	now                func() time.Time
}

// relayServer is everything `serve` owns for the life of the process.
type relayServer struct {
	relay   *application.Relay
	reaper  *application.Reaper
	http    *httpapi.Server
	closers []func() error
}

func wireApp() (*app, error) {
	cfg, v, err := config.Load(viper.New())
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("wire logger: %w", err)
	}

	return &app{
		cfg:                cfg,
		viper:              v,
		log:                log,
		client:             relayclient.New(cfg.Client.ServerURL),
		annotationRenderer: annotationsrender.Render,
		sessionRenderer:    sessionsrender.Render,
		isTerminal:         isTerminal,
		now:                time.Now,
	}, nil
}

func (a *app) wireServer(listen string) (*relayServer, error) {
	repo, archive, closeStorage, err := a.wireStorage()
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	observer, err := metricsadapter.NewObserver(registry)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("wire metrics: %w", err), closeStorage())
	}

	relay := application.NewRelay(repo, archive, ports.SystemClock{}, application.RelayConfig{
		DefaultPollTimeout: a.cfg.Poll.DefaultTimeout,
		MaxPollTimeout:     a.cfg.Poll.MaxTimeout,
		StaleAfter:         a.cfg.Reaper.StaleAfter,
		RoutingStrategy:    a.cfg.Routing.Strategy,
	},
		application.WithLogger(a.log.WithName("relay")),
		application.WithObserver(observer),
	)

	if listen == "" {
		listen = a.cfg.Server.Listen
	}

	return &relayServer{
		relay:  relay,
		reaper: application.NewReaper(relay, a.cfg.Reaper.Interval, a.log.WithName("reaper")),
		http: httpapi.NewServer(relay, httpapi.Options{
			Addr:           listen,
			ExtensionID:    a.cfg.CORS.ExtensionID,
			MaxPollTimeout: a.cfg.Poll.MaxTimeout,
			Gatherer:       registry,
			Logger:         a.log.WithName("http"),
		}),
		closers: []func() error{closeStorage},
	}, nil
}

// wireStorage picks the snapshot repository and archive for storage.backend.
// File and sqlite archives spill into memory when they fail.
func (a *app) wireStorage() (ports.SessionRepository, ports.AnnotationArchive, func() error, error) {
	noop := func() error { return nil }

	switch a.cfg.Storage.Backend {
	case config.BackendMemory:
		store := memory.NewRepository()
		return store, store, noop, nil

	case config.BackendSQLite:
		store, err := sqliterepo.Open(a.cfg.DatabasePath())
		if err != nil {
			return nil, nil, nil, fmt.Errorf("wire sqlite storage: %w", err)
		}
		return store, chain.NewArchive(store, memory.NewRepository()), store.Close, nil

	default:
		a.viper.Set(tomlrepo.SessionsPathKey, a.cfg.SessionsPath())
		repo, err := tomlrepo.NewRepository(a.viper)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("wire session repository: %w", err)
		}
		archive, err := jsonl.NewArchive(a.cfg.ArchivePath())
		if err != nil {
			return nil, nil, nil, fmt.Errorf("wire annotation archive: %w", err)
		}
		return repo, chain.NewArchive(archive, memory.NewRepository()), noop, nil
	}
}

func (s *relayServer) close() error {
	var errs []error
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
