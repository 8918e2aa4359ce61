package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kilianp07/haulshare/api"
	"github.com/kilianp07/haulshare/app/plugins"
	"github.com/kilianp07/haulshare/config"
	"github.com/kilianp07/haulshare/core/allocation"
	"github.com/kilianp07/haulshare/core/events"
	coremetrics "github.com/kilianp07/haulshare/core/metrics"
	coremon "github.com/kilianp07/haulshare/core/monitoring"
	"github.com/kilianp07/haulshare/core/opportunity"
	"github.com/kilianp07/haulshare/core/proximity"
	"github.com/kilianp07/haulshare/core/relay"
	"github.com/kilianp07/haulshare/core/store"
	"github.com/kilianp07/haulshare/infra/logger"
	"github.com/kilianp07/haulshare/infra/metrics"
	"github.com/kilianp07/haulshare/infra/monitoring"
	"github.com/kilianp07/haulshare/infra/notify"
	"github.com/kilianp07/haulshare/internal/eventbus"
)

// Service wires the store, publishers and metrics sinks to the matching
// services and serves them over HTTP.
type Service struct {
	Store     store.Store
	Allocator *allocation.Allocator
	Matcher   *proximity.Matcher
	Ledger    *opportunity.Ledger
	Merger    *relay.Merger

	cfg       *config.Config
	bus       *eventbus.Bus[events.Event]
	publisher *notify.Multi
	sink      coremetrics.MetricsSink
	log       logger.Logger
}

// New creates a Service from the configuration.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	logg := logger.New("service", cfg.Logging.Level)

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		logg.Warnf("sentry disabled: %v", err)
	} else {
		coremon.Init(mon)
	}

	st, err := plugins.NewStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	bus := eventbus.New[events.Event](eventbus.DefaultBuffer)
	reg := notify.NewRegistry(ctx, bus, logger.New("notify", cfg.Logging.Level))
	pub, err := notify.NewPublisher(reg, cfg.Events)
	if err != nil {
		bus.Close()
		st.Close()
		return nil, fmt.Errorf("event publisher: %w", err)
	}

	return &Service{
		Store:     st,
		Allocator: allocation.NewAllocator(st, sink, logger.New("allocation", cfg.Logging.Level)),
		Matcher:   proximity.NewMatcher(st, pub, sink, logger.New("proximity", cfg.Logging.Level), cfg.Matching),
		Ledger:    opportunity.NewLedger(st, pub, sink, logger.New("opportunity", cfg.Logging.Level)),
		Merger:    relay.NewMerger(st, logger.New("relay", cfg.Logging.Level)),
		cfg:       cfg,
		bus:       bus,
		publisher: pub,
		sink:      sink,
		log:       logg,
	}, nil
}

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler {
	srv := &api.Server{
		Store:     s.Store,
		Allocator: s.Allocator,
		Matcher:   s.Matcher,
		Ledger:    s.Ledger,
		Merger:    s.Merger,
		Log:       logger.New("api", s.cfg.Logging.Level),
		Tokens:    s.cfg.HTTP.Tokens,
		Timeout:   s.cfg.HTTP.RequestTimeout,
	}
	return srv.Router()
}

// Run serves the API until the context is cancelled, then shuts down
// gracefully.
func (s *Service) Run(ctx context.Context) error {
	collected := metrics.StartEventCollector(ctx, s.bus, s.sink)

	servers := []*http.Server{{Addr: s.cfg.HTTP.Addr, Handler: s.Handler()}}
	if p := s.cfg.Metrics.PrometheusPort; p > 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{}))
		servers = append(servers, &http.Server{Addr: ":" + strconv.Itoa(p), Handler: mux})
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			s.log.Infof("listening on %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("serve %s: %w", srv.Addr, err)
			}
		}(srv)
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		coremon.CaptureException(runErr, map[string]string{"module": "http"})
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("shutdown %s: %v", srv.Addr, err)
		}
	}
	s.bus.Close()
	<-collected
	return runErr
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	var errs []error
	if err := s.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publishers: %w", err))
	}
	if c, ok := s.sink.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close metrics sink: %w", err))
		}
	}
	s.bus.Close()
	if err := s.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	coremon.Flush(2 * time.Second)
	return errors.Join(errs...)
}
