package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"MertonQuote/internal/engine"
	"MertonQuote/internal/event"
	"MertonQuote/internal/ingestion"
	"MertonQuote/internal/merton"
	"MertonQuote/internal/observability"
	"MertonQuote/internal/quote"
	"MertonQuote/internal/server"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config holds all application configuration, loaded from environment
// variables (optionally seeded from a .env file).
type Config struct {
	NATSURL string

	// Initial parameter guess, shared by every market book.
	Sigma  float64
	Lambda float64
	MuJ    float64
	DeltaJ float64

	// Calibrator knobs.
	WindowSize          int
	MinPointsForUpdate  int
	NMax                int
	UpdateEveryNReturns int
	CoordinateSteps     int

	// Quoting.
	HorizonHours       float64
	RiskFreeRate       float64
	MinHalfSpreadBps   float64
	CurveMonitorEveryN int

	// Channels.
	RawChanSize     int
	TypedChanSize   int
	PublishChanSize int

	// HTTP/Metrics.
	HTTPAddr    string
	MetricsAddr string
}

func DefaultConfig() Config {
	defaults := merton.DefaultParams()
	defaultCfg := merton.DefaultConfig()

	return Config{
		NATSURL: envOrDefault("MERTON_NATS_URL", "nats://localhost:4222"),

		Sigma:  envFloatOrDefault("MERTON_SIGMA", defaults.Sigma),
		Lambda: envFloatOrDefault("MERTON_LAMBDA", defaults.Lambda),
		MuJ:    envFloatOrDefault("MERTON_MU_J", defaults.MuJ),
		DeltaJ: envFloatOrDefault("MERTON_DELTA_J", defaults.DeltaJ),

		WindowSize:          envIntOrDefault("MERTON_WINDOW_SIZE", defaultCfg.WindowSize),
		MinPointsForUpdate:  envIntOrDefault("MERTON_MIN_POINTS_FOR_UPDATE", defaultCfg.MinPointsForUpdate),
		NMax:                envIntOrDefault("MERTON_N_MAX", defaultCfg.NMax),
		UpdateEveryNReturns: envIntOrDefault("MERTON_UPDATE_EVERY_N_RETURNS", defaultCfg.UpdateEveryNReturns),
		CoordinateSteps:     envIntOrDefault("MERTON_COORDINATE_STEPS", defaultCfg.CoordinateSteps),

		HorizonHours:       envFloatOrDefault("MERTON_HORIZON_HOURS", 8.0),
		RiskFreeRate:       envFloatOrDefault("MERTON_RISK_FREE_RATE", 0.0),
		MinHalfSpreadBps:   envFloatOrDefault("MERTON_MIN_HALF_SPREAD_BPS", 2.0),
		CurveMonitorEveryN: envIntOrDefault("MERTON_CURVE_MONITOR_EVERY_N", 120),

		RawChanSize:     envIntOrDefault("MERTON_RAW_CHAN_SIZE", 4096),
		TypedChanSize:   envIntOrDefault("MERTON_TYPED_CHAN_SIZE", 4096),
		PublishChanSize: envIntOrDefault("MERTON_PUBLISH_CHAN_SIZE", 4096),

		HTTPAddr:    envOrDefault("MERTON_HTTP_ADDR", ":8080"),
		MetricsAddr: envOrDefault("MERTON_METRICS_ADDR", ":9091"),
	}
}

func main() {
	// .env is optional; environment variables win.
	_ = godotenv.Load()

	logger := observability.NewLogger("main")
	logger.Info().Msg("mertonquote starting")

	cfg := DefaultConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// --- Observability ---
	metrics := observability.NewMetrics()
	healthChecker := observability.NewHealthChecker()

	// --- Engine ---
	publishChan := make(chan ingestion.PublishableEvent, cfg.PublishChanSize)
	store := engine.NewSnapshotStore()
	eng := engine.New(engine.Options{
		InitialParams: merton.Params{
			Sigma:  cfg.Sigma,
			Lambda: cfg.Lambda,
			MuJ:    cfg.MuJ,
			DeltaJ: cfg.DeltaJ,
		},
		CalibratorConfig: merton.Config{
			WindowSize:          cfg.WindowSize,
			MinPointsForUpdate:  cfg.MinPointsForUpdate,
			NMax:                cfg.NMax,
			UpdateEveryNReturns: cfg.UpdateEveryNReturns,
			CoordinateSteps:     cfg.CoordinateSteps,
		},
		HorizonYears:       quote.HorizonYears(cfg.HorizonHours),
		RiskFreeRate:       cfg.RiskFreeRate,
		MinHalfSpreadBps:   cfg.MinHalfSpreadBps,
		CurveMonitorEveryN: cfg.CurveMonitorEveryN,
	}, store, metrics, publishChan)

	// --- NATS ---
	nc, js, err := ingestion.ConnectNATS(cfg.NATSURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("nats connect")
	}
	defer nc.Close()
	logger.Info().Str("url", cfg.NATSURL).Msg("NATS connected")

	if err := ingestion.EnsureStreams(ctx, js); err != nil {
		logger.Fatal().Err(err).Msg("ensure NATS streams")
	}
	if err := ingestion.EnsureOutboundStream(ctx, js); err != nil {
		logger.Fatal().Err(err).Msg("ensure outbound stream")
	}

	rawEventChan := make(chan ingestion.RawEvent, cfg.RawChanSize)
	natsSubscriber := ingestion.NewNATSSubscriber(js, rawEventChan)
	if err := natsSubscriber.Subscribe(ctx, ingestion.DefaultSubjects()); err != nil {
		logger.Fatal().Err(err).Msg("nats subscribe")
	}

	outboundPublisher := ingestion.NewOutboundPublisher(js, publishChan)

	errChan := make(chan error, 4)

	// 1. Outbound publisher
	go func() {
		errChan <- outboundPublisher.Run(ctx)
	}()

	// 2. NATS → engine ingestion loop
	go func() {
		runIngestionLoop(ctx, rawEventChan, eng, cfg.TypedChanSize)
	}()

	// 3. Query API
	queryServer := server.NewQueryServer(store, healthChecker, metrics)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: queryServer.Handler(),
	}
	go func() {
		go func() {
			<-ctx.Done()
			shutCtx, c := context.WithTimeout(context.Background(), 5*time.Second)
			defer c()
			httpServer.Shutdown(shutCtx)
		}()
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("query API listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("query server: %w", err)
		}
	}()

	// 4. Prometheus metrics server
	go func() {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsServer := &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: metricsMux,
		}
		go func() {
			<-ctx.Done()
			shutCtx, c := context.WithTimeout(context.Background(), 5*time.Second)
			defer c()
			metricsServer.Shutdown(shutCtx)
		}()
		logger.Info().Str("addr", cfg.MetricsAddr).Msg("metrics server listening")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	healthChecker.SetReady(true)
	logger.Info().
		Str("http", cfg.HTTPAddr).
		Str("metrics", cfg.MetricsAddr).
		Str("instance", eng.InstanceID().String()).
		Msg("mertonquote ready")

	select {
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errChan:
		logger.Error().Err(err).Msg("goroutine failed, shutting down")
	}

	cancel()
	natsSubscriber.Stop()
	close(publishChan)

	logger.Info().Msg("mertonquote shutdown complete")
}

// runIngestionLoop reads raw events from NATS, parses and validates them, and
// feeds typed events to the engine in arrival order. Messages are acked after
// the channel send, not after engine processing, so a slow calibration pass
// cannot trip AckWait while backpressure still propagates via the channel.
func runIngestionLoop(ctx context.Context, rawChan <-chan ingestion.RawEvent, eng *engine.Engine, typedChanSize int) {
	logger := observability.NewLogger("ingestion_loop")

	// Subject-prefix → event-type lookup. Subjects end in ".>" with the
	// instrument symbol in the wildcard position.
	subjectToType := make(map[string]string)
	for _, cfg := range ingestion.DefaultSubjects() {
		prefix := strings.TrimSuffix(cfg.Subject, ".>")
		subjectToType[prefix] = cfg.EventType
	}

	typedEventChan := make(chan event.Event, typedChanSize)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-rawChan:
				if !ok {
					close(typedEventChan)
					return
				}

				eventType := resolveEventType(raw.Subject, subjectToType)
				if eventType == "" {
					logger.Warn().Str("subject", raw.Subject).Msg("unknown subject")
					raw.AckFunc() // ack to avoid a redelivery loop
					continue
				}

				evt, err := ingestion.ParseRawEvent(raw, eventType)
				if err != nil {
					logger.Warn().Err(err).Str("subject", raw.Subject).Msg("parse failed")
					raw.AckFunc()
					continue
				}

				select {
				case typedEventChan <- evt:
					raw.AckFunc()
				case <-ctx.Done():
					raw.NakFunc()
					return
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-typedEventChan:
			if !ok {
				return
			}
			if err := eng.ProcessEvent(evt); err != nil {
				logger.Error().
					Err(err).
					Str("type", evt.EventType().String()).
					Str("key", evt.IdempotencyKey()).
					Msg("process event failed")
			}
		}
	}
}

// resolveEventType matches a NATS subject against the longest known prefix.
func resolveEventType(subject string, prefixMap map[string]string) string {
	bestMatch := ""
	bestType := ""
	for prefix, evtType := range prefixMap {
		if strings.HasPrefix(subject, prefix) && len(prefix) > len(bestMatch) {
			bestMatch = prefix
			bestType = evtType
		}
	}
	return bestType
}

// --- Helpers ---

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envFloatOrDefault(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}
