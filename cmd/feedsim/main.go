// feedsim publishes a synthetic jump-diffusion tick feed to NATS so the
// quote service can be exercised without a live exchange connection.
package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"MertonQuote/internal/feedsim"
	"MertonQuote/internal/ingestion"
	"MertonQuote/internal/observability"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	logger := observability.NewLogger("feedsim_main")

	natsURL := envOrDefault("MERTON_NATS_URL", "nats://localhost:4222")
	symbols := strings.Split(envOrDefault("FEEDSIM_SYMBOLS", "XBTUSD"), ",")
	s0 := envFloatOrDefault("FEEDSIM_S0", 50000.0)
	sigma := envFloatOrDefault("FEEDSIM_SIGMA", 0.5)
	lambda := envFloatOrDefault("FEEDSIM_LAMBDA", 10.0)
	muJ := envFloatOrDefault("FEEDSIM_MU_J", -0.01)
	deltaJ := envFloatOrDefault("FEEDSIM_DELTA_J", 0.03)
	intervalMs := envIntOrDefault("FEEDSIM_TICK_INTERVAL_MS", 250)
	seed := uint64(envIntOrDefault("FEEDSIM_SEED", 1))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	nc, js, err := ingestion.ConnectNATS(natsURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("nats connect")
	}
	defer nc.Close()

	if err := ingestion.EnsureStreams(ctx, js); err != nil {
		logger.Fatal().Err(err).Msg("ensure streams")
	}

	cfgs := make([]feedsim.Config, 0, len(symbols))
	for i, sym := range symbols {
		sym = strings.TrimSpace(sym)
		if sym == "" {
			continue
		}
		cfgs = append(cfgs, feedsim.Config{
			Symbol:       sym,
			S0:           s0,
			Sigma:        sigma,
			Lambda:       lambda,
			MuJ:          muJ,
			DeltaJ:       deltaJ,
			TickInterval: time.Duration(intervalMs) * time.Millisecond,
			Seed:         seed + uint64(i),
		})
	}

	if err := feedsim.RunAll(ctx, js, cfgs); err != nil {
		logger.Error().Err(err).Msg("simulator stopped")
	}
	logger.Info().Msg("feedsim exited")
}

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
