// Package feedsim generates a synthetic jump-diffusion tick feed for local
// development and load testing: geometric Brownian motion with Poisson
// log-normal jumps, published in the same wire format the live feed uses.
package feedsim

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"MertonQuote/internal/observability"
)

// Config describes one simulated instrument.
type Config struct {
	Symbol string
	S0     float64 // starting price

	Sigma  float64 // diffusion volatility, annualized
	Lambda float64 // jump intensity, jumps/year
	MuJ    float64 // mean log-jump
	DeltaJ float64 // log-jump stddev

	TickInterval time.Duration
	Seed         uint64
}

// Simulator advances one price path tick by tick. The drift carries the
// jump compensator so the simulated process is a martingale in expectation,
// matching what the pricer assumes.
type Simulator struct {
	cfg   Config
	price float64
	seq   int64

	rng       *rand.Rand
	diffusion distuv.Normal
	jumpSize  distuv.Normal
}

func New(cfg Config) *Simulator {
	src := rand.NewSource(cfg.Seed)
	return &Simulator{
		cfg:   cfg,
		price: cfg.S0,
		rng:   rand.New(src),
		diffusion: distuv.Normal{
			Mu:    0,
			Sigma: 1,
			Src:   src,
		},
		jumpSize: distuv.Normal{
			Mu:    cfg.MuJ,
			Sigma: cfg.DeltaJ,
			Src:   src,
		},
	}
}

// Price returns the current simulated price.
func (s *Simulator) Price() float64 { return s.price }

// Step advances the path by dtYears and returns the new price.
func (s *Simulator) Step(dtYears float64) float64 {
	k := math.Exp(s.cfg.MuJ+0.5*s.cfg.DeltaJ*s.cfg.DeltaJ) - 1.0
	drift := (-s.cfg.Lambda*k - 0.5*s.cfg.Sigma*s.cfg.Sigma) * dtYears

	logRet := drift + s.cfg.Sigma*math.Sqrt(dtYears)*s.diffusion.Rand()

	// One jump per tick at most; fine as long as lambda*dt stays small.
	if s.rng.Float64() < s.cfg.Lambda*dtYears {
		logRet += s.jumpSize.Rand()
	}

	s.price *= math.Exp(logRet)
	return s.price
}

const secsPerYear = 365.25 * 24.0 * 3600.0

type tickWire struct {
	Market      string  `json:"market"`
	Price       float64 `json:"price"`
	Bid         float64 `json:"bid,omitempty"`
	Ask         float64 `json:"ask,omitempty"`
	TimestampUs int64   `json:"timestamp_us"`
	Sequence    int64   `json:"sequence,omitempty"`
}

// Run publishes ticks to merton.ticks.{symbol} until ctx is cancelled.
func (s *Simulator) Run(ctx context.Context, js jetstream.JetStream, logger zerolog.Logger) error {
	subject := fmt.Sprintf("merton.ticks.%s", s.cfg.Symbol)
	dtYears := s.cfg.TickInterval.Seconds() / secsPerYear

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	logger.Info().
		Str("symbol", s.cfg.Symbol).
		Float64("s0", s.cfg.S0).
		Float64("sigma", s.cfg.Sigma).
		Float64("lambda", s.cfg.Lambda).
		Dur("interval", s.cfg.TickInterval).
		Msg("feed simulator started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			price := s.Step(dtYears)
			s.seq++

			// Synthetic top-of-book: 1bp each side of the simulated price.
			spread := price * 0.0001
			tick := tickWire{
				Market:      s.cfg.Symbol,
				Price:       price,
				Bid:         price - spread,
				Ask:         price + spread,
				TimestampUs: now.UnixMicro(),
				Sequence:    s.seq,
			}

			data, err := json.Marshal(tick)
			if err != nil {
				return fmt.Errorf("marshal tick: %w", err)
			}
			if _, err := js.Publish(ctx, subject, data); err != nil {
				logger.Warn().Err(err).Str("subject", subject).Msg("tick publish failed")
			}
		}
	}
}

// RunAll drives several simulators concurrently and blocks until all exit.
func RunAll(ctx context.Context, js jetstream.JetStream, cfgs []Config) error {
	logger := observability.NewLogger("feedsim")
	errCh := make(chan error, len(cfgs))

	for _, cfg := range cfgs {
		sim := New(cfg)
		go func() {
			errCh <- sim.Run(ctx, js, logger)
		}()
	}

	var firstErr error
	for range cfgs {
		if err := <-errCh; err != nil && firstErr == nil && err != context.Canceled {
			firstErr = err
		}
	}
	return firstErr
}
