package merton

// Params holds the four estimated parameters of the Merton jump-diffusion
// process dS/S = (r - q - lambda*k)dt + sigma*dW + (J-1)dN with
// log J ~ N(MuJ, DeltaJ^2). Plain value struct: collaborators construct and
// read it field by field, the calibrator commits it as a whole.
type Params struct {
	Sigma  float64 // diffusion volatility (annualized)
	Lambda float64 // jump intensity (jumps per year)
	MuJ    float64 // mean log-jump size
	DeltaJ float64 // log-jump standard deviation
}

// Config is the calibrator configuration, immutable after construction.
type Config struct {
	WindowSize          int     // rolling window capacity W
	MinPointsForUpdate  int     // minimum samples before recalibration
	NMax                int     // mixture truncation (jump count components)
	UpdateEveryNReturns int     // recalibration cadence in accepted returns
	CoordinateSteps     int     // coordinate-search rounds per invocation
	ImprovementTol      float64 // minimum NLL improvement to accept a trial
}

// DefaultParams is a reasonable seed for a crypto perpetual; production
// deployments override it from offline calibration output.
func DefaultParams() Params {
	return Params{Sigma: 0.44, Lambda: 20.0, MuJ: 0.003, DeltaJ: 0.01}
}

func DefaultConfig() Config {
	return Config{
		WindowSize:          4096,
		MinPointsForUpdate:  512,
		NMax:                15,
		UpdateEveryNReturns: 128,
		CoordinateSteps:     3,
		ImprovementTol:      1e-6,
	}
}

// Clamp forces every component into its allowed range:
// sigma [0.05, 3], lambda [0.01, 40], muJ [-0.5, 0.5], deltaJ [0.01, 1].
// Applied on construction and after every optimizer candidate.
func (p Params) Clamp() Params {
	p.Sigma = clamp(p.Sigma, 0.05, 3.0)
	p.Lambda = clamp(p.Lambda, 0.01, 40.0)
	p.MuJ = clamp(p.MuJ, -0.5, 0.5)
	p.DeltaJ = clamp(p.DeltaJ, 0.01, 1.0)
	return p
}

// withDefaults fills unset (non-positive) fields so a zero-value Config
// behaves like DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.WindowSize <= 0 {
		c.WindowSize = d.WindowSize
	}
	if c.MinPointsForUpdate <= 0 {
		c.MinPointsForUpdate = d.MinPointsForUpdate
	}
	if c.NMax <= 0 {
		c.NMax = d.NMax
	}
	if c.UpdateEveryNReturns <= 0 {
		c.UpdateEveryNReturns = d.UpdateEveryNReturns
	}
	if c.CoordinateSteps <= 0 {
		c.CoordinateSteps = d.CoordinateSteps
	}
	if c.ImprovementTol <= 0 {
		c.ImprovementTol = d.ImprovementTol
	}
	return c
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
