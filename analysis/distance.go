package analysis

import (
	"math"
)

// Metrics holds distance measurements between a reference impact and a
// candidate rendering.
type Metrics struct {
	SampleRate    int `json:"sample_rate"`
	AlignedFrames int `json:"aligned_frames"`
	LagSamples    int `json:"lag_samples"`

	TimeRMSE       float64 `json:"time_rmse"`
	EnvelopeRMSEDB float64 `json:"envelope_rmse_db"`
	SpectralRMSEDB float64 `json:"spectral_rmse_db"`
	RefDecay       float64 `json:"ref_decay"`  // 1/s
	CandDecay      float64 `json:"cand_decay"` // 1/s
	RefPeakHz      float64 `json:"ref_peak_hz"`
	CandPeakHz     float64 `json:"cand_peak_hz"`

	Score float64 `json:"score"` // 0 identical .. 1 unrelated
}

const (
	envFrame = 256
	envHop   = 128
	minAlign = 512
)

// Compare aligns candidate to reference by onset cross-correlation and
// combines time, envelope, spectral and decay distances into a score.
func Compare(reference, candidate []float64, sampleRate int) Metrics {
	m := Metrics{SampleRate: sampleRate, Score: 1}
	if sampleRate <= 0 {
		return m
	}
	ref := normalizeRMS(trimLeadingSilence(reference, 1e-6), 0.1)
	cand := normalizeRMS(trimLeadingSilence(candidate, 1e-6), 0.1)
	if len(ref) < minAlign || len(cand) < minAlign {
		return m
	}

	maxLag := min(sampleRate/20, len(ref)-1, len(cand)-1)
	m.LagSamples = estimateLag(ref, cand, max(maxLag, 1))
	ref, cand = alignByLag(ref, cand, m.LagSamples)
	n := min(len(ref), len(cand), sampleRate*4)
	if n < minAlign {
		return m
	}
	ref, cand = ref[:n], cand[:n]
	m.AlignedFrames = n
	m.TimeRMSE = rmse(ref, cand)

	refEnv := rmsEnvelope(ref, envFrame, envHop)
	candEnv := rmsEnvelope(cand, envFrame, envHop)
	if k := min(len(refEnv), len(candEnv)); k > 0 {
		d := make([]float64, k)
		for i := range d {
			d[i] = linToDB(refEnv[i]) - linToDB(candEnv[i])
		}
		m.EnvelopeRMSEDB = rms1(d)
	}

	decayDiff := 0.0
	hop := envHop / float64(sampleRate)
	rs, cs := decaySlopeDBPerS(refEnv, hop), decaySlopeDBPerS(candEnv, hop)
	if isFinite(rs) && isFinite(cs) {
		m.RefDecay, m.CandDecay = rs/dBPerNeper, cs/dBPerNeper
		decayDiff = math.Abs(rs - cs)
	}

	if rsp, err := NewSpectrum(ref, sampleRate); err == nil {
		if csp, err := NewSpectrum(cand, sampleRate); err == nil {
			m.SpectralRMSEDB = spectralRMSEDB(rsp, csp)
			m.RefPeakHz, m.CandPeakHz = rsp.Peak(20), csp.Peak(20)
		}
	}

	timeNorm := clamp01(m.TimeRMSE / 0.25)
	envNorm := clamp01(m.EnvelopeRMSEDB / 30)
	specNorm := clamp01(m.SpectralRMSEDB / 30)
	decNorm := clamp01(decayDiff / 40)
	m.Score = clamp01(0.2*timeNorm + 0.25*envNorm + 0.4*specNorm + 0.15*decNorm)
	return m
}

// spectralRMSEDB is the RMS log-magnitude difference over the bins both
// spectra share, excluding DC.
func spectralRMSEDB(a, b *Spectrum) float64 {
	bins := min(len(a.Mag), len(b.Mag))
	if bins < 3 {
		return 0
	}
	var sum float64
	for k := 1; k < bins; k++ {
		d := linToDB(a.Mag[k]) - linToDB(b.Mag[k])
		sum += d * d
	}
	return math.Sqrt(sum / float64(bins-1))
}

func trimLeadingSilence(x []float64, threshold float64) []float64 {
	for i, v := range x {
		if math.Abs(v) > threshold {
			return x[i:]
		}
	}
	return nil
}

func normalizeRMS(x []float64, target float64) []float64 {
	r := rms1(x)
	out := make([]float64, len(x))
	if r <= 1e-12 {
		copy(out, x)
		return out
	}
	g := target / r
	for i, v := range x {
		out[i] = v * g
	}
	return out
}

// estimateLag returns the shift of ref against cand that maximises their
// correlation, with ref leading for positive lags.
func estimateLag(ref, cand []float64, maxLag int) int {
	best, bestLag := math.Inf(-1), 0
	for lag := -maxLag; lag <= maxLag; lag++ {
		if s := dotAtLag(ref, cand, lag); s > best {
			best, bestLag = s, lag
		}
	}
	return bestLag
}

func dotAtLag(a, b []float64, lag int) float64 {
	ai, bi := 0, 0
	if lag >= 0 {
		ai = lag
	} else {
		bi = -lag
	}
	n := min(len(a)-ai, len(b)-bi)
	var sum float64
	for i := 0; i < n; i++ {
		sum += a[ai+i] * b[bi+i]
	}
	return sum
}

func alignByLag(ref, cand []float64, lag int) ([]float64, []float64) {
	if lag >= 0 {
		if lag >= len(ref) {
			return nil, nil
		}
		return ref[lag:], cand
	}
	if -lag >= len(cand) {
		return nil, nil
	}
	return ref, cand[-lag:]
}

func rmse(a, b []float64) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(n))
}

func rms1(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

func rmsEnvelope(x []float64, frame, hop int) []float64 {
	if len(x) < frame {
		return nil
	}
	out := make([]float64, 1+(len(x)-frame)/hop)
	for i := range out {
		out[i] = rms1(x[i*hop : i*hop+frame])
	}
	return out
}

func linToDB(x float64) float64 {
	return 20 * math.Log10(math.Max(x, 1e-12))
}

// decaySlopeDBPerS fits a line to the envelope in dB from just after its
// peak down to 60 dB below it.
func decaySlopeDBPerS(env []float64, hopSec float64) float64 {
	if len(env) < 8 || hopSec <= 0 {
		return math.NaN()
	}
	peak, peakIdx := math.Inf(-1), 0
	for i, v := range env {
		if db := linToDB(v); db > peak {
			peak, peakIdx = db, i
		}
	}
	start := peakIdx + 1
	end := len(env)
	for i := start; i < len(env); i++ {
		if linToDB(env[i]) < peak-60 {
			end = i
			break
		}
	}
	if end-start < 6 {
		return math.NaN()
	}
	var sx, sy, sxx, sxy float64
	n := float64(end - start)
	for i := start; i < end; i++ {
		x := float64(i-start) * hopSec
		y := linToDB(env[i])
		sx += x
		sy += y
		sxx += x * x
		sxy += x * y
	}
	den := n*sxx - sx*sx
	if math.Abs(den) < 1e-12 {
		return math.NaN()
	}
	return (n*sxy - sx*sy) / den
}

func clamp01(x float64) float64 {
	return math.Min(math.Max(x, 0), 1)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
