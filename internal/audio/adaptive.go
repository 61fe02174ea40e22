package audio

// AdaptiveController computes the final SRC stage's per-batch fractional
// step (spec §4.D): a batch-target value corrected by a running-mean rate
// error and a PD term on buffer-fill error, clamped to a configured range.
//
//	step = BATCH + mean_rate_error
//	     + Kp*mean_buffer_fill_error + Kd*(buffer_fill_error - previous_buffer_fill_error)
type AdaptiveController struct {
	Batch int
	Kp    float64
	Kd    float64
	Min   float64
	Max   float64

	// NRateInitial and NRate are the running-mean window sizes for the
	// rate-error term: the window starts small (NRateInitial) so the
	// estimate converges quickly at stream start, then grows to NRate
	// (spec: "initially N_rate_initial, grows after startup").
	NRateInitial int
	NRate        int
	NBuf         int

	rateErrors   []float64
	bufErrors    []float64
	prevBufError float64
	batchCount   int
}

// NewAdaptiveController builds a controller with the given parameters.
func NewAdaptiveController(batch int, kp, kd, min, max float64, nRateInitial, nRate, nBuf int) *AdaptiveController {
	return &AdaptiveController{
		Batch:        batch,
		Kp:           kp,
		Kd:           kd,
		Min:          min,
		Max:          max,
		NRateInitial: nRateInitial,
		NRate:        nRate,
		NBuf:         nBuf,
	}
}

func (c *AdaptiveController) rateWindow() int {
	if c.batchCount < c.NRate {
		return c.NRateInitial
	}
	return c.NRate
}

func pushBounded(history []float64, v float64, limit int) []float64 {
	history = append(history, v)
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Next folds in one batch's observed rate error (extra/missing input
// samples relative to the prior batch) and buffer-fill error (deviation of
// buffer occupancy from the ideal fill level), and returns the clamped step
// for the upcoming batch.
func (c *AdaptiveController) Next(rateError, bufferFillError float64) float64 {
	window := c.rateWindow()
	c.rateErrors = pushBounded(c.rateErrors, rateError, window)
	c.bufErrors = pushBounded(c.bufErrors, bufferFillError, c.NBuf)
	c.batchCount++

	meanRateError := mean(c.rateErrors)
	meanBufError := mean(c.bufErrors)
	derivative := bufferFillError - c.prevBufError
	c.prevBufError = bufferFillError

	step := float64(c.Batch) + meanRateError + c.Kp*meanBufError + c.Kd*derivative
	return clamp(step, c.Min, c.Max)
}
