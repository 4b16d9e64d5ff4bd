package audiosync

import "math"

// downsample averages fixed bins down to the target rate and removes the DC
// component. The result is capped at maxSamples.
func downsample(samples []float64, fromRate, toRate, maxSamples int) []float64 {
	if fromRate <= toRate {
		out := samples
		if len(out) > maxSamples {
			out = out[:maxSamples]
		}
		return subtractMean(append([]float64(nil), out...))
	}

	bin := fromRate / toRate
	n := len(samples) / bin
	if n > maxSamples {
		n = maxSamples
	}

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		var sum float64
		for j := i * bin; j < (i+1)*bin; j++ {
			sum += samples[j]
		}
		out[i] = sum / float64(bin)
	}

	return subtractMean(out)
}

func subtractMean(samples []float64) []float64 {
	if len(samples) == 0 {
		return samples
	}

	var sum float64
	for _, s := range samples {
		sum += s
	}
	mean := sum / float64(len(samples))

	for i := range samples {
		samples[i] -= mean
	}

	return samples
}

func rms(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, s := range samples {
		sum += s * s
	}

	return math.Sqrt(sum / float64(len(samples)))
}

// correlate finds the lag of y relative to x that maximizes the normalized
// cross-correlation. A positive lag means y starts later than x. Lags whose
// overlap is shorter than minOverlap are skipped.
func correlate(x, y []float64, maxLag, minOverlap int) (bestLag int, bestCorr float64) {
	for lag := -maxLag; lag <= maxLag; lag++ {
		var xStart, yStart int
		if lag >= 0 {
			xStart = lag
		} else {
			yStart = -lag
		}

		n := min(len(x)-xStart, len(y)-yStart)
		if n < minOverlap {
			continue
		}

		var dot, xx, yy float64
		for i := 0; i < n; i++ {
			a := x[xStart+i]
			b := y[yStart+i]
			dot += a * b
			xx += a * a
			yy += b * b
		}

		if xx == 0 || yy == 0 {
			continue
		}

		corr := dot / math.Sqrt(xx*yy)
		if corr > bestCorr {
			bestCorr = corr
			bestLag = lag
		}
	}

	return bestLag, bestCorr
}
