package vad

// analyserScale maps a full-scale int16 deviation onto the 0..128 range of an
// 8-bit time-domain analyser.
const analyserScale = 256.0

// Volume returns the mean absolute deviation of samples from the zero
// baseline, normalised by window length.
func Volume(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, sample := range samples {
		deviation := float64(sample)
		if deviation < 0 {
			deviation = -deviation
		}
		sum += deviation
	}

	return sum / float64(len(samples)) / analyserScale
}
