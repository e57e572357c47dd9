package nneval

import "math"

// softmaxInPlace normalizes logits into a probability distribution,
// subtracting the max first so large logits cannot overflow.
func softmaxInPlace(logits []float32) {
	if len(logits) == 0 {
		return
	}
	maxv := logits[0]
	for _, v := range logits[1:] {
		if v > maxv {
			maxv = v
		}
	}
	var sum float64
	for i, v := range logits {
		e := math.Exp(float64(v - maxv))
		logits[i] = float32(e)
		sum += e
	}
	for i := range logits {
		logits[i] = float32(float64(logits[i]) / sum)
	}
}

// valueFromWDL converts softmaxed win/draw/loss probabilities to a
// scalar in [-1, 1] from the mover's perspective.
func valueFromWDL(wdl []float32) float32 {
	return wdl[0] - wdl[2]
}

// valueFromScalar squashes a raw value-head output into [-1, 1].
func valueFromScalar(v float32) float32 {
	return float32(math.Tanh(float64(v)))
}
