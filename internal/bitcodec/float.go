package bitcodec

import "math"

func float32bits(v float32) uint32 {
	return math.Float32bits(v)
}

func float32frombits(b uint32) float32 {
	return math.Float32frombits(b)
}
