package embedding

import "math"

// DefaultDimension is the vector length produced by the local fallback.
const DefaultDimension = 768

// MockEmbedding derives a vector from the characters of text alone, so equal
// inputs always produce equal vectors. For the rune c at position i it writes
// sin(c+i)*0.1 into slot (c*(i+1)) mod dim; later writes win.
func MockEmbedding(text string, dim int) []float32 {
	if dim <= 0 {
		dim = DefaultDimension
	}
	v := make([]float32, dim)
	i := 0
	for _, r := range text {
		c := int(r)
		v[(c*(i+1))%dim] = float32(math.Sin(float64(c+i)) * 0.1)
		i++
	}
	return v
}
