package portfolio

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

// DefaultHashedDimensions is the vector size used by HashedEmbedder when none is set.
const DefaultHashedDimensions = 256

// HashedEmbedder maps text to a bag of hashed words and character trigrams.
// It runs offline, so the index works without an embedding API.
type HashedEmbedder struct {
	Dimensions int
}

// NewHashedEmbedder returns an embedder with the given vector size.
func NewHashedEmbedder(dimensions int) *HashedEmbedder {
	if dimensions <= 0 {
		dimensions = DefaultHashedDimensions
	}
	return &HashedEmbedder{Dimensions: dimensions}
}

func (h *HashedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dims := h.Dimensions
	if dims <= 0 {
		dims = DefaultHashedDimensions
	}

	vec := make([]float32, dims)

	tokens := tokenize(text)
	if len(tokens) == 0 {
		// Symbol-only text still gets a stable vector of its own.
		if raw := strings.TrimSpace(text); raw != "" {
			add(vec, "r:"+raw, 1)
		}
	}

	for _, tok := range tokens {
		add(vec, "w:"+tok, 2)

		padded := []rune(" " + tok + " ")
		for i := 0; i+3 <= len(padded); i++ {
			add(vec, "t:"+string(padded[i:i+3]), 1)
		}
	}

	if isZero(vec) {
		vec[0] = 1
	}

	return vec, nil
}

func isZero(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}

func add(vec []float32, feature string, weight float32) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum32()

	idx := int(sum % uint32(len(vec)))
	if sum&(1<<31) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#' && r != '.'
	})
}
