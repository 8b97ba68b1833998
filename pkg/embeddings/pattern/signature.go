package pattern

import (
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// SignatureDimensions is the length of a lexical signature.
const SignatureDimensions = 256

// Signature computes a local lexical embedding of text by hashing its words
// and adjacent word pairs into a fixed number of buckets. The result is L2
// normalized, so cosine similarity between two signatures measures how much
// vocabulary the texts share. No remote call is involved.
func Signature(text string) []float32 {
	sig := make([]float32, SignatureDimensions)

	words := tokenize(text)
	for i, w := range words {
		addFeature(sig, w, 1)
		if i > 0 {
			addFeature(sig, words[i-1]+" "+w, 0.5)
		}
	}

	var norm float64
	for _, x := range sig {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return sig
	}

	scale := float32(1 / math.Sqrt(norm))
	for i := range sig {
		sig[i] *= scale
	}
	return sig
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// addFeature adds weight to the bucket of feature. One hash bit picks the
// sign so colliding features tend to cancel instead of piling up.
func addFeature(sig []float32, feature string, weight float32) {
	h := fnv.New32a()
	h.Write([]byte(feature))
	sum := h.Sum32()

	idx := sum % SignatureDimensions
	if sum&(1<<31) != 0 {
		weight = -weight
	}
	sig[idx] += weight
}
