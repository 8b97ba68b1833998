// Package keyword ranks a namespace's stored documents by literal token
// overlap with a query. It never calls an embedding provider, which makes it
// the degraded path when embeddings are unavailable.
package keyword

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/papercomputeco/nook/pkg/vector"
)

// Bonus is added when the query mentions a category keyword and the document
// has the matching type.
const Bonus = 3

// DefaultLimit is used when a call leaves limit unset.
const DefaultLimit = 5

// categoryKeywords maps a query substring to the document type it boosts.
var categoryKeywords = []struct {
	keyword string
	docType vector.DocType
}{
	{"hour", vector.TypeBusinessHours},
	{"service", vector.TypeService},
	{"contact", vector.TypeContactInfo},
	{"payment", vector.TypePaymentMethods},
	{"promotion", vector.TypePromotion},
}

// Lister reads every vector of a namespace.
type Lister interface {
	List(ctx context.Context, namespaceID string) ([]vector.Vector, error)
}

// Retriever scores stored documents without embeddings.
type Retriever struct {
	store Lister
}

// New creates a retriever over store.
func New(store Lister) *Retriever {
	return &Retriever{store: store}
}

// SimpleRetrieve returns up to limit documents of the namespace ordered by
// keyword score. Documents with a score of zero are left out. Ties keep
// insertion order.
func (r *Retriever) SimpleRetrieve(ctx context.Context, namespaceID, query string, limit int) ([]vector.Match, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	vectors, err := r.store.List(ctx, namespaceID)
	if err != nil {
		return nil, fmt.Errorf("listing namespace %q: %w", namespaceID, err)
	}

	lowerQuery := strings.ToLower(query)
	tokens := Tokenize(query)

	var matches []vector.Match
	for _, v := range vectors {
		score := Score(lowerQuery, tokens, v.Metadata)
		if score == 0 {
			continue
		}
		matches = append(matches, vector.Match{
			ID:       v.ID,
			Score:    float64(score),
			Metadata: v.Metadata,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Tokenize splits text into lowercase words longer than two characters.
func Tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	tokens := words[:0]
	for _, w := range words {
		if utf8.RuneCountInString(w) > 2 {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

// Score counts the tokens found in the document content and adds the
// category bonuses. lowerQuery must already be lowercased.
func Score(lowerQuery string, tokens []string, md vector.Metadata) int {
	content := strings.ToLower(md.Content)

	score := 0
	for _, t := range tokens {
		if strings.Contains(content, t) {
			score++
		}
	}

	for _, c := range categoryKeywords {
		if md.Type == c.docType && strings.Contains(lowerQuery, c.keyword) {
			score += Bonus
		}
	}
	return score
}
