package pattern_test

import (
	"context"
	"math"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/nook/pkg/embeddings/cache"
	"github.com/papercomputeco/nook/pkg/embeddings/pattern"
	"github.com/papercomputeco/nook/pkg/kv/badger"
	"github.com/papercomputeco/nook/pkg/vector"
)

var _ = Describe("Signature", func() {
	It("is unit length and deterministic", func() {
		a := pattern.Signature("What are your opening hours?")
		Expect(a).To(HaveLen(pattern.SignatureDimensions))
		Expect(a).To(Equal(pattern.Signature("what are your opening hours")))

		var norm float64
		for _, x := range a {
			norm += float64(x) * float64(x)
		}
		Expect(math.Sqrt(norm)).To(BeNumerically("~", 1, 1e-5))
	})

	It("scores shared vocabulary above unrelated text", func() {
		q := pattern.Signature("what are your opening hours today")
		near := pattern.Signature("what are your opening hours")
		far := pattern.Signature("do you accept credit cards")
		Expect(vector.CosineSimilarity(q, near)).To(BeNumerically(">", vector.CosineSimilarity(q, far)))
	})

	It("is zero for text without words", func() {
		Expect(vector.IsZero(pattern.Signature("?!   ..."))).To(BeTrue())
	})
})

var _ = Describe("Index", func() {
	var (
		ctx   context.Context
		store *badger.Store
		index *pattern.Index
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		store, err = badger.NewStore(badger.Config{InMemory: true}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		index = pattern.New(store, 0, 0, zap.NewNop())
	})

	AfterEach(func() {
		Expect(store.Close()).To(Succeed())
	})

	It("defaults the threshold", func() {
		Expect(index.Threshold()).To(Equal(pattern.DefaultThreshold))
	})

	It("finds an identical query", func() {
		index.Track(ctx, "What are your hours?", []float32{1, 2})

		p, score, ok := index.FindClosest(ctx, "what are your HOURS")
		Expect(ok).To(BeTrue())
		Expect(score).To(BeNumerically("~", 1, 1e-5))
		Expect(p.Embedding).To(Equal([]float32{1, 2}))
	})

	It("misses unrelated queries", func() {
		index.Track(ctx, "what are your hours", []float32{1, 2})

		_, _, ok := index.FindClosest(ctx, "do you sell gift cards")
		Expect(ok).To(BeFalse())
	})

	It("requires the score to be strictly above the threshold", func() {
		index.Track(ctx, "haircut", []float32{1})

		strict := pattern.New(store, 1, 0, zap.NewNop())
		_, score, ok := strict.FindClosest(ctx, "haircut")
		Expect(score).To(BeNumerically("~", 1, 1e-5))
		Expect(ok).To(Equal(score > 1))
	})

	It("ignores patterns that have no embedding yet", func() {
		index.Track(ctx, "what are your hours", nil)

		_, _, ok := index.FindClosest(ctx, "what are your hours")
		Expect(ok).To(BeFalse())
	})

	It("counts frequency and keeps the latest embedding", func() {
		index.Track(ctx, "hours", []float32{1})
		index.Track(ctx, "Hours", nil)
		index.Track(ctx, "hours ", []float32{2})

		p, ok := index.Get(ctx, "hours")
		Expect(ok).To(BeTrue())
		Expect(p.Frequency).To(Equal(3))
		Expect(p.Embedding).To(Equal([]float32{2}))
		Expect(p.LastUpdated).NotTo(BeZero())
	})

	It("bounds the key length of long queries", func() {
		long := strings.Repeat("opening hours ", 200)
		index.Track(ctx, long, []float32{1})

		key := cache.PrefixedKey(pattern.KeyPrefix, long)
		Expect(key).To(HavePrefix(pattern.KeyPrefix + "sha256:"))
		_, ok, err := store.Get(ctx, key)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())

		p, ok := index.Get(ctx, long)
		Expect(ok).To(BeTrue())
		Expect(p.Pattern).To(Equal(cache.Normalize(long)))
		Expect(p.Frequency).To(Equal(1))
	})

	It("expires patterns after the ttl", func() {
		short := pattern.New(store, 0, time.Second, zap.NewNop())
		short.Track(ctx, "brief", []float32{1})

		Eventually(func() bool {
			_, ok := short.Get(ctx, "brief")
			return ok
		}, 3*time.Second, 100*time.Millisecond).Should(BeFalse())
	})

	It("lists the most frequent patterns first", func() {
		index.Track(ctx, "a b c", nil)
		index.Track(ctx, "hours", nil)
		index.Track(ctx, "hours", nil)

		top, err := index.Top(ctx, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(top).To(HaveLen(1))
		Expect(top[0].Pattern).To(Equal("hours"))
		Expect(top[0].Frequency).To(Equal(2))
	})
})
