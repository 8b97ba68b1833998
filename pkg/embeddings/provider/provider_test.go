package provider_test

import (
	"context"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/nook/pkg/embeddings/provider"
	testutils "github.com/papercomputeco/nook/pkg/utils/test"
	"github.com/papercomputeco/nook/pkg/vector"
)

type slowEmbedder struct{ *testutils.MockEmbedder }

func (s slowEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(time.Second):
		return s.MockEmbedder.Embed(ctx, text)
	}
}

var _ = Describe("Provider", func() {
	var (
		ctx      context.Context
		embedder *testutils.MockEmbedder
		p        *provider.Provider
	)

	BeforeEach(func() {
		ctx = context.Background()
		embedder = testutils.NewMockEmbedder(4)

		var err error
		p, err = provider.New(embedder, provider.Config{Dimensions: 4, MaxChars: 10}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
	})

	It("requires dimensions", func() {
		_, err := provider.New(embedder, provider.Config{}, zap.NewNop())
		Expect(err).To(HaveOccurred())
	})

	It("returns the embedding on success", func() {
		embedder.Set("hello", []float32{1, 2, 3, 4})

		res := p.Embed(ctx, "hello")
		Expect(res.OK).To(BeTrue())
		Expect(res.Values).To(Equal([]float32{1, 2, 3, 4}))
	})

	It("truncates the input to the configured number of characters", func() {
		p.Embed(ctx, strings.Repeat("ab", 20))
		Expect(embedder.LastInput()).To(Equal("ababababab"))
	})

	It("falls back to a zero vector of the right dimension", func() {
		embedder.SetFailing(true)

		res := p.Embed(ctx, "hello")
		Expect(res.OK).To(BeFalse())
		Expect(res.Values).To(HaveLen(4))
		Expect(vector.IsZero(res.Values)).To(BeTrue())
	})

	It("treats a wrong-dimension response as a failure", func() {
		embedder.Set("short", []float32{1, 2})

		res := p.Embed(ctx, "short")
		Expect(res.OK).To(BeFalse())
		Expect(res.Values).To(HaveLen(4))
	})

	It("does not call the embedder for blank text", func() {
		Expect(p.Embed(ctx, "   ").OK).To(BeFalse())
		Expect(embedder.Calls()).To(BeZero())
	})

	It("is unavailable without an embedder", func() {
		none, err := provider.New(nil, provider.Config{Dimensions: 4}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		Expect(none.Available()).To(BeFalse())
		Expect(none.Embed(ctx, "hello").OK).To(BeFalse())
		Expect(none.Close()).To(Succeed())
	})

	It("times out slow calls", func() {
		slow, err := provider.New(slowEmbedder{embedder}, provider.Config{
			Dimensions:     4,
			RequestTimeout: 50 * time.Millisecond,
		}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())

		start := time.Now()
		Expect(slow.Embed(ctx, "hello").OK).To(BeFalse())
		Expect(time.Since(start)).To(BeNumerically("<", 500*time.Millisecond))
	})

	It("opens the circuit after consecutive failures", func() {
		embedder.SetFailing(true)
		for range provider.DefaultBreakerThreshold {
			Expect(p.Embed(ctx, "hello").OK).To(BeFalse())
		}
		Expect(embedder.Calls()).To(Equal(provider.DefaultBreakerThreshold))

		embedder.SetFailing(false)
		Expect(p.Embed(ctx, "hello").OK).To(BeFalse())
		Expect(embedder.Calls()).To(Equal(provider.DefaultBreakerThreshold))
		Expect(p.BreakerState()).NotTo(BeEmpty())
	})
})
