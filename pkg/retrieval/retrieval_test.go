package retrieval_test

import (
	"context"
	"errors"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/nook/pkg/embeddings/cache"
	"github.com/papercomputeco/nook/pkg/embeddings/pattern"
	"github.com/papercomputeco/nook/pkg/embeddings/provider"
	"github.com/papercomputeco/nook/pkg/embeddings/resolve"
	"github.com/papercomputeco/nook/pkg/kv/badger"
	"github.com/papercomputeco/nook/pkg/retrieval"
	testutils "github.com/papercomputeco/nook/pkg/utils/test"
	"github.com/papercomputeco/nook/pkg/vector"
	"github.com/papercomputeco/nook/pkg/vector/local"
)

func document(ns string, t vector.DocType, ref, content string) vector.Document {
	return vector.Document{
		Content:  content,
		Metadata: vector.Metadata{NamespaceID: ns, Type: t, Source: "business_profile", Ref: ref},
	}
}

var _ = Describe("DocumentID", func() {
	now := time.UnixMilli(1700000000123)

	It("uses the type-specific identifier", func() {
		md := vector.Metadata{NamespaceID: "B1", Type: vector.TypeService, Ref: "svc-7"}
		Expect(retrieval.DocumentID(md, now)).To(Equal("B1_service_svc-7"))
	})

	It("falls back to a timestamp", func() {
		md := vector.Metadata{NamespaceID: "B1", Type: vector.TypeBasicInfo}
		Expect(retrieval.DocumentID(md, now)).To(Equal("B1_basic_info_1700000000123"))
	})
})

var _ = Describe("Adapter", func() {
	var (
		ctx      context.Context
		store    *local.Store
		kvStore  *badger.Store
		embedder *testutils.MockEmbedder
		adapter  *retrieval.Adapter
		resolver *resolve.Resolver
	)

	BeforeEach(func() {
		ctx = context.Background()
		logger := zap.NewNop()

		var err error
		store, err = local.NewStore(local.Config{Root: GinkgoT().TempDir(), Dimensions: 3}, logger)
		Expect(err).NotTo(HaveOccurred())

		kvStore, err = badger.NewStore(badger.Config{InMemory: true}, logger)
		Expect(err).NotTo(HaveOccurred())

		embedder = testutils.NewMockEmbedder(3)
		embedder.Set("Open Monday to Friday", []float32{1, 0, 0})
		embedder.Set("Haircut 30 minutes", []float32{0, 1, 0})
		embedder.Set("Do you do beards? Yes", []float32{0, 0, 1})
		embedder.Set("when are you open", []float32{0.9, 0.1, 0})

		p, err := provider.New(embedder, provider.Config{Dimensions: 3}, logger)
		Expect(err).NotTo(HaveOccurred())

		resolver = resolve.New(pattern.New(kvStore, 0, 0, logger), cache.New(kvStore, 0, logger), p, logger)
		adapter = retrieval.New(store, resolver, retrieval.Config{}, logger)
	})

	AfterEach(func() {
		Expect(store.Close()).To(Succeed())
		Expect(kvStore.Close()).To(Succeed())
	})

	storeThree := func() {
		Expect(adapter.StoreDocument(ctx, document("B1", vector.TypeBasicInfo, "", "Open Monday to Friday"), []float32{1, 0, 0})).To(BeTrue())
		Expect(adapter.StoreDocument(ctx, document("B1", vector.TypeService, "svc-1", "Haircut 30 minutes"), []float32{0, 1, 0})).To(BeTrue())
		Expect(adapter.StoreDocument(ctx, document("B1", vector.TypeFAQ, "faq-1", "Do you do beards? Yes"), []float32{0, 0, 1})).To(BeTrue())
	}

	Describe("StoreDocument", func() {
		It("folds content into metadata", func() {
			storeThree()

			list, err := store.List(ctx, "B1")
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(3))
			Expect(list[1].ID).To(Equal("B1_service_svc-1"))
			Expect(list[1].Metadata.Content).To(Equal("Haircut 30 minutes"))
		})

		It("rejects documents without a namespace or with an unknown type", func() {
			Expect(adapter.StoreDocument(ctx, document("", vector.TypeFAQ, "f", "x"), []float32{1, 0, 0})).To(BeFalse())
			Expect(adapter.StoreDocument(ctx, document("B1", vector.DocType("menu"), "", "x"), []float32{1, 0, 0})).To(BeFalse())
		})

		It("replaces a document with the same identifier", func() {
			Expect(adapter.StoreDocument(ctx, document("B1", vector.TypeService, "svc-1", "old"), []float32{0, 1, 0})).To(BeTrue())
			Expect(adapter.StoreDocument(ctx, document("B1", vector.TypeService, "svc-1", "new"), []float32{0, 1, 0})).To(BeTrue())

			list, err := store.List(ctx, "B1")
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(1))
			Expect(list[0].Metadata.Content).To(Equal("new"))
		})
	})

	Describe("RetrieveRelevant", func() {
		BeforeEach(storeThree)

		It("answers semantically with scores in the documents", func() {
			docs, mode := adapter.RetrieveWithMode(ctx, "B1", "when are you open", 2)
			Expect(mode).To(Equal(retrieval.ModeSemantic))
			Expect(docs).To(HaveLen(2))
			Expect(docs[0].Content).To(Equal("Open Monday to Friday"))
			Expect(docs[0].Score).To(BeNumerically(">", docs[1].Score))
			Expect(docs[0].Metadata.Type).To(Equal(vector.TypeBasicInfo))
		})

		It("defaults the limit to 5", func() {
			docs := adapter.RetrieveRelevant(ctx, "B1", "when are you open", 0)
			Expect(docs).To(HaveLen(3))
		})

		It("falls back to keywords for one call and recovers afterwards", func() {
			embedder.SetFailing(true)
			docs, mode := adapter.RetrieveWithMode(ctx, "B1", "haircut price", 5)
			Expect(mode).To(Equal(retrieval.ModeKeyword))
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].Content).To(Equal("Haircut 30 minutes"))

			embedder.SetFailing(false)
			_, mode = adapter.RetrieveWithMode(ctx, "B1", "when are you open", 5)
			Expect(mode).To(Equal(retrieval.ModeSemantic))
		})

		It("uses keywords for every call when configured", func() {
			keywordOnly := retrieval.New(store, resolver, retrieval.Config{KeywordOnly: true}, zap.NewNop())
			_, mode := keywordOnly.RetrieveWithMode(ctx, "B1", "when are you open", 5)
			Expect(mode).To(Equal(retrieval.ModeKeyword))
			Expect(embedder.Calls()).To(BeZero())
		})

		It("returns an empty list for an unknown namespace", func() {
			docs := adapter.RetrieveRelevant(ctx, "nobody", "when are you open", 5)
			Expect(docs).To(BeEmpty())
		})

		It("falls back to keywords when the store query fails", func() {
			failing := testutils.NewMockVectorStore()
			failing.Fail = true
			degraded := retrieval.New(failing, resolver, retrieval.Config{}, zap.NewNop())

			docs, mode := degraded.RetrieveWithMode(ctx, "B1", "when are you open", 5)
			Expect(mode).To(Equal(retrieval.ModeKeyword))
			Expect(docs).NotTo(BeNil())
			Expect(docs).To(BeEmpty())
		})
	})

	Describe("DeleteBusinessData", func() {
		It("removes the namespace and leaves queries empty", func() {
			storeThree()
			Expect(adapter.DeleteBusinessData(ctx, "B1")).To(BeTrue())

			matches, err := store.Query(ctx, vector.QueryRequest{Vector: []float32{1, 0, 0}, Filter: vector.NamespaceFilter("B1")})
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(BeEmpty())
		})

		It("succeeds when nothing is removed", func() {
			Expect(adapter.DeleteBusinessData(ctx, "empty")).To(BeTrue())
		})

		It("fails when the store fails", func() {
			failing := testutils.NewMockVectorStore()
			failing.Fail = true
			Expect(retrieval.New(failing, resolver, retrieval.Config{}, zap.NewNop()).DeleteBusinessData(ctx, "B1")).To(BeFalse())
		})
	})

	Describe("IndexDocuments", func() {
		It("embeds every document and removes stale vectors", func() {
			Expect(adapter.StoreDocument(ctx, document("B1", vector.TypeService, "gone", "Retired service"), []float32{0, 1, 0})).To(BeTrue())

			err := adapter.IndexDocuments(ctx, "B1", []vector.Document{
				document("B1", vector.TypeService, "svc-1", "Haircut 30 minutes"),
				document("B1", vector.TypeFAQ, "faq-1", "Do you do beards? Yes"),
			})
			Expect(err).NotTo(HaveOccurred())

			list, err := store.List(ctx, "B1")
			Expect(err).NotTo(HaveOccurred())
			ids := []string{}
			for _, v := range list {
				ids = append(ids, v.ID)
			}
			Expect(ids).To(ConsistOf("B1_service_svc-1", "B1_faq_faq-1"))
		})

		It("writes nothing when an embedding is unavailable", func() {
			embedder.FailOn("Do you do beards? Yes")

			err := adapter.IndexDocuments(ctx, "B1", []vector.Document{
				document("B1", vector.TypeService, "svc-1", "Haircut 30 minutes"),
				document("B1", vector.TypeFAQ, "faq-1", "Do you do beards? Yes"),
			})
			Expect(errors.Is(err, vector.ErrEmbedding)).To(BeTrue())

			list, err := store.List(ctx, "B1")
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(BeEmpty())
		})

		It("empties the namespace when the record produces no documents", func() {
			storeThree()
			Expect(adapter.IndexDocuments(ctx, "B1", nil)).To(Succeed())
			Expect(store.Stats(ctx).TotalVectors).To(BeZero())
		})

		It("leaves namespaces with colliding vector ids alone", func() {
			// Both documents derive the id "A_faq_faq_1".
			Expect(adapter.StoreDocument(ctx, document("A", vector.TypeFAQ, "faq_1", "Do you do beards? Yes"), []float32{0, 0, 1})).To(BeTrue())
			Expect(adapter.StoreDocument(ctx, document("A_faq", vector.TypeFAQ, "1", "Do you do beards? Yes"), []float32{0, 0, 1})).To(BeTrue())

			Expect(adapter.IndexDocuments(ctx, "A_faq", nil)).To(Succeed())

			Expect(store.Stats(ctx).PerNamespace).To(Equal(map[string]int{"A": 1}))
		})

		It("forces the namespace onto every document", func() {
			Expect(adapter.IndexDocuments(ctx, "B2", []vector.Document{
				document("other", vector.TypeService, "svc-1", "Haircut 30 minutes"),
			})).To(Succeed())

			list, err := store.List(ctx, "B2")
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(1))
			Expect(strings.HasPrefix(list[0].ID, "B2_")).To(BeTrue())
		})
	})
})
