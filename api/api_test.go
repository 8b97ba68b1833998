package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/nook/pkg/reconcile"
	"github.com/papercomputeco/nook/pkg/retrieval"
	"github.com/papercomputeco/nook/pkg/vector/local"
)

type fakeSyncer struct {
	enqueued  []string
	immediate []bool
	accept    bool
}

func (f *fakeSyncer) Enqueue(namespaceID string, immediate bool) bool {
	f.enqueued = append(f.enqueued, namespaceID)
	f.immediate = append(f.immediate, immediate)
	return f.accept
}

func (f *fakeSyncer) Stats(_ context.Context) reconcile.Stats {
	return reconcile.Stats{QueueDepth: len(f.enqueued), AbandonedNamespaces: []string{}}
}

func readBody(resp *http.Response) []byte {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return body
}

const hoursDocument = `{
	"document": {
		"content": "Opening hours. Mon: 09:00 - 17:00; Sun: closed.",
		"metadata": {"namespaceId": "biz-1", "type": "business_hours", "source": "business_profile"}
	},
	"embedding": [1, 0, 0]
}`

var _ = Describe("Server", func() {
	var (
		server *Server
		store  *local.Store
		syncer *fakeSyncer
	)

	newServer := func(withSyncer bool) *Server {
		c := Config{
			ListenAddr: ":0",
			Retriever:  retrieval.New(store, nil, retrieval.Config{}, zap.NewNop()),
			Store:      store,
		}
		if withSyncer {
			c.Syncer = syncer
		}
		s, err := NewServer(c, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		return s
	}

	storeHours := func() {
		req := httptest.NewRequest(http.MethodPost, "/v1/documents", strings.NewReader(hoursDocument))
		req.Header.Set("Content-Type", "application/json")
		resp, err := server.app.Test(req)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))
	}

	BeforeEach(func() {
		var err error
		store, err = local.NewStore(local.Config{Root: GinkgoT().TempDir(), Dimensions: 3}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())

		syncer = &fakeSyncer{accept: true}
		server = newServer(true)
	})

	AfterEach(func() {
		Expect(store.Close()).To(Succeed())
	})

	Describe("NewServer", func() {
		It("requires a retriever", func() {
			_, err := NewServer(Config{Store: store}, zap.NewNop())
			Expect(err).To(MatchError(ContainSubstring("retriever is required")))
		})

		It("requires a store", func() {
			_, err := NewServer(Config{Retriever: retrieval.New(store, nil, retrieval.Config{}, zap.NewNop())}, zap.NewNop())
			Expect(err).To(MatchError(ContainSubstring("store is required")))
		})
	})

	Describe("GET /ping", func() {
		It("answers pong", func() {
			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(string(readBody(resp))).To(Equal(`"pong"`))
		})
	})

	Describe("GET /metrics", func() {
		It("serves prometheus metrics", func() {
			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(string(readBody(resp))).To(ContainSubstring("go_goroutines"))
		})
	})

	Describe("POST /v1/documents", func() {
		It("stores a document", func() {
			storeHours()
			Expect(store.Stats(context.Background()).TotalVectors).To(Equal(1))
		})

		It("rejects a malformed body", func() {
			req := httptest.NewRequest(http.MethodPost, "/v1/documents", strings.NewReader("{"))
			req.Header.Set("Content-Type", "application/json")
			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects a document without a namespace", func() {
			body := `{"document": {"content": "x", "metadata": {"type": "faq"}}, "embedding": [1, 0, 0]}`
			req := httptest.NewRequest(http.MethodPost, "/v1/documents", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("answers 422 when the document is not stored", func() {
			body := `{"document": {"content": "x", "metadata": {"namespaceId": "biz-1", "type": "menu"}}, "embedding": [1, 0, 0]}`
			req := httptest.NewRequest(http.MethodPost, "/v1/documents", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))

			var out StoreDocumentResponse
			Expect(json.Unmarshal(readBody(resp), &out)).To(Succeed())
			Expect(out.Stored).To(BeFalse())
		})
	})

	Describe("GET /v1/namespaces/:id/retrieve", func() {
		It("returns keyword matches when no resolver is configured", func() {
			storeHours()

			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/v1/namespaces/biz-1/retrieve?query=opening+hours", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var out RetrieveResponse
			Expect(json.Unmarshal(readBody(resp), &out)).To(Succeed())
			Expect(out.NamespaceID).To(Equal("biz-1"))
			Expect(out.Mode).To(Equal(retrieval.ModeKeyword))
			Expect(out.Documents).To(HaveLen(1))
			Expect(out.Documents[0].Content).To(ContainSubstring("Opening hours"))
		})

		It("returns an empty list for an unknown namespace", func() {
			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/v1/namespaces/nobody/retrieve?query=hours", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(string(readBody(resp))).To(ContainSubstring(`"documents":[]`))
		})

		It("requires a query", func() {
			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/v1/namespaces/biz-1/retrieve", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects a non-positive limit", func() {
			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/v1/namespaces/biz-1/retrieve?query=x&limit=0", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("DELETE /v1/namespaces/:id", func() {
		It("removes every document of the namespace", func() {
			storeHours()

			resp, err := server.app.Test(httptest.NewRequest(http.MethodDelete, "/v1/namespaces/biz-1", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var out DeleteResponse
			Expect(json.Unmarshal(readBody(resp), &out)).To(Succeed())
			Expect(out.Deleted).To(BeTrue())
			Expect(store.Stats(context.Background()).TotalVectors).To(Equal(0))
		})
	})

	Describe("POST /v1/namespaces/:id/sync", func() {
		It("schedules an immediate sync by default", func() {
			resp, err := server.app.Test(httptest.NewRequest(http.MethodPost, "/v1/namespaces/biz-1/sync", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusAccepted))
			Expect(syncer.enqueued).To(Equal([]string{"biz-1"}))
			Expect(syncer.immediate).To(Equal([]bool{true}))
		})

		It("honors immediate=false", func() {
			resp, err := server.app.Test(httptest.NewRequest(http.MethodPost, "/v1/namespaces/biz-1/sync?immediate=false", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusAccepted))
			Expect(syncer.immediate).To(Equal([]bool{false}))
		})

		It("keeps namespace ids intact after later requests reuse the buffers", func() {
			for _, id := range []string{"AAAA", "ZZZZ"} {
				resp, err := server.app.Test(httptest.NewRequest(http.MethodPost, "/v1/namespaces/"+id+"/sync", nil))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusAccepted))
			}
			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/v1/namespaces/QQQQ/retrieve?query=hours", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			Expect(syncer.enqueued).To(Equal([]string{"AAAA", "ZZZZ"}))
		})

		It("reports a coalesced request", func() {
			syncer.accept = false
			resp, err := server.app.Test(httptest.NewRequest(http.MethodPost, "/v1/namespaces/biz-1/sync", nil))
			Expect(err).NotTo(HaveOccurred())

			var out SyncResponse
			Expect(json.Unmarshal(readBody(resp), &out)).To(Succeed())
			Expect(out.Queued).To(BeFalse())
		})

		It("answers 503 without a syncer", func() {
			server = newServer(false)
			resp, err := server.app.Test(httptest.NewRequest(http.MethodPost, "/v1/namespaces/biz-1/sync", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))
		})
	})

	Describe("statistics", func() {
		It("reports store statistics", func() {
			storeHours()

			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/v1/stats/store", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(string(readBody(resp))).To(ContainSubstring(`"biz-1":1`))
		})

		It("reports sync statistics", func() {
			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/v1/stats/sync", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("answers 503 for sync statistics without a syncer", func() {
			server = newServer(false)
			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/v1/stats/sync", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))
		})
	})
})
