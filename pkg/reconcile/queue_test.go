package reconcile_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/nook/pkg/eventstream"
	"github.com/papercomputeco/nook/pkg/reconcile"
	"github.com/papercomputeco/nook/pkg/vector"
)

var errIndex = errors.New("index failed")

type fakeSource struct{}

func (fakeSource) Documents(_ context.Context, ns string) ([]vector.Document, error) {
	return []vector.Document{{
		Content:  "hello",
		Metadata: vector.Metadata{NamespaceID: ns, Type: vector.TypeBasicInfo},
	}}, nil
}

// fakeIndexer counts calls per namespace. It can fail and can block until
// released.
type fakeIndexer struct {
	mu      sync.Mutex
	calls   map[string]int
	fail    bool
	release chan struct{}
}

func newFakeIndexer() *fakeIndexer {
	return &fakeIndexer{calls: map[string]int{}}
}

func (f *fakeIndexer) IndexDocuments(ctx context.Context, ns string, _ []vector.Document) error {
	f.mu.Lock()
	f.calls[ns]++
	fail := f.fail
	release := f.release
	f.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if fail {
		return errIndex
	}
	return nil
}

func (f *fakeIndexer) Calls(ns string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[ns]
}

func (f *fakeIndexer) SetFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

type fakeStats struct{}

func (fakeStats) Stats(context.Context) vector.Stats {
	return vector.Stats{Namespaces: 1, TotalVectors: 3, PerNamespace: map[string]int{"biz": 3}}
}

var _ = Describe("Queue", func() {
	var (
		indexer *fakeIndexer
		queue   *reconcile.Queue
		ctx     context.Context
		cancel  context.CancelFunc
	)

	newQueue := func(mutate func(*reconcile.Config)) *reconcile.Queue {
		c := &reconcile.Config{
			Source:        fakeSource{},
			Indexer:       indexer,
			Store:         fakeStats{},
			NumWorkers:    1,
			BackoffUnit:   20 * time.Millisecond,
			SweepInterval: time.Hour,
			Logger:        zap.NewNop(),
		}
		if mutate != nil {
			mutate(c)
		}
		q, err := reconcile.NewQueue(c)
		Expect(err).NotTo(HaveOccurred())
		return q
	}

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		indexer = newFakeIndexer()
		queue = nil
	})

	AfterEach(func() {
		if queue != nil {
			queue.Close()
		}
		cancel()
	})

	Describe("NewQueue", func() {
		It("requires a source and an indexer", func() {
			_, err := reconcile.NewQueue(&reconcile.Config{Indexer: indexer})
			Expect(err).To(HaveOccurred())

			_, err = reconcile.NewQueue(&reconcile.Config{Source: fakeSource{}})
			Expect(err).To(HaveOccurred())
		})

		It("applies the documented defaults", func() {
			c := &reconcile.Config{Source: fakeSource{}, Indexer: indexer}
			_, err := reconcile.NewQueue(c)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.MaxRetryAttempts).To(Equal(3))
			Expect(c.BackoffUnit).To(Equal(5 * time.Second))
			Expect(c.SweepInterval).To(Equal(15 * time.Minute))
		})
	})

	It("syncs an enqueued namespace and returns it to idle", func() {
		queue = newQueue(nil)
		queue.Start(ctx)

		Expect(queue.Enqueue("biz", false)).To(BeTrue())
		Eventually(func() int { return indexer.Calls("biz") }).Should(Equal(1))
		Eventually(func() reconcile.State { return queue.State("biz") }).Should(Equal(reconcile.Idle))
	})

	It("rejects an empty namespace", func() {
		queue = newQueue(nil)
		Expect(queue.Enqueue("", true)).To(BeFalse())
	})

	It("coalesces repeated enqueues into one run", func() {
		queue = newQueue(nil)

		// Not started yet, so the namespace stays queued.
		Expect(queue.Enqueue("biz", false)).To(BeTrue())
		Expect(queue.Enqueue("biz", false)).To(BeFalse())
		Expect(queue.Enqueue("biz", true)).To(BeFalse())
		Expect(queue.State("biz")).To(Equal(reconcile.Queued))
		Expect(queue.Stats(ctx).QueueDepth).To(Equal(1))

		queue.Start(ctx)
		Eventually(func() int { return indexer.Calls("biz") }).Should(Equal(1))
		Consistently(func() int { return indexer.Calls("biz") }, "100ms").Should(Equal(1))
	})

	It("does not queue a namespace that is running", func() {
		indexer.release = make(chan struct{})
		queue = newQueue(nil)
		queue.Start(ctx)

		Expect(queue.Enqueue("biz", true)).To(BeTrue())
		Eventually(func() reconcile.State { return queue.State("biz") }).Should(Equal(reconcile.Running))
		Expect(queue.Enqueue("biz", false)).To(BeFalse())
		Expect(queue.Stats(ctx).Running).To(Equal(1))

		close(indexer.release)
		Eventually(func() reconcile.State { return queue.State("biz") }).Should(Equal(reconcile.Idle))
		Expect(indexer.Calls("biz")).To(Equal(1))
	})

	It("abandons a namespace after three failed attempts", func() {
		indexer.SetFail(true)
		queue = newQueue(nil)
		queue.Start(ctx)

		Expect(queue.Enqueue("biz", false)).To(BeTrue())
		Eventually(func() reconcile.State { return queue.State("biz") }).Should(Equal(reconcile.Abandoned))
		Expect(indexer.Calls("biz")).To(Equal(3))
		Expect(queue.Attempts("biz")).To(Equal(3))

		// No fourth attempt, even after the sweep.
		Expect(queue.Sweep()).To(Equal(0))
		Consistently(func() int { return indexer.Calls("biz") }, "150ms").Should(Equal(3))

		stats := queue.Stats(ctx)
		Expect(stats.Abandoned).To(Equal(1))
		Expect(stats.AbandonedNamespaces).To(Equal([]string{"biz"}))
	})

	It("waits attempts times the backoff unit between retries", func() {
		indexer.SetFail(true)
		queue = newQueue(func(c *reconcile.Config) { c.BackoffUnit = 200 * time.Millisecond })
		queue.Start(ctx)

		Expect(queue.Enqueue("biz", false)).To(BeTrue())
		Eventually(func() int { return indexer.Calls("biz") }).Should(Equal(1))
		Expect(queue.State("biz")).To(Or(Equal(reconcile.Running), Equal(reconcile.RetryPending)))
		Consistently(func() int { return indexer.Calls("biz") }, "100ms").Should(Equal(1))
		Eventually(func() int { return indexer.Calls("biz") }, "1s").Should(Equal(2))
	})

	It("recovers when a retry succeeds", func() {
		indexer.SetFail(true)
		queue = newQueue(func(c *reconcile.Config) { c.BackoffUnit = 100 * time.Millisecond })
		queue.Start(ctx)

		Expect(queue.Enqueue("biz", false)).To(BeTrue())
		Eventually(func() reconcile.State { return queue.State("biz") }).Should(Equal(reconcile.RetryPending))
		indexer.SetFail(false)

		Eventually(func() reconcile.State { return queue.State("biz") }, "1s").Should(Equal(reconcile.Idle))
		Expect(queue.Attempts("biz")).To(Equal(0))
	})

	It("runs a pending retry now on explicit enqueue", func() {
		indexer.SetFail(true)
		queue = newQueue(func(c *reconcile.Config) { c.BackoffUnit = time.Hour })
		queue.Start(ctx)

		Expect(queue.Enqueue("biz", false)).To(BeTrue())
		Eventually(func() reconcile.State { return queue.State("biz") }).Should(Equal(reconcile.RetryPending))
		Expect(queue.Stats(ctx).PendingRetry).To(Equal(1))

		Expect(queue.Enqueue("biz", true)).To(BeTrue())
		Eventually(func() int { return indexer.Calls("biz") }).Should(Equal(2))
		Expect(queue.Attempts("biz")).To(Equal(2))
	})

	It("re-admits an abandoned namespace on explicit enqueue", func() {
		indexer.SetFail(true)
		queue = newQueue(nil)
		queue.Start(ctx)

		Expect(queue.Enqueue("biz", false)).To(BeTrue())
		Eventually(func() reconcile.State { return queue.State("biz") }).Should(Equal(reconcile.Abandoned))

		indexer.SetFail(false)
		Expect(queue.Enqueue("biz", false)).To(BeTrue())
		Eventually(func() reconcile.State { return queue.State("biz") }).Should(Equal(reconcile.Idle))
		Expect(indexer.Calls("biz")).To(Equal(4))
		Expect(queue.Stats(ctx).Abandoned).To(Equal(0))
	})

	It("enqueues namespaces from the inbox", func() {
		queue = newQueue(nil)
		queue.Start(ctx)

		queue.Inbox() <- *eventstream.NewRecordChangedEvent("biz", "faq", "faq-1", eventstream.OpUpsert)
		Eventually(func() int { return indexer.Calls("biz") }).Should(Equal(1))
	})

	It("refuses work after Close", func() {
		queue = newQueue(nil)
		queue.Start(ctx)
		queue.Close()

		Expect(queue.Enqueue("biz", true)).To(BeFalse())
	})

	It("includes store statistics", func() {
		queue = newQueue(nil)
		stats := queue.Stats(ctx)
		Expect(stats.Store).NotTo(BeNil())
		Expect(stats.Store.TotalVectors).To(Equal(3))
		Expect(stats.AbandonedNamespaces).To(BeEmpty())
	})
})

var _ = Describe("State", func() {
	It("names every state", func() {
		Expect(reconcile.Idle.String()).To(Equal("idle"))
		Expect(reconcile.Queued.String()).To(Equal("queued"))
		Expect(reconcile.Running.String()).To(Equal("running"))
		Expect(reconcile.RetryPending.String()).To(Equal("retry_pending"))
		Expect(reconcile.Abandoned.String()).To(Equal("abandoned"))
	})
})
