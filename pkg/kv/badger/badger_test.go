package badger_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/nook/pkg/kv"
	"github.com/papercomputeco/nook/pkg/kv/badger"
)

var _ = Describe("Store", func() {
	var (
		ctx   context.Context
		store *badger.Store
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		store, err = badger.NewStore(badger.Config{InMemory: true, KeyPrefix: "test:"}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(store.Close()).To(Succeed())
	})

	It("requires a directory unless in memory", func() {
		_, err := badger.NewStore(badger.Config{}, zap.NewNop())
		Expect(err).To(HaveOccurred())
	})

	It("round-trips a value", func() {
		Expect(store.Set(ctx, "k", []byte("v"), 0)).To(Succeed())

		value, ok, err := store.Get(ctx, "k")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(string(value)).To(Equal("v"))
	})

	It("reports a miss for unknown keys", func() {
		_, ok, err := store.Get(ctx, "missing")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("rejects empty keys", func() {
		Expect(store.Set(ctx, "", []byte("v"), 0)).To(MatchError(kv.ErrInvalidKey))
	})

	It("expires entries after their ttl", func() {
		Expect(store.Set(ctx, "short", []byte("v"), time.Second)).To(Succeed())

		Eventually(func() bool {
			_, ok, _ := store.Get(ctx, "short")
			return ok
		}, 3*time.Second, 100*time.Millisecond).Should(BeFalse())
	})

	It("scans keys by prefix without the store prefix", func() {
		Expect(store.Set(ctx, "pattern:a", []byte("1"), 0)).To(Succeed())
		Expect(store.Set(ctx, "pattern:b", []byte("2"), 0)).To(Succeed())
		Expect(store.Set(ctx, "embedding:c", []byte("3"), 0)).To(Succeed())

		seen := map[string]string{}
		Expect(store.Scan(ctx, "pattern:", func(key string, value []byte) error {
			seen[key] = string(value)
			return nil
		})).To(Succeed())

		Expect(seen).To(Equal(map[string]string{"pattern:a": "1", "pattern:b": "2"}))
	})

	It("stops scanning when the callback fails", func() {
		Expect(store.Set(ctx, "p:a", []byte("1"), 0)).To(Succeed())
		Expect(store.Set(ctx, "p:b", []byte("2"), 0)).To(Succeed())

		boom := errors.New("boom")
		calls := 0
		err := store.Scan(ctx, "p:", func(string, []byte) error {
			calls++
			return boom
		})
		Expect(err).To(MatchError(boom))
		Expect(calls).To(Equal(1))
	})

	It("persists to disk across reopen", func() {
		dir := GinkgoT().TempDir()
		s, err := badger.NewStore(badger.Config{Dir: dir}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Set(ctx, "k", []byte("v"), 0)).To(Succeed())
		Expect(s.Close()).To(Succeed())

		s, err = badger.NewStore(badger.Config{Dir: dir}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		defer s.Close()

		value, ok, err := s.Get(ctx, "k")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(string(value)).To(Equal("v"))
	})
})
