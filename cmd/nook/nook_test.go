package nookcmder_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	nookcmder "github.com/papercomputeco/nook/cmd/nook"
)

const businessJSON = `{
	"id": "biz-1",
	"name": "Corner Barber",
	"description": "Classic cuts",
	"phone": "+44 20 0000 0000",
	"hours": [{"day": "Mon", "opens": "09:00", "closes": "17:00"}],
	"services": [{"id": "svc-1", "name": "Haircut", "price": 25, "duration_minutes": 30}]
}`

var _ = Describe("NewNookCmd", func() {
	It("registers every subcommand", func() {
		cmd := nookcmder.NewNookCmd()
		names := make([]string, 0, len(cmd.Commands()))
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("serve", "retrieve", "sync", "stats", "records", "config", "version"))
	})

	It("has global debug and config-dir flags", func() {
		cmd := nookcmder.NewNookCmd()
		Expect(cmd.PersistentFlags().Lookup("debug")).NotTo(BeNil())
		Expect(cmd.PersistentFlags().Lookup("config-dir")).NotTo(BeNil())
	})
})

var _ = Describe("Command execution", func() {
	var configDir string

	run := func(args ...string) error {
		cmd := nookcmder.NewNookCmd()
		cmd.SetArgs(append(args, "--config-dir", configDir))
		return cmd.Execute()
	}

	BeforeEach(func() {
		configDir = GinkgoT().TempDir()
		GinkgoT().Setenv("NOOK_RETRIEVAL_KEYWORD_ONLY", "true")
		GinkgoT().Setenv("NOOK_EMBEDDING_DIMENSIONS", "3")
	})

	Describe("records", func() {
		It("initializes the sqlite system of record", func() {
			Expect(run("records", "init")).To(Succeed())

			_, err := os.Stat(filepath.Join(configDir, "records.db"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("imports, lists and deletes a business", func() {
			file := filepath.Join(GinkgoT().TempDir(), "business.json")
			Expect(os.WriteFile(file, []byte(businessJSON), 0o600)).To(Succeed())

			Expect(run("records", "import", file)).To(Succeed())
			Expect(run("records", "list")).To(Succeed())
			Expect(run("records", "delete", "biz-1")).To(Succeed())
		})

		It("fails on an unreadable import file", func() {
			Expect(run("records", "import", filepath.Join(configDir, "missing.json"))).NotTo(Succeed())
		})

		It("fails without a system of record", func() {
			Expect(run("records", "list", "--records-driver", "none")).NotTo(Succeed())
		})
	})

	Describe("sync", func() {
		It("requires a namespace or --all", func() {
			Expect(run("sync")).NotTo(Succeed())
		})

		It("fails to index without an embedding provider", func() {
			file := filepath.Join(GinkgoT().TempDir(), "business.json")
			Expect(os.WriteFile(file, []byte(businessJSON), 0o600)).To(Succeed())
			Expect(run("records", "import", file)).To(Succeed())

			Expect(run("sync", "biz-1")).NotTo(Succeed())
		})
	})

	Describe("stats", func() {
		It("reports an empty store", func() {
			Expect(run("stats")).To(Succeed())
		})
	})

	Describe("retrieve", func() {
		It("answers from an empty namespace", func() {
			Expect(run("retrieve", "biz-1", "opening", "hours", "--raw")).To(Succeed())
		})

		It("requires a namespace and a query", func() {
			Expect(run("retrieve", "biz-1")).NotTo(Succeed())
		})
	})

	Describe("config", func() {
		It("rejects an invalid configuration", func() {
			GinkgoT().Setenv("NOOK_CACHE_BACKEND", "memcached")
			Expect(run("stats")).NotTo(Succeed())
		})
	})
})
