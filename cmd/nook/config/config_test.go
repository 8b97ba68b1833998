package configcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	configcmder "github.com/papercomputeco/nook/cmd/nook/config"
)

// execute runs the config command with args and returns its output.
func execute(args ...string) (string, error) {
	var out bytes.Buffer
	cmd := configcmder.NewConfigCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// run is execute for commands that must succeed.
func run(args ...string) string {
	GinkgoHelper()
	out, err := execute(args...)
	Expect(err).NotTo(HaveOccurred())
	return out
}

var _ = Describe("NewConfigCmd", func() {
	It("has set, get, list and unset subcommands", func() {
		cmd := configcmder.NewConfigCmd()
		Expect(cmd.Use).To(Equal("config"))

		var names []string
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("set", "get", "list", "unset"))
	})
})

var _ = Describe("config subcommands", func() {
	var nookDir string

	BeforeEach(func() {
		root := GinkgoT().TempDir()
		nookDir = filepath.Join(root, ".nook")
		Expect(os.Mkdir(nookDir, 0o755)).To(Succeed())

		GinkgoT().Setenv("NOOK_HOME", "")
		orig, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(root)).To(Succeed())
		DeferCleanup(func() { Expect(os.Chdir(orig)).To(Succeed()) })
	})

	DescribeTable("argument and value validation",
		func(args ...string) {
			_, err := execute(args...)
			Expect(err).To(HaveOccurred())
		},
		Entry("set with an unknown key", "set", "invalid_key", "value"),
		Entry("set with one argument", "set", "embedding.provider"),
		Entry("set with no arguments", "set"),
		Entry("set with a bad duration", "set", "sync.backoff_unit", "soon"),
		Entry("set with a bad uint", "set", "embedding.dimensions", "not-a-number"),
		Entry("set with a threshold above one", "set", "pattern.threshold", "1.5"),
		Entry("get with an unknown key", "get", "invalid_key"),
		Entry("get with no arguments", "get"),
		Entry("unset with an unknown key", "unset", "invalid_key"),
		Entry("list with an argument", "list", "extra"),
	)

	Describe("set", func() {
		It("writes the value to config.toml", func() {
			run("set", "sync.backoff_unit", "10s")

			data, err := os.ReadFile(filepath.Join(nookDir, "config.toml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`backoff_unit = "10s"`))
		})

		It("prints the previous and the new value", func() {
			out := run("set", "embedding.provider", "ollama")
			Expect(out).To(ContainSubstring("openai"))
			Expect(out).To(ContainSubstring("->"))
			Expect(out).To(ContainSubstring("ollama"))
		})
	})

	Describe("get", func() {
		It("prints only the value with --raw", func() {
			run("set", "embedding.provider", "ollama")
			Expect(run("get", "--raw", "embedding.provider")).To(Equal("ollama\n"))
		})

		It("falls back to the default", func() {
			Expect(run("get", "--raw", "embedding.dimensions")).To(Equal("1536\n"))
			Expect(run("get", "events.kafka_brokers")).To(ContainSubstring("<not set>"))
		})

		It("masks the api key unless --raw is given", func() {
			run("set", "embedding.api_key", "sk-abcdef123456")

			out := run("get", "embedding.api_key")
			Expect(out).To(ContainSubstring("****3456"))
			Expect(out).NotTo(ContainSubstring("sk-abcdef"))

			Expect(run("get", "--raw", "embedding.api_key")).To(Equal("sk-abcdef123456\n"))
		})

		It("shows the default next to a changed value", func() {
			run("set", "embedding.provider", "ollama")
			Expect(run("get", "embedding.provider")).To(ContainSubstring("(default openai)"))
		})
	})

	Describe("unset", func() {
		It("restores the default value", func() {
			run("set", "sync.workers", "9")
			run("unset", "sync.workers")
			Expect(run("get", "--raw", "sync.workers")).To(Equal("2\n"))
		})
	})

	Describe("list", func() {
		It("groups keys by section", func() {
			out := run("list")
			Expect(out).To(ContainSubstring("[embedding]"))
			Expect(out).To(ContainSubstring("[sync]"))
			Expect(out).To(ContainSubstring("[log]"))
			Expect(out).To(ContainSubstring("sync.backoff_unit"))
		})

		It("limits output to changed keys with --changed", func() {
			run("set", "embedding.provider", "ollama")

			out := run("list", "--changed")
			Expect(out).To(ContainSubstring("embedding.provider"))
			Expect(out).NotTo(ContainSubstring("sync.workers"))
		})

		It("reports when every value is a default", func() {
			Expect(run("list", "--changed")).To(ContainSubstring("All values are defaults."))
		})

		It("never prints the raw api key", func() {
			run("set", "embedding.api_key", "sk-abcdef123456")
			Expect(run("list")).NotTo(ContainSubstring("sk-abcdef"))
		})
	})
})
