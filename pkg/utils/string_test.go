package utils

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Truncate", func() {
	It("returns the string unchanged when within the limit", func() {
		Expect(Truncate("short", 10)).To(Equal("short"))
	})

	It("returns the string unchanged when exactly at the limit", func() {
		Expect(Truncate("12345", 5)).To(Equal("12345"))
	})

	It("truncates with ellipsis when over the limit", func() {
		Expect(Truncate("this is a long string", 10)).To(Equal("this is a ..."))
	})
})

var _ = Describe("TruncateRunes", func() {
	It("counts runes rather than bytes", func() {
		Expect(TruncateRunes("héllo wörld", 4)).To(Equal("héll"))
	})

	It("keeps the prefix", func() {
		Expect(TruncateRunes("abcdef", 3)).To(Equal("abc"))
	})

	It("ignores non-positive limits", func() {
		Expect(TruncateRunes("abc", 0)).To(Equal("abc"))
	})
})

var _ = Describe("UserAgent", func() {
	It("names nook and the short commit", func() {
		Expect(UserAgent()).To(Equal("nook/" + Version + " (" + ShortSha() + ")"))
	})

	It("keeps at most seven characters of the sha", func() {
		orig := Sha
		DeferCleanup(func() { Sha = orig })

		Sha = "0123456789abcdef"
		Expect(ShortSha()).To(Equal("0123456"))
	})
})
