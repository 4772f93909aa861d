package fetcher_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jonmartinstorm/commitsnusern/internal/fetcher"
)

var _ = Describe("Link-header", func() {
	const header = `<https://api.github.com/search/commits?page=2>; rel="next", ` +
		`<https://api.github.com/search/commits?page=10>; rel="last"`

	It("finner next blant flere relasjoner", func() {
		Expect(fetcher.NextLink(header)).To(Equal("https://api.github.com/search/commits?page=2"))
		Expect(fetcher.HasNextPage(header)).To(BeTrue())
		Expect(fetcher.ParseLinks(header)).To(HaveKeyWithValue("last", "https://api.github.com/search/commits?page=10"))
	})

	It("gir ingen neste side på siste side", func() {
		last := `<https://api.github.com/search/commits?page=1>; rel="first", <https://api.github.com/search/commits?page=9>; rel="prev"`
		Expect(fetcher.HasNextPage(last)).To(BeFalse())
	})

	It("tåler tom og ødelagt header", func() {
		Expect(fetcher.HasNextPage("")).To(BeFalse())
		Expect(fetcher.ParseLinks("tull")).To(BeEmpty())
	})
})
