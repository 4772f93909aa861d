package csvwriter_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jonmartinstorm/commitsnusern/internal/csvwriter"
	"github.com/jonmartinstorm/commitsnusern/internal/models"
)

var _ = Describe("ReadFile", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("leser tilbake det WriteFile skrev", func() {
		path := filepath.Join(dir, "ut.csv")
		recs := []models.CommitRecord{
			{Repo: "org/x", SHA: "a1", ParentSHA: "a0", Author: "octocat"},
			{Repo: "org/y", SHA: "b2", Author: "Navn, med komma"},
		}
		Expect(csvwriter.WriteFile(path, recs)).To(Succeed())

		got, err := csvwriter.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(recs))
	})

	It("gir tom liste for fil med bare header", func() {
		path := filepath.Join(dir, "tom.csv")
		Expect(csvwriter.WriteFile(path, nil)).To(Succeed())

		got, err := csvwriter.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(BeEmpty())
	})

	It("avviser fremmed header", func() {
		path := filepath.Join(dir, "feil.csv")
		Expect(os.WriteFile(path, []byte("a,b,c,d\n1,2,3,4\n"), 0o644)).To(Succeed())

		_, err := csvwriter.ReadFile(path)
		Expect(err).To(MatchError(csvwriter.ErrUnexpectedHeader))
	})

	It("avviser rader med feil antall felt", func() {
		path := filepath.Join(dir, "kort.csv")
		Expect(os.WriteFile(path, []byte("repo,sha,parent_sha,author\norg/x,a1\n"), 0o644)).To(Succeed())

		_, err := csvwriter.ReadFile(path)
		Expect(err).To(HaveOccurred())
	})

	It("feiler når filen mangler", func() {
		_, err := csvwriter.ReadFile(filepath.Join(dir, "finnes-ikke.csv"))
		Expect(err).To(MatchError(os.ErrNotExist))
	})
})
