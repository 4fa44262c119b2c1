package scanning

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/text/encoding/charmap"
)

type mockScanner struct {
	text        string
	err         error
	called      bool
	contentType string
}

func (m *mockScanner) ScanReceipt(imageData []byte, contentType string) (string, error) {
	m.called = true
	m.contentType = contentType
	return m.text, m.err
}

func (m *mockScanner) Close() error {
	return nil
}

const journal = "============ ФИСКАЛНИ РАЧУН ============\n103482850\nDELHAIZE SERBIA\n"

var _ = Describe("Loader", func() {
	var (
		scanner     *mockScanner
		loader      *Loader
		data        []byte
		contentType string
		text        string
		err         error
	)

	BeforeEach(func() {
		scanner = &mockScanner{text: journal}
		loader = NewLoader(scanner)
	})

	JustBeforeEach(func() {
		text, err = loader.Load(data, contentType)
	})

	When("loading plain UTF-8 text", func() {
		BeforeEach(func() {
			data = []byte(journal)
			contentType = "text/plain; charset=utf-8"
		})

		It("should return the text unchanged", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal(journal))
		})

		It("should not call the scanner", func() {
			Expect(scanner.called).To(BeFalse())
		})
	})

	When("loading Windows-1251 text", func() {
		BeforeEach(func() {
			encoded, encodeErr := charmap.Windows1251.NewEncoder().String(journal)
			Expect(encodeErr).NotTo(HaveOccurred())
			data = []byte(encoded)
		})

		Context("with the charset declared", func() {
			BeforeEach(func() {
				contentType = "text/plain; charset=windows-1251"
			})

			It("should decode it", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(text).To(Equal(journal))
			})
		})

		Context("without a charset", func() {
			BeforeEach(func() {
				contentType = "text/plain"
			})

			It("should detect it", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(text).To(Equal(journal))
			})
		})
	})

	When("loading a text file with a byte order mark", func() {
		BeforeEach(func() {
			data = append([]byte{0xEF, 0xBB, 0xBF}, []byte(journal)...)
			contentType = "text/plain"
		})

		It("should drop the mark", func() {
			Expect(text).To(Equal(journal))
		})
	})

	When("loading a saved verification page", func() {
		BeforeEach(func() {
			data = []byte("<html><body><h1>Рачун</h1><pre>" + journal + "</pre><pre>other</pre></body></html>")
			contentType = "text/html"
		})

		It("should return the first preformatted block", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal(journal))
		})
	})

	When("the page has no journal", func() {
		BeforeEach(func() {
			data = []byte("<html><body><p>nothing</p></body></html>")
			contentType = "text/html"
		})

		It("should return an error", func() {
			Expect(err).To(HaveOccurred())
		})
	})

	When("loading an image", func() {
		BeforeEach(func() {
			data = samplePNG()
			contentType = "image/png"
		})

		It("should transcribe it with the scanner", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(scanner.called).To(BeTrue())
			Expect(scanner.contentType).To(Equal("image/png"))
			Expect(text).To(Equal(journal))
		})

		Context("when the scanner fails", func() {
			BeforeEach(func() {
				scanner.err = errors.New("quota exceeded")
			})

			It("should return the error", func() {
				Expect(err).To(MatchError(ContainSubstring("quota exceeded")))
			})
		})

		Context("without a scanner", func() {
			BeforeEach(func() {
				loader = NewLoader(nil)
			})

			It("should return ErrOCRUnavailable", func() {
				Expect(err).To(MatchError(ErrOCRUnavailable))
			})
		})
	})

	When("the content type is unknown", func() {
		BeforeEach(func() {
			data = samplePNG()
			contentType = ""
		})

		It("should sniff it", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(scanner.called).To(BeTrue())
		})
	})

	When("the content type is not supported", func() {
		BeforeEach(func() {
			data = []byte("{}")
			contentType = "application/json"
		})

		It("should return ErrUnsupportedContentType", func() {
			Expect(errors.Is(err, ErrUnsupportedContentType)).To(BeTrue())
		})
	})
})
