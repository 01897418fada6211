package pantry

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalStorage", func() {
	var (
		tmpDir  string
		storage Storage
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		var err error
		storage, err = NewLocalStorage(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Save", func() {
		var (
			filename  string
			data      []byte
			savedPath string
			err       error
		)

		BeforeEach(func() {
			filename = "record-1.jpg"
			data = []byte("capture frame")
		})

		JustBeforeEach(func() {
			savedPath, err = storage.Save(filename, data)
		})

		When("saving succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return the stored name", func() {
				Expect(savedPath).To(Equal(filename))
			})

			It("should write the snapshot to disk", func() {
				Expect(filepath.Join(tmpDir, filename)).To(BeAnExistingFile())
			})
		})
	})

	Describe("Get", func() {
		var (
			filename string
			data     []byte
			err      error
		)

		JustBeforeEach(func() {
			data, err = storage.Get(filename)
		})

		When("the snapshot exists", func() {
			BeforeEach(func() {
				filename = "record-1.jpg"
				_, saveErr := storage.Save(filename, []byte("capture frame"))
				Expect(saveErr).NotTo(HaveOccurred())
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return the snapshot data", func() {
				Expect(string(data)).To(Equal("capture frame"))
			})
		})

		When("the snapshot does not exist", func() {
			BeforeEach(func() {
				filename = "nonexistent.jpg"
			})

			It("returns the error", func() {
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("reading snapshot"))
			})
		})
	})

	Describe("Delete", func() {
		var (
			filename string
			err      error
		)

		JustBeforeEach(func() {
			err = storage.Delete(filename)
		})

		When("the snapshot exists", func() {
			BeforeEach(func() {
				filename = "record-1.jpg"
				_, saveErr := storage.Save(filename, []byte("capture frame"))
				Expect(saveErr).NotTo(HaveOccurred())
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should remove the snapshot from disk", func() {
				Expect(filepath.Join(tmpDir, filename)).NotTo(BeAnExistingFile())
			})
		})

		When("the snapshot does not exist", func() {
			BeforeEach(func() {
				filename = "nonexistent.jpg"
			})

			It("is a no-op, not an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})
		})
	})

	Describe("NewLocalStorage", func() {
		It("creates the directory when missing", func() {
			path := filepath.Join(GinkgoT().TempDir(), "snapshots")
			s, err := NewLocalStorage(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(BeADirectory())
			_, saveErr := s.Save("record-1.png", []byte("data"))
			Expect(saveErr).NotTo(HaveOccurred())
		})
	})
})
