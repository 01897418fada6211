package pantry

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BoltDB", func() {
	var (
		tmpDir string
		dbPath string
		db     *BoltDB
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tmpDir, "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	newProduct := func(id string) *Product {
		return &Product{
			ID:            id,
			Name:          "Organic Milk",
			ExpiryDate:    "2025-12-31",
			ScanTimestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
			Barcode:       "7501234567890",
			Brand:         "Hacendado",
		}
	}

	Describe("SaveProduct", func() {
		var (
			product *Product
			err     error
		)

		BeforeEach(func() {
			product = newProduct("test-id")
		})

		JustBeforeEach(func() {
			err = db.SaveProduct(product)
		})

		When("saving succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should persist the full record", func() {
				saved, getErr := db.GetProduct("test-id")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(saved.Name).To(Equal("Organic Milk"))
				Expect(saved.ExpiryDate).To(Equal("2025-12-31"))
				Expect(saved.Barcode).To(Equal("7501234567890"))
				Expect(saved.ScanTimestamp).To(BeTemporally("==", product.ScanTimestamp))
			})
		})
	})

	Describe("GetProduct", func() {
		var (
			product *Product
			err     error
		)

		JustBeforeEach(func() {
			product, err = db.GetProduct("test-id")
		})

		When("the product exists", func() {
			BeforeEach(func() {
				Expect(db.SaveProduct(newProduct("test-id"))).To(Succeed())
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return the product", func() {
				Expect(product.ID).To(Equal("test-id"))
			})
		})

		When("the product does not exist", func() {
			It("returns ErrProductNotFound", func() {
				Expect(err).To(MatchError(ErrProductNotFound))
			})
		})
	})

	Describe("ListProducts", func() {
		var (
			products []*Product
			err      error
		)

		JustBeforeEach(func() {
			products, err = db.ListProducts()
		})

		When("the store is empty", func() {
			It("returns an empty slice", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(products).To(BeEmpty())
			})
		})

		When("records have been committed", func() {
			BeforeEach(func() {
				Expect(db.SaveProduct(newProduct("id-1"))).To(Succeed())
				Expect(db.SaveProduct(newProduct("id-2"))).To(Succeed())
			})

			It("returns all of them", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(products).To(HaveLen(2))
			})
		})
	})

	Describe("DeleteProduct", func() {
		var err error

		JustBeforeEach(func() {
			err = db.DeleteProduct("test-id")
		})

		When("the product exists", func() {
			BeforeEach(func() {
				Expect(db.SaveProduct(newProduct("test-id"))).To(Succeed())
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should remove the record", func() {
				_, getErr := db.GetProduct("test-id")
				Expect(getErr).To(MatchError(ErrProductNotFound))
			})
		})

		When("the product does not exist", func() {
			It("is a no-op, not an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("leaves the store unchanged", func() {
				products, listErr := db.ListProducts()
				Expect(listErr).NotTo(HaveOccurred())
				Expect(products).To(BeEmpty())
			})
		})
	})

	Describe("persistence across reopen", func() {
		It("keeps committed records", func() {
			Expect(db.SaveProduct(newProduct("keep-me"))).To(Succeed())
			Expect(db.Close()).To(Succeed())

			reopened, err := NewBoltDB(dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer reopened.Close()

			product, err := reopened.GetProduct("keep-me")
			Expect(err).NotTo(HaveOccurred())
			Expect(product.Name).To(Equal("Organic Milk"))
		})
	})
})
