package pantry

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Product", func() {
	var now time.Time

	BeforeEach(func() {
		now = time.Date(2025, 6, 10, 15, 30, 0, 0, time.UTC)
	})

	Describe("Status", func() {
		It("reports an expired product", func() {
			p := &Product{ExpiryDate: "2025-06-07"}
			status, days := p.Status(now)
			Expect(status).To(Equal(StatusExpired))
			Expect(days).To(Equal(-3))
		})

		It("reports a product expiring today as expiring soon", func() {
			p := &Product{ExpiryDate: "2025-06-10"}
			status, days := p.Status(now)
			Expect(status).To(Equal(StatusExpiringSoon))
			Expect(days).To(BeZero())
		})

		It("reports a product expiring within three days as expiring soon", func() {
			p := &Product{ExpiryDate: "2025-06-13"}
			status, _ := p.Status(now)
			Expect(status).To(Equal(StatusExpiringSoon))
		})

		It("reports a product with a comfortable margin as ok", func() {
			p := &Product{ExpiryDate: "2025-06-14"}
			status, days := p.Status(now)
			Expect(status).To(Equal(StatusOK))
			Expect(days).To(Equal(4))
		})

		It("reports an unparseable date as invalid", func() {
			p := &Product{ExpiryDate: "caduca pronto"}
			status, _ := p.Status(now)
			Expect(status).To(Equal(StatusInvalid))
		})
	})

	Describe("SortByExpiry", func() {
		It("orders soonest expiry first", func() {
			products := []*Product{
				{ID: "late", ExpiryDate: "2026-01-01"},
				{ID: "soon", ExpiryDate: "2025-06-11"},
				{ID: "mid", ExpiryDate: "2025-08-01"},
			}
			SortByExpiry(products)
			Expect(products[0].ID).To(Equal("soon"))
			Expect(products[1].ID).To(Equal("mid"))
			Expect(products[2].ID).To(Equal("late"))
		})

		It("sorts invalid dates after all valid dates", func() {
			products := []*Product{
				{ID: "bad", ExpiryDate: "31/12/2025"},
				{ID: "good", ExpiryDate: "2027-01-01"},
			}
			SortByExpiry(products)
			Expect(products[0].ID).To(Equal("good"))
			Expect(products[1].ID).To(Equal("bad"))
		})

		It("keeps invalid dates equal-ranked in their original order", func() {
			products := []*Product{
				{ID: "bad-1", ExpiryDate: "???"},
				{ID: "bad-2", ExpiryDate: ""},
				{ID: "good", ExpiryDate: "2025-07-01"},
				{ID: "bad-3", ExpiryDate: "soon"},
			}
			SortByExpiry(products)
			Expect(products[0].ID).To(Equal("good"))
			Expect(products[1].ID).To(Equal("bad-1"))
			Expect(products[2].ID).To(Equal("bad-2"))
			Expect(products[3].ID).To(Equal("bad-3"))
		})
	})

	Describe("PlaceholderName", func() {
		It("embeds the barcode", func() {
			Expect(PlaceholderName("7501234567890")).To(Equal("Product [7501234567890]"))
		})
	})
})
