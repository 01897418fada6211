package pantry

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Cooldown", func() {
	var (
		cooldown *Cooldown
		start    time.Time
	)

	BeforeEach(func() {
		cooldown = NewCooldown(5 * time.Second)
		start = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	})

	It("triggers for a barcode it has never seen", func() {
		Expect(cooldown.ShouldTrigger("7501234567890", start)).To(BeTrue())
	})

	It("suppresses the same barcode inside the window", func() {
		Expect(cooldown.ShouldTrigger("7501234567890", start)).To(BeTrue())
		Expect(cooldown.ShouldTrigger("7501234567890", start.Add(time.Millisecond))).To(BeFalse())
		Expect(cooldown.ShouldTrigger("7501234567890", start.Add(4999*time.Millisecond))).To(BeFalse())
	})

	It("triggers again exactly at the window boundary", func() {
		Expect(cooldown.ShouldTrigger("7501234567890", start)).To(BeTrue())
		Expect(cooldown.ShouldTrigger("7501234567890", start.Add(5*time.Second))).To(BeTrue())
	})

	It("tracks barcodes independently", func() {
		Expect(cooldown.ShouldTrigger("7501234567890", start)).To(BeTrue())
		Expect(cooldown.ShouldTrigger("4006381333931", start)).To(BeTrue())
		Expect(cooldown.ShouldTrigger("7501234567890", start.Add(time.Second))).To(BeFalse())
		Expect(cooldown.ShouldTrigger("4006381333931", start.Add(time.Second))).To(BeFalse())
	})

	It("does not refresh the window on suppressed detections", func() {
		Expect(cooldown.ShouldTrigger("7501234567890", start)).To(BeTrue())
		// Suppressed detection near the end of the window must not
		// push the next accepted trigger further out.
		Expect(cooldown.ShouldTrigger("7501234567890", start.Add(4900*time.Millisecond))).To(BeFalse())
		Expect(cooldown.ShouldTrigger("7501234567890", start.Add(5100*time.Millisecond))).To(BeTrue())
	})

	It("keeps one entry per barcode", func() {
		cooldown.ShouldTrigger("a", start)
		cooldown.ShouldTrigger("a", start.Add(10*time.Second))
		cooldown.ShouldTrigger("b", start)
		Expect(cooldown.Len()).To(Equal(2))
	})

	It("falls back to the default window when given zero", func() {
		c := NewCooldown(0)
		Expect(c.ShouldTrigger("a", start)).To(BeTrue())
		Expect(c.ShouldTrigger("a", start.Add(4*time.Second))).To(BeFalse())
		Expect(c.ShouldTrigger("a", start.Add(5*time.Second))).To(BeTrue())
	})
})
