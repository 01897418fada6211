package pantry

import (
	"fmt"
	"sort"
	"time"
)

// Product represents a committed scan record
type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	ExpiryDate    string    `json:"expiry_date"` // YYYY-MM-DD; may be invalid if recognition was unreliable
	ScanTimestamp time.Time `json:"scan_timestamp"`
	Barcode       string    `json:"barcode,omitempty"`
	ImageURL      string    `json:"image_url,omitempty"`
	Brand         string    `json:"brand,omitempty"`
	Quantity      string    `json:"quantity,omitempty"`
	Categories    string    `json:"categories,omitempty"`
	NutriScore    string    `json:"nutri_score,omitempty"`
	EcoScore      string    `json:"eco_score,omitempty"`
	Ingredients   string    `json:"ingredients,omitempty"`
	Country       string    `json:"country,omitempty"`
	URL           string    `json:"url,omitempty"`
	SnapshotFile  string    `json:"snapshot_file,omitempty"` // Stored capture frame, if any
}

// Expiry status values reported to clients.
const (
	StatusInvalid      = "invalid"
	StatusExpired      = "expired"
	StatusExpiringSoon = "expiring-soon"
	StatusOK           = "ok"
)

// expiringSoonDays is the window within which a product counts as expiring soon.
const expiringSoonDays = 3

// PlaceholderName returns the display name used when metadata lookup
// finds nothing for a barcode.
func PlaceholderName(barcode string) string {
	return fmt.Sprintf("Product [%s]", barcode)
}

// ParseExpiry parses the product's expiry date. The bool reports whether
// the stored text is a valid calendar date.
func (p *Product) ParseExpiry() (time.Time, bool) {
	t, err := time.Parse("2006-01-02", p.ExpiryDate)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Status classifies the product's freshness relative to now.
// It returns the status and the number of whole days until expiry
// (negative if already expired, zero for invalid dates).
func (p *Product) Status(now time.Time) (string, int) {
	expiry, ok := p.ParseExpiry()
	if !ok {
		return StatusInvalid, 0
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	expiry = time.Date(expiry.Year(), expiry.Month(), expiry.Day(), 0, 0, 0, 0, now.Location())
	days := int(expiry.Sub(today).Hours() / 24)

	switch {
	case days < 0:
		return StatusExpired, days
	case days <= expiringSoonDays:
		return StatusExpiringSoon, days
	default:
		return StatusOK, days
	}
}

// SortByExpiry orders products soonest-expiring first. Products with
// invalid expiry dates sort after all valid ones and are equal-ranked
// among themselves (stable).
func SortByExpiry(products []*Product) {
	sort.SliceStable(products, func(i, j int) bool {
		a, aOK := products[i].ParseExpiry()
		b, bOK := products[j].ParseExpiry()
		if aOK != bOK {
			return aOK
		}
		if !aOK {
			return false
		}
		return a.Before(b)
	})
}
