package scanning

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// expiryResponse is the JSON shape requested from the vision model.
// The field is a pointer so an explicit null survives unmarshaling.
type expiryResponse struct {
	ExpiryDate *string `json:"expiry_date"`
}

// parseExpiryJSON parses a vision-model response into a normalized
// expiry date. An empty result means the model found no date, or found
// one that cannot be normalized; both are "none" to the caller.
func parseExpiryJSON(text string) (string, error) {
	text = strings.TrimSpace(text)

	// Remove markdown code blocks if present
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	// Find the JSON object boundaries - look for first { and last }
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return "", fmt.Errorf("no JSON object found in response")
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return "", fmt.Errorf("invalid JSON object in response")
	}

	text = text[startIdx : endIdx+1]

	var resp expiryResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return "", fmt.Errorf("unmarshaling json: %w", err)
	}

	if resp.ExpiryDate == nil {
		return "", nil
	}

	return NormalizeDate(*resp.ExpiryDate), nil
}

// dateFormats are the layouts accepted from recognition output, tried
// in order. Day-first layouts come before month-first because product
// labels overwhelmingly print DD/MM.
var dateFormats = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
	"01/02/2006",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"02/01/06",
	"02.01.06",
}

// monthFormats are layouts carrying only a month and year.
var monthFormats = []string{
	"2006-01",
	"01/2006",
	"01-2006",
	"01.2006",
	"Jan 2006",
	"January 2006",
}

// NormalizeDate turns a recognized date string into YYYY-MM-DD form.
// Month-only dates normalize to the last day of the month, since an
// expiry window extends through its printed month. Text that matches no
// known layout returns ""; callers treat that as "no date found".
func NormalizeDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	for _, format := range dateFormats {
		if d, err := time.Parse(format, raw); err == nil {
			return d.Format("2006-01-02")
		}
	}

	for _, format := range monthFormats {
		if d, err := time.Parse(format, raw); err == nil {
			// Last day of the printed month.
			end := d.AddDate(0, 1, -1)
			return end.Format("2006-01-02")
		}
	}

	return ""
}
