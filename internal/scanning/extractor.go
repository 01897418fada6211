// Package scanning provides the image capabilities of the scan
// workflow: decoding barcodes from camera frames and reading printed
// expiry dates off product labels with a vision model.
package scanning

// Extractor reads a printed expiry date from a label photo. A
// successful read returns the date normalized to YYYY-MM-DD; an empty
// string means no date was found. Backends are expected to be
// unreliable; the workflow retries them a bounded number of times.
type Extractor interface {
	// ExtractExpiryDate analyzes a label image and returns the
	// normalized expiry date, or "" if none was recognized.
	ExtractExpiryDate(imageData []byte, contentType string) (string, error)
	// Close closes the extractor and releases resources
	Close() error
}

// expiryScanPrompt is the shared prompt used by all vision backends for
// reading expiry dates.
const expiryScanPrompt = `You are analyzing a photo of a packaged product label. Your task is to find ONLY the expiration date printed on the packaging.

Expiration dates appear in many formats, for example: DD/MM/YYYY, MM/DD/YYYY, YYYY-MM-DD, DD.MM.YY, MM/YYYY, or written out ("best before 12 Mar 2026"). They are often near phrases like "EXP", "Best before", "Use by", "Consumir antes de", or "Fecha de caducidad".

Return ONLY valid JSON in this exact format:
{
  "expiry_date": "YYYY-MM-DD"
}

Important:
- Standardize the date to ISO 8601 format (YYYY-MM-DD)
- If only a month and year are printed, return them as "YYYY-MM"
- If you cannot find an expiration date, use null for the field
- Ignore lot numbers, manufacture dates and prices
- Do not include any text before or after the JSON
- Do not use markdown code blocks`
