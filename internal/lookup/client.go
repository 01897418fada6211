// Package lookup resolves barcodes to product metadata using the
// OpenFoodFacts public API.
package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrNotFound is returned when the database has no product for a
// barcode. It is distinct from transport failures, which the workflow
// treats as fatal to the scan in progress.
var ErrNotFound = errors.New("product not found")

// Product is the metadata OpenFoodFacts returns for a barcode.
type Product struct {
	Name        string
	ImageURL    string
	Brand       string
	Quantity    string
	Categories  string
	NutriScore  string
	EcoScore    string
	Ingredients string
	Country     string
	URL         string
}

// Resolver resolves a barcode to product metadata.
type Resolver interface {
	Resolve(ctx context.Context, barcode string) (*Product, error)
}

// Client is an OpenFoodFacts API client.
type Client struct {
	baseURL string
	client  *http.Client
}

// DefaultBaseURL is the public OpenFoodFacts endpoint.
const DefaultBaseURL = "https://world.openfoodfacts.org"

// NewClient creates a Client. An empty baseURL uses the public API.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// offResponse mirrors the v2 product endpoint. status is 1 when the
// product exists.
type offResponse struct {
	Status  int `json:"status"`
	Product struct {
		ProductName     string `json:"product_name"`
		ImageFrontURL   string `json:"image_front_url"`
		Brands          string `json:"brands"`
		Quantity        string `json:"quantity"`
		Categories      string `json:"categories"`
		NutriscoreGrade string `json:"nutriscore_grade"`
		EcoscoreGrade   string `json:"ecoscore_grade"`
		IngredientsText string `json:"ingredients_text"`
		Countries       string `json:"countries"`
	} `json:"product"`
}

// Resolve fetches product metadata for a barcode. It returns
// ErrNotFound when the product is not in the database; any other error
// is a transport failure.
func (c *Client) Resolve(ctx context.Context, barcode string) (*Product, error) {
	url := fmt.Sprintf("%s/api/v2/product/%s.json", c.baseURL, barcode)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling openfoodfacts: %w", err)
	}
	defer resp.Body.Close()

	// The API answers 404 for unknown barcodes as well as status=0
	// bodies, depending on the endpoint version.
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, barcode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openfoodfacts error (status %d)", resp.StatusCode)
	}

	var body offResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if body.Status != 1 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, barcode)
	}

	p := &Product{
		Name:        body.Product.ProductName,
		ImageURL:    body.Product.ImageFrontURL,
		Brand:       body.Product.Brands,
		Quantity:    body.Product.Quantity,
		Categories:  body.Product.Categories,
		NutriScore:  body.Product.NutriscoreGrade,
		EcoScore:    body.Product.EcoscoreGrade,
		Ingredients: body.Product.IngredientsText,
		Country:     body.Product.Countries,
		URL:         fmt.Sprintf("%s/product/%s", c.baseURL, barcode),
	}
	return p, nil
}
