package pantry

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// IDGenerator generates unique IDs for committed records
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates random UUIDs
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles the record lifecycle: commit, listing, deletion and
// snapshot retrieval.
type Service struct {
	db          DB
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, storage Storage) *Service {
	return &Service{
		db:          db,
		storage:     storage,
		idGenerator: &defaultIDGenerator{},
		timeSource:  &defaultTimeSource{},
	}
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// snapshotExt picks a file extension for a stored capture frame.
func snapshotExt(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/heic", "image/heif":
		return ".heic"
	case "application/pdf":
		return ".pdf"
	default:
		return ".png"
	}
}

// snapshotContentType is the inverse of snapshotExt for serving stored
// frames back out.
func snapshotContentType(filename string) string {
	switch filepath.Ext(filename) {
	case ".jpg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".heic":
		return "image/heic"
	case ".pdf":
		return "application/pdf"
	default:
		return "image/png"
	}
}

// Commit synthesizes a record from a confirmed candidate and a resolved
// expiry date, and appends it to the store. The candidate must carry a
// name and the date must be present; a record is never written
// partially.
func (s *Service) Commit(candidate *Product, expiryDate string, frame *Frame) (*Product, error) {
	if candidate == nil || candidate.Name == "" {
		return nil, fmt.Errorf("commit requires a named candidate")
	}
	if expiryDate == "" {
		return nil, fmt.Errorf("commit requires an expiry date")
	}

	product := *candidate
	product.ID = s.idGenerator.Generate()
	product.ExpiryDate = expiryDate
	product.ScanTimestamp = s.timeSource.Now()

	// Persist the capture frame alongside the record, best effort: a
	// record without a snapshot is still a valid record.
	if frame != nil {
		filename := product.ID + snapshotExt(frame.ContentType)
		saved, err := s.storage.Save(filename, frame.Data)
		if err != nil {
			slog.Warn("Failed to store capture snapshot", "id", product.ID, "error", err)
		} else {
			product.SnapshotFile = saved
		}
	}

	if err := s.db.SaveProduct(&product); err != nil {
		// Clean up the snapshot if the record itself did not land.
		if product.SnapshotFile != "" {
			s.storage.Delete(product.SnapshotFile)
		}
		return nil, fmt.Errorf("saving product: %w", err)
	}

	return &product, nil
}

// GetProduct retrieves a committed product by ID
func (s *Service) GetProduct(id string) (*Product, error) {
	product, err := s.db.GetProduct(id)
	if err != nil {
		return nil, fmt.Errorf("getting product: %w", err)
	}
	return product, nil
}

// ListProducts returns all committed products ordered soonest-expiring
// first, with invalid expiry dates after all valid ones.
func (s *Service) ListProducts() ([]*Product, error) {
	products, err := s.db.ListProducts()
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	SortByExpiry(products)
	return products, nil
}

// DeleteProduct removes a product and its stored snapshot. Deleting an
// id that does not exist is a no-op.
func (s *Service) DeleteProduct(id string) error {
	product, err := s.db.GetProduct(id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil
		}
		return fmt.Errorf("getting product for deletion: %w", err)
	}

	if product.SnapshotFile != "" {
		if err := s.storage.Delete(product.SnapshotFile); err != nil {
			slog.Warn("Failed to delete snapshot", "filename", product.SnapshotFile, "error", err)
		}
	}

	if err := s.db.DeleteProduct(id); err != nil {
		return fmt.Errorf("deleting product: %w", err)
	}
	return nil
}

// GetProductSnapshot retrieves the stored capture frame for a product.
func (s *Service) GetProductSnapshot(id string) ([]byte, string, error) {
	product, err := s.db.GetProduct(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting product: %w", err)
	}
	if product.SnapshotFile == "" {
		return nil, "", fmt.Errorf("product %s has no stored snapshot", id)
	}

	data, err := s.storage.Get(product.SnapshotFile)
	if err != nil {
		return nil, "", fmt.Errorf("getting snapshot: %w", err)
	}

	return data, snapshotContentType(product.SnapshotFile), nil
}
