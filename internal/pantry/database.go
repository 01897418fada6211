package pantry

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const productBucket = "products"

// ErrProductNotFound is returned when a product id has no record.
var ErrProductNotFound = errors.New("product not found")

// DB defines the interface for record store operations
type DB interface {
	// SaveProduct appends a committed product record
	SaveProduct(product *Product) error

	// GetProduct retrieves a product by ID
	GetProduct(id string) (*Product, error)

	// ListProducts returns all committed products
	ListProducts() ([]*Product, error)

	// DeleteProduct removes a product. Deleting a missing id is a no-op.
	DeleteProduct(id string) error

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(productBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveProduct appends a product record to the database
func (b *BoltDB) SaveProduct(product *Product) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(productBucket))
		data, err := json.Marshal(product)
		if err != nil {
			return fmt.Errorf("marshaling product: %w", err)
		}
		return bucket.Put([]byte(product.ID), data)
	})
}

// GetProduct retrieves a product by ID
func (b *BoltDB) GetProduct(id string) (*Product, error) {
	var product *Product
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(productBucket))
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrProductNotFound, id)
		}
		return json.Unmarshal(data, &product)
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// ListProducts returns all committed products
func (b *BoltDB) ListProducts() ([]*Product, error) {
	products := make([]*Product, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(productBucket))
		return bucket.ForEach(func(k, v []byte) error {
			var product Product
			if err := json.Unmarshal(v, &product); err != nil {
				return fmt.Errorf("unmarshaling product: %w", err)
			}
			products = append(products, &product)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}

// DeleteProduct removes a product from the database. Missing ids are
// not an error.
func (b *BoltDB) DeleteProduct(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(productBucket))
		return bucket.Delete([]byte(id))
	})
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
