package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jonwraymond/artifactcache/doccache"
)

// Row is the persisted form of a document's fingerprints.
type Row struct {
	ID              int64   `gorm:"primaryKey;autoIncrement:false"`
	Checksum        string  `gorm:"size:128;not null"`
	ArchiveChecksum *string `gorm:"size:128"`
	UpdatedAt       time.Time
}

// TableName implements gorm's tabler.
func (Row) TableName() string { return "documents" }

// Store looks documents up in the documents table.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: unknown ids return an error matching doccache.ErrDocumentNotFound.
type Store struct {
	db *gorm.DB
}

var _ doccache.EntityStore = (*Store)(nil)

// New wraps an open database.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the documents table.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&Row{}); err != nil {
		return fmt.Errorf("docstore: migrate: %w", err)
	}
	return nil
}

// GetDocument returns the current fingerprints of a document. An empty
// archive checksum is reported as no archived rendition.
func (s *Store) GetDocument(ctx context.Context, id int64) (doccache.Document, error) {
	var row Row
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return doccache.Document{}, fmt.Errorf("%w: %d", doccache.ErrDocumentNotFound, id)
	}
	if err != nil {
		return doccache.Document{}, fmt.Errorf("docstore: get document %d: %w", id, err)
	}
	return row.document(), nil
}

// PutDocument inserts or replaces a document's fingerprints.
func (s *Store) PutDocument(ctx context.Context, doc doccache.Document) error {
	row := Row{ID: doc.ID, Checksum: doc.Checksum, ArchiveChecksum: doc.ArchiveChecksum}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"checksum", "archive_checksum", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("docstore: put document %d: %w", doc.ID, err)
	}
	return nil
}

// DeleteDocument removes a document. Deleting an unknown id is not an error.
func (s *Store) DeleteDocument(ctx context.Context, id int64) error {
	if err := s.db.WithContext(ctx).Delete(&Row{}, id).Error; err != nil {
		return fmt.Errorf("docstore: delete document %d: %w", id, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("docstore: get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("docstore: get sql.DB: %w", err)
	}
	return sqlDB.Close()
}

func (r Row) document() doccache.Document {
	doc := doccache.Document{ID: r.ID, Checksum: r.Checksum}
	if r.ArchiveChecksum != nil && *r.ArchiveChecksum != "" {
		sum := *r.ArchiveChecksum
		doc.ArchiveChecksum = &sum
	}
	return doc
}
