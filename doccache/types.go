package doccache

import (
	"context"
	"errors"
	"reflect"
)

// Sentinel errors.
var (
	// ErrDocumentNotFound is returned by an EntityStore for unknown ids.
	ErrDocumentNotFound = errors.New("doccache: document not found")

	ErrNilEntityStore = errors.New("doccache: entity store is nil")
	ErrNilEpoch       = errors.New("doccache: epoch is nil")
	ErrNilClassifier  = errors.New("doccache: classifier is nil")
	ErrCorruptPayload = errors.New("doccache: corrupt payload")
)

// Document is the fingerprint view of a stored document.
type Document struct {
	ID int64 `json:"id"`

	// Checksum fingerprints the original file.
	Checksum string `json:"checksum"`

	// ArchiveChecksum fingerprints the archived rendition; nil when the
	// document has none.
	ArchiveChecksum *string `json:"archive_checksum,omitempty"`
}

// HasArchiveVersion reports whether the document has an archived rendition.
func (d Document) HasArchiveVersion() bool {
	return d.ArchiveChecksum != nil
}

// EntityStore looks up documents by id.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: unknown ids must return an error matching ErrDocumentNotFound.
type EntityStore interface {
	GetDocument(ctx context.Context, id int64) (Document, error)
}

// Classifier is the tool producing suggestions.
type Classifier interface {
	// FormatVersion identifies the classifier's schema and algorithm.
	FormatVersion() int

	// StateHash fingerprints the classifier's trained state.
	StateHash() []byte
}

// noClassifier reports whether tool is absent, including a typed nil
// pointer held in the interface.
func noClassifier(tool Classifier) bool {
	if tool == nil {
		return true
	}
	v := reflect.ValueOf(tool)
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// MetadataRecord is one extracted metadata item.
type MetadataRecord struct {
	Namespace string `json:"namespace"`
	Prefix    string `json:"prefix"`
	Key       string `json:"key"`
	Value     string `json:"value"`
}

// CachedMetadata is a metadata snapshot together with the checksums it was
// extracted from. ArchiveMetadata is non-nil exactly when ArchiveChecksum is.
type CachedMetadata struct {
	OriginalChecksum string           `json:"original_checksum"`
	OriginalMetadata []MetadataRecord `json:"original_metadata"`
	ArchiveChecksum  *string          `json:"archive_checksum"`
	ArchiveMetadata  []MetadataRecord `json:"archive_metadata"`
}

// consistent checks the both-or-neither archive invariant.
func (c *CachedMetadata) consistent() bool {
	return (c.ArchiveChecksum == nil) == (c.ArchiveMetadata == nil)
}

// staleReason returns why the snapshot no longer describes doc, or "" when
// it is still valid. Gaining or losing an archived rendition is stale.
func (c *CachedMetadata) staleReason(doc Document) string {
	if c.OriginalChecksum != doc.Checksum {
		return reasonChecksumChanged
	}
	if doc.HasArchiveVersion() {
		if c.ArchiveChecksum == nil || *c.ArchiveChecksum != *doc.ArchiveChecksum {
			return reasonArchiveChanged
		}
	} else if c.ArchiveChecksum != nil {
		return reasonArchiveChanged
	}
	return ""
}

// Suggestions maps a suggestion category (tags, correspondents, dates, ...)
// to the suggested values.
type Suggestions map[string][]string

// CachedSuggestions is a suggestion set together with the classifier epoch
// that produced it.
type CachedSuggestions struct {
	ToolFormatVersion int         `json:"classifier_version"`
	ToolStateHash     string      `json:"classifier_hash"`
	Suggestions       Suggestions `json:"suggestions"`
}

// Invalidation reasons.
const (
	reasonChecksumChanged = "checksum_changed"
	reasonArchiveChanged  = "archive_changed"
	reasonDocumentMissing = "document_missing"
	reasonLookupFailed    = "lookup_failed"
	reasonCorrupt         = "corrupt"
	reasonInvariant       = "invariant_violation"
	reasonEpochMissing    = "epoch_missing"
	reasonVersionChanged  = "version_changed"
	reasonStateChanged    = "state_changed"
)
