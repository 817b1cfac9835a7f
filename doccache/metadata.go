package doccache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/artifactcache/observe"
)

// WriteMetadata stores the metadata extracted from doc, recording the
// document's current checksums. archive is only kept when doc has an
// archived rendition. Nil slices are stored as empty ones, so a later read
// returns []MetadataRecord{} where nil was written. A non-positive ttl
// selects the policy default.
func (m *Manager) WriteMetadata(ctx context.Context, doc Document, original, archive []MetadataRecord, ttl time.Duration) error {
	key := MetadataKey(doc.ID)
	return m.inst.Track(ctx, observe.OpMeta{Kind: KindMetadata, Op: "write", Key: key}, func(ctx context.Context) (observe.Outcome, error) {
		if !doc.HasArchiveVersion() && archive != nil {
			m.inst.Logger().Warn(ctx, "dropping archive metadata for document without archive version",
				observe.Field{Key: "document_id", Value: doc.ID},
			)
		}
		entry := NewCachedMetadata(doc, original, archive)
		return m.write(ctx, KindMetadata, key, &entry, m.metadataPolicy.EffectiveTTL(ttl))
	})
}

// NewCachedMetadata builds the snapshot WriteMetadata stores for doc,
// with the same nil-to-empty normalization.
func NewCachedMetadata(doc Document, original, archive []MetadataRecord) CachedMetadata {
	entry := CachedMetadata{
		OriginalChecksum: doc.Checksum,
		OriginalMetadata: original,
	}
	if entry.OriginalMetadata == nil {
		entry.OriginalMetadata = []MetadataRecord{}
	}
	if doc.HasArchiveVersion() {
		sum := *doc.ArchiveChecksum
		entry.ArchiveChecksum = &sum
		entry.ArchiveMetadata = archive
		if entry.ArchiveMetadata == nil {
			entry.ArchiveMetadata = []MetadataRecord{}
		}
	}
	return entry
}

// ReadMetadata returns the cached metadata for a document if it still
// matches the document's current checksums. A valid hit extends the entry's
// TTL to the policy default. A stale, undecodable or orphaned entry is
// deleted and reported as a miss.
func (m *Manager) ReadMetadata(ctx context.Context, id int64) (*CachedMetadata, bool, error) {
	key := MetadataKey(id)
	var out *CachedMetadata

	err := m.inst.Track(ctx, observe.OpMeta{Kind: KindMetadata, Op: "read", Key: key}, func(ctx context.Context) (observe.Outcome, error) {
		raw, ok, err := m.store.Get(ctx, key)
		if err != nil {
			return observe.OutcomeError, fmt.Errorf("doccache: read metadata %d: %w", id, err)
		}
		if !ok {
			return observe.OutcomeMiss, nil
		}

		var entry CachedMetadata
		if err := m.codec.Unmarshal(raw, &entry); err != nil {
			return m.evict(ctx, KindMetadata, key, reasonCorrupt, err)
		}
		if !entry.consistent() {
			return m.evict(ctx, KindMetadata, key, reasonInvariant,
				errors.New("archive checksum and archive metadata disagree"))
		}

		doc, err := m.entities.GetDocument(ctx, id)
		if err != nil {
			reason := reasonLookupFailed
			if errors.Is(err, ErrDocumentNotFound) {
				reason = reasonDocumentMissing
			}
			return m.evict(ctx, KindMetadata, key, reason, err)
		}
		if reason := entry.staleReason(doc); reason != "" {
			return m.evict(ctx, KindMetadata, key, reason, nil)
		}

		if err := m.store.Touch(ctx, key, m.metadataPolicy.EffectiveTTL(0)); err != nil {
			return observe.OutcomeError, fmt.Errorf("doccache: refresh metadata %d: %w", id, err)
		}
		out = &entry
		return observe.OutcomeHit, nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, out != nil, nil
}

// RefreshMetadata extends the TTL of a document's metadata entry without
// revalidating it. Missing entries are ignored.
func (m *Manager) RefreshMetadata(ctx context.Context, id int64, ttl time.Duration) error {
	return m.touch(ctx, KindMetadata, id, MetadataKey(id), m.metadataPolicy.EffectiveTTL(ttl))
}

// InvalidateMetadata deletes a document's metadata entry. It is idempotent.
func (m *Manager) InvalidateMetadata(ctx context.Context, id int64) error {
	return m.remove(ctx, KindMetadata, id, MetadataKey(id))
}
