package doccache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/artifactcache/cache"
)

var (
	originalRecords = []MetadataRecord{{Namespace: "http://ns.adobe.com/pdf/1.3/", Prefix: "pdf", Key: "Producer", Value: "LibreOffice"}}
	archiveRecords  = []MetadataRecord{{Namespace: "http://ns.adobe.com/pdf/1.3/", Prefix: "pdf", Key: "Producer", Value: "ocrmypdf"}}
)

func TestMetadata_RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		doc     Document
		archive []MetadataRecord
	}{
		{"with archive", Document{ID: 1, Checksum: "c1", ArchiveChecksum: strPtr("a1")}, archiveRecords},
		{"without archive", Document{ID: 2, Checksum: "c2"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.doc)
			ctx := context.Background()

			require.NoError(t, f.mgr.WriteMetadata(ctx, tt.doc, originalRecords, tt.archive, 0))

			got, ok, err := f.mgr.ReadMetadata(ctx, tt.doc.ID)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tt.doc.Checksum, got.OriginalChecksum)
			assert.Equal(t, originalRecords, got.OriginalMetadata)
			assert.Equal(t, tt.doc.ArchiveChecksum, got.ArchiveChecksum)
			assert.Equal(t, tt.archive, got.ArchiveMetadata)
		})
	}
}

func TestMetadata_Miss(t *testing.T) {
	f := newFixture(t, Document{ID: 1, Checksum: "c1"})

	got, ok, err := f.mgr.ReadMetadata(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestMetadata_StaleEntriesAreDeleted(t *testing.T) {
	tests := []struct {
		name    string
		written Document
		current *Document // nil: document no longer exists
	}{
		{
			name:    "checksum changed",
			written: Document{ID: 1, Checksum: "c1"},
			current: &Document{ID: 1, Checksum: "c2"},
		},
		{
			name:    "archive checksum changed",
			written: Document{ID: 1, Checksum: "c1", ArchiveChecksum: strPtr("a1")},
			current: &Document{ID: 1, Checksum: "c1", ArchiveChecksum: strPtr("a2")},
		},
		{
			name:    "archive gained",
			written: Document{ID: 1, Checksum: "c1"},
			current: &Document{ID: 1, Checksum: "c1", ArchiveChecksum: strPtr("a1")},
		},
		{
			name:    "archive lost",
			written: Document{ID: 1, Checksum: "c1", ArchiveChecksum: strPtr("a1")},
			current: &Document{ID: 1, Checksum: "c1"},
		},
		{
			name:    "document deleted",
			written: Document{ID: 1, Checksum: "c1"},
			current: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.written)
			ctx := context.Background()
			require.NoError(t, f.mgr.WriteMetadata(ctx, tt.written, originalRecords, archiveRecords, 0))

			if tt.current == nil {
				f.docs.remove(tt.written.ID)
			} else {
				f.docs.put(*tt.current)
			}

			got, ok, err := f.mgr.ReadMetadata(ctx, tt.written.ID)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Nil(t, got)

			_, present, err := f.store.Get(ctx, MetadataKey(tt.written.ID))
			require.NoError(t, err)
			assert.False(t, present, "stale entry should be deleted")
		})
	}
}

func TestMetadata_LookupFailureIsStale(t *testing.T) {
	doc := Document{ID: 5, Checksum: "c5"}
	f := newFixture(t, doc)
	ctx := context.Background()
	require.NoError(t, f.mgr.WriteMetadata(ctx, doc, originalRecords, nil, 0))

	f.docs.err = errors.New("database is down")

	_, ok, err := f.mgr.ReadMetadata(ctx, doc.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, f.store.Len())
}

func TestMetadata_UnusablePayloadIsDeleted(t *testing.T) {
	doc := Document{ID: 9, Checksum: "c9", ArchiveChecksum: strPtr("a9")}
	codec, err := NewCodec(DefaultCompressAbove)
	require.NoError(t, err)

	inconsistent, err := codec.Marshal(&CachedMetadata{
		OriginalChecksum: "c9",
		OriginalMetadata: originalRecords,
		ArchiveChecksum:  strPtr("a9"),
	})
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  []byte
	}{
		{"garbage", []byte("not a payload")},
		{"archive invariant violated", inconsistent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, doc)
			ctx := context.Background()
			require.NoError(t, f.store.Set(ctx, MetadataKey(doc.ID), tt.raw, time.Minute))

			_, ok, err := f.mgr.ReadMetadata(ctx, doc.ID)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Zero(t, f.store.Len())
		})
	}
}

func TestMetadata_WriteNormalizesArchive(t *testing.T) {
	ctx := context.Background()

	t.Run("archive metadata dropped without archive version", func(t *testing.T) {
		doc := Document{ID: 1, Checksum: "c1"}
		f := newFixture(t, doc)
		require.NoError(t, f.mgr.WriteMetadata(ctx, doc, originalRecords, archiveRecords, 0))

		got, ok, err := f.mgr.ReadMetadata(ctx, doc.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Nil(t, got.ArchiveChecksum)
		assert.Nil(t, got.ArchiveMetadata)
	})

	t.Run("nil archive metadata stored empty with archive version", func(t *testing.T) {
		doc := Document{ID: 2, Checksum: "c2", ArchiveChecksum: strPtr("a2")}
		f := newFixture(t, doc)
		require.NoError(t, f.mgr.WriteMetadata(ctx, doc, nil, nil, 0))

		got, ok, err := f.mgr.ReadMetadata(ctx, doc.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.NotNil(t, got.ArchiveMetadata)
		assert.Empty(t, got.ArchiveMetadata)
		assert.Equal(t, []MetadataRecord{}, got.OriginalMetadata)
	})
}

func TestMetadata_ValidReadExtendsTTL(t *testing.T) {
	doc := Document{ID: 1, Checksum: "c1"}
	f := newFixture(t, doc)
	ctx := context.Background()

	require.NoError(t, f.mgr.WriteMetadata(ctx, doc, originalRecords, nil, cache.TTLOneMinute))
	ttl, ok := f.store.TTL(MetadataKey(doc.ID))
	require.True(t, ok)
	require.LessOrEqual(t, ttl, cache.TTLOneMinute)

	_, hit, err := f.mgr.ReadMetadata(ctx, doc.ID)
	require.NoError(t, err)
	require.True(t, hit)

	ttl, ok = f.store.TTL(MetadataKey(doc.ID))
	require.True(t, ok)
	assert.Greater(t, ttl, cache.TTLFiveMinutes)
	assert.LessOrEqual(t, ttl, cache.TTLFiftyMinutes)
}

func TestMetadata_RefreshKeepsPayload(t *testing.T) {
	doc := Document{ID: 1, Checksum: "c1", ArchiveChecksum: strPtr("a1")}
	f := newFixture(t, doc)
	ctx := context.Background()
	key := MetadataKey(doc.ID)

	require.NoError(t, f.mgr.WriteMetadata(ctx, doc, originalRecords, archiveRecords, cache.TTLOneMinute))
	before, _, err := f.store.Get(ctx, key)
	require.NoError(t, err)

	require.NoError(t, f.mgr.RefreshMetadata(ctx, doc.ID, cache.TTLFiftyMinutes))

	after, _, err := f.store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	ttl, ok := f.store.TTL(key)
	require.True(t, ok)
	assert.Greater(t, ttl, cache.TTLFiveMinutes)
}

func TestMetadata_RefreshMissingIsNoop(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.mgr.RefreshMetadata(context.Background(), 404, 0))
	assert.Zero(t, f.store.Len())
}

func TestMetadata_InvalidateIsIdempotent(t *testing.T) {
	doc := Document{ID: 1, Checksum: "c1"}
	f := newFixture(t, doc)
	ctx := context.Background()
	require.NoError(t, f.mgr.WriteMetadata(ctx, doc, originalRecords, nil, 0))

	require.NoError(t, f.mgr.InvalidateMetadata(ctx, doc.ID))
	require.NoError(t, f.mgr.InvalidateMetadata(ctx, doc.ID))

	_, ok, err := f.mgr.ReadMetadata(ctx, doc.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMetadata_StoreErrorsPropagate(t *testing.T) {
	doc := Document{ID: 1, Checksum: "c1"}
	boom := errors.New("connection reset")
	store := newRecordingStore(cache.NewMemoryStore())
	store.err = boom

	mgr, err := New(store, newFakeDocuments(doc), NewEpoch(3))
	require.NoError(t, err)
	ctx := context.Background()

	err = mgr.WriteMetadata(ctx, doc, originalRecords, nil, 0)
	assert.ErrorIs(t, err, boom)

	_, ok, err := mgr.ReadMetadata(ctx, doc.ID)
	assert.ErrorIs(t, err, boom)
	assert.False(t, ok)

	assert.ErrorIs(t, mgr.RefreshMetadata(ctx, doc.ID, 0), boom)
	assert.ErrorIs(t, mgr.InvalidateMetadata(ctx, doc.ID), boom)
}

func TestMetadata_WritesOverwrite(t *testing.T) {
	doc := Document{ID: 1, Checksum: "c1"}
	f := newFixture(t, doc)
	ctx := context.Background()

	require.NoError(t, f.mgr.WriteMetadata(ctx, doc, originalRecords, nil, 0))
	updated := Document{ID: 1, Checksum: "c2"}
	f.docs.put(updated)
	require.NoError(t, f.mgr.WriteMetadata(ctx, updated, archiveRecords, nil, 0))

	got, ok, err := f.mgr.ReadMetadata(ctx, doc.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "c2", got.OriginalChecksum)
	assert.Equal(t, archiveRecords, got.OriginalMetadata)
}
