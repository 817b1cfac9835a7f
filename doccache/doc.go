// Package doccache caches artifacts derived from documents and decides, on
// every read, whether a cached artifact still reflects the current state of
// its inputs.
//
// Two artifact kinds are supported:
//
//   - Metadata extracted from a document and its archived rendition. An entry
//     is valid while the document's checksums match the ones recorded when
//     the entry was written.
//   - Classifier suggestions for a document. An entry is valid while the
//     classifier epoch (format version and trained-state hash) published in
//     the shared store matches the one recorded with the entry.
//
// Invalid entries are deleted lazily when they are next read; nothing ever
// walks the cache. Publishing a new classifier epoch therefore invalidates
// every cached suggestion at once without touching any entry.
//
// # Keys
//
//	doc_<id>_metadata            cached metadata
//	doc_<id>_suggest             cached suggestions
//	doc_<id>_thumbnail_modified  thumbnail timestamp marker (key only)
//	classifier_version           published classifier format version
//	classifier_hash              published classifier state hash (hex)
//	classifier_modified          publish timestamp (RFC 3339)
//
// # Usage
//
//	epoch := doccache.NewEpoch(classifierFormatVersion)
//	mgr, err := doccache.New(store, documents, epoch)
//
//	meta, ok, err := mgr.ReadMetadata(ctx, id)
//	if err == nil && !ok {
//	    original, archive := extract(doc)
//	    err = mgr.WriteMetadata(ctx, doc, original, archive, 0)
//	}
//
// The Manager holds no mutable state of its own and is safe for concurrent
// use; all shared state lives in the cache.Store.
package doccache
