package doccache

import "strconv"

// Artifact kinds, used as key discriminators and telemetry labels.
const (
	KindMetadata          = "metadata"
	KindSuggestions       = "suggestions"
	KindThumbnailModified = "thumbnail_modified"
	KindEpoch             = "epoch"
)

// Global classifier epoch slots.
const (
	ClassifierVersionKey  = "classifier_version"
	ClassifierHashKey     = "classifier_hash"
	ClassifierModifiedKey = "classifier_modified"
)

func docKey(id int64, tag string) string {
	return "doc_" + strconv.FormatInt(id, 10) + "_" + tag
}

// MetadataKey returns the key holding a document's cached metadata.
func MetadataKey(id int64) string {
	return docKey(id, KindMetadata)
}

// SuggestionKey returns the key holding a document's cached suggestions.
func SuggestionKey(id int64) string {
	return docKey(id, "suggest")
}

// ThumbnailModifiedKey returns the key of a document's thumbnail timestamp
// marker. The marker has presence semantics only and is read and written
// through the store directly.
func ThumbnailModifiedKey(id int64) string {
	return docKey(id, KindThumbnailModified)
}
