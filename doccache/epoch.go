package doccache

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/jonwraymond/artifactcache/cache"
)

// Epoch names the shared slots holding the published classifier epoch and
// the classifier format version the running code understands.
//
// An Epoch is created once at startup and handed to every Manager. Only the
// process that loads or trains the classifier calls Publish; readers compare
// cached suggestions against the slots on every read.
type Epoch struct {
	// FormatVersion is the classifier format version this build expects.
	FormatVersion int

	VersionKey  string
	HashKey     string
	ModifiedKey string

	now func() time.Time
}

// NewEpoch returns an Epoch using the default slot keys.
func NewEpoch(formatVersion int) *Epoch {
	return &Epoch{
		FormatVersion: formatVersion,
		VersionKey:    ClassifierVersionKey,
		HashKey:       ClassifierHashKey,
		ModifiedKey:   ClassifierModifiedKey,
		now:           time.Now,
	}
}

// EpochState is the epoch currently published in a store.
type EpochState struct {
	Version    int
	HasVersion bool
	Hash       string
	HasHash    bool
	Modified   time.Time
}

// Published reports whether both version and hash are present.
func (s EpochState) Published() bool {
	return s.HasVersion && s.HasHash
}

// Publish writes tool's version and state hash to the global slots without
// expiry. Every cached suggestion produced by a different epoch becomes
// stale on its next read.
func (e *Epoch) Publish(ctx context.Context, store cache.Store, tool Classifier) error {
	if store == nil {
		return cache.ErrNilStore
	}
	if noClassifier(tool) {
		return ErrNilClassifier
	}
	if err := store.Set(ctx, e.HashKey, []byte(hex.EncodeToString(tool.StateHash())), cache.NoExpiry); err != nil {
		return fmt.Errorf("doccache: publish epoch hash: %w", err)
	}
	version := strconv.Itoa(tool.FormatVersion())
	if err := store.Set(ctx, e.VersionKey, []byte(version), cache.NoExpiry); err != nil {
		return fmt.Errorf("doccache: publish epoch version: %w", err)
	}
	modified := e.clock()().UTC().Format(time.RFC3339Nano)
	if err := store.Set(ctx, e.ModifiedKey, []byte(modified), cache.NoExpiry); err != nil {
		return fmt.Errorf("doccache: publish epoch timestamp: %w", err)
	}
	return nil
}

// Current reads the published epoch. Unparseable slots are reported absent.
func (e *Epoch) Current(ctx context.Context, store cache.Store) (EpochState, error) {
	if store == nil {
		return EpochState{}, cache.ErrNilStore
	}
	slots, err := store.GetMany(ctx, []string{e.VersionKey, e.HashKey, e.ModifiedKey})
	if err != nil {
		return EpochState{}, fmt.Errorf("doccache: read epoch: %w", err)
	}

	var state EpochState
	state.Version, state.HasVersion = parseVersion(slots, e.VersionKey)
	if raw, ok := slots[e.HashKey]; ok {
		state.Hash, state.HasHash = string(raw), true
	}
	if raw, ok := slots[e.ModifiedKey]; ok {
		if t, err := time.Parse(time.RFC3339Nano, string(raw)); err == nil {
			state.Modified = t
		}
	}
	return state, nil
}

// staleReason checks an entry against slots fetched alongside it. Both
// comparisons are kept: the published version must match this build and
// the entry.
func (e *Epoch) staleReason(slots map[string][]byte, entry *CachedSuggestions) string {
	version, ok := parseVersion(slots, e.VersionKey)
	if !ok {
		return reasonEpochMissing
	}
	if version != e.FormatVersion || version != entry.ToolFormatVersion {
		return reasonVersionChanged
	}
	hash, ok := slots[e.HashKey]
	if !ok {
		return reasonEpochMissing
	}
	if string(hash) != entry.ToolStateHash {
		return reasonStateChanged
	}
	return ""
}

func (e *Epoch) clock() func() time.Time {
	if e.now == nil {
		return time.Now
	}
	return e.now
}

func parseVersion(slots map[string][]byte, key string) (int, bool) {
	raw, ok := slots[key]
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, false
	}
	return v, true
}
