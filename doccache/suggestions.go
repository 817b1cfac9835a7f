package doccache

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/jonwraymond/artifactcache/observe"
)

// WriteSuggestions stores suggestions for a document, tagged with the
// epoch of the classifier that produced them. A nil tool makes the call a
// no-op and leaves any existing entry in place.
func (m *Manager) WriteSuggestions(ctx context.Context, id int64, suggestions Suggestions, tool Classifier, ttl time.Duration) error {
	key := SuggestionKey(id)
	return m.inst.Track(ctx, observe.OpMeta{Kind: KindSuggestions, Op: "write", Key: key}, func(ctx context.Context) (observe.Outcome, error) {
		if noClassifier(tool) {
			return observe.OutcomeSkip, nil
		}
		entry := CachedSuggestions{
			ToolFormatVersion: tool.FormatVersion(),
			ToolStateHash:     hex.EncodeToString(tool.StateHash()),
			Suggestions:       suggestions,
		}
		return m.write(ctx, KindSuggestions, key, &entry, m.suggestPolicy.EffectiveTTL(ttl))
	})
}

// ReadSuggestions returns the cached suggestions for a document if they
// were produced by the currently published classifier epoch. The entry and
// both epoch slots are fetched in one batched read. A stale entry is
// deleted and reported as a miss; a valid one is returned without touching
// its TTL.
func (m *Manager) ReadSuggestions(ctx context.Context, id int64) (*CachedSuggestions, bool, error) {
	key := SuggestionKey(id)
	var out *CachedSuggestions

	err := m.inst.Track(ctx, observe.OpMeta{Kind: KindSuggestions, Op: "read", Key: key}, func(ctx context.Context) (observe.Outcome, error) {
		found, err := m.store.GetMany(ctx, []string{m.epoch.VersionKey, m.epoch.HashKey, key})
		if err != nil {
			return observe.OutcomeError, fmt.Errorf("doccache: read suggestions %d: %w", id, err)
		}
		raw, ok := found[key]
		if !ok {
			return observe.OutcomeMiss, nil
		}

		var entry CachedSuggestions
		if err := m.codec.Unmarshal(raw, &entry); err != nil {
			return m.evict(ctx, KindSuggestions, key, reasonCorrupt, err)
		}
		if reason := m.epoch.staleReason(found, &entry); reason != "" {
			return m.evict(ctx, KindSuggestions, key, reason, nil)
		}
		out = &entry
		return observe.OutcomeHit, nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, out != nil, nil
}

// RefreshSuggestions extends the TTL of a document's suggestion entry
// without revalidating it. Missing entries are ignored.
func (m *Manager) RefreshSuggestions(ctx context.Context, id int64, ttl time.Duration) error {
	return m.touch(ctx, KindSuggestions, id, SuggestionKey(id), m.suggestPolicy.EffectiveTTL(ttl))
}

// InvalidateSuggestions deletes a document's suggestion entry. It is idempotent.
func (m *Manager) InvalidateSuggestions(ctx context.Context, id int64) error {
	return m.remove(ctx, KindSuggestions, id, SuggestionKey(id))
}
