package readthrough

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/artifactcache/doccache"
	"github.com/jonwraymond/artifactcache/observe"
)

// ErrNilManager is returned when a Loader is created without a manager.
var ErrNilManager = errors.New("readthrough: manager is nil")

// MetadataFunc extracts metadata for a document.
type MetadataFunc func(ctx context.Context, doc doccache.Document) (original, archive []doccache.MetadataRecord, err error)

// SuggestionsFunc computes suggestions for a document with tool.
type SuggestionsFunc func(ctx context.Context, id int64, tool doccache.Classifier) (doccache.Suggestions, error)

// Loader wraps a Manager with read-through computation.
//
// Contract:
// - Concurrency: safe for concurrent use. Concurrent misses for the same
//   key share one computation; all callers receive its result.
// - Errors: only errors from the compute function and the caller's own
//   context are returned.
// - Context: a shared computation and its write-back run detached from
//   any single caller's cancellation. A caller whose context ends stops
//   waiting and gets ctx.Err(); the others still receive the result.
type Loader struct {
	mgr    *doccache.Manager
	logger observe.Logger

	metadata    singleflight.Group
	suggestions singleflight.Group
}

// New creates a Loader. A nil logger disables logging.
func New(mgr *doccache.Manager, logger observe.Logger) (*Loader, error) {
	if mgr == nil {
		return nil, ErrNilManager
	}
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &Loader{mgr: mgr, logger: logger}, nil
}

// Metadata returns the cached metadata for doc, computing and caching it on
// a miss.
func (l *Loader) Metadata(ctx context.Context, doc doccache.Document, compute MetadataFunc) (*doccache.CachedMetadata, error) {
	if cached, ok := l.readMetadata(ctx, doc.ID); ok {
		return cached, nil
	}

	// The checksum is part of the flight key so callers holding different
	// revisions of a document never share a result.
	key := doccache.MetadataKey(doc.ID) + "@" + doc.Checksum
	v, err := share(ctx, &l.metadata, key, func(ctx context.Context) (any, error) {
		if cached, ok := l.readMetadata(ctx, doc.ID); ok {
			return cached, nil
		}

		original, archive, err := compute(ctx, doc)
		if err != nil {
			return nil, fmt.Errorf("readthrough: compute metadata %d: %w", doc.ID, err)
		}
		if err := l.mgr.WriteMetadata(ctx, doc, original, archive, 0); err != nil {
			l.logger.Warn(ctx, "metadata write-back failed",
				observe.Field{Key: "document_id", Value: doc.ID},
				observe.Field{Key: "error", Value: err},
			)
		}
		entry := doccache.NewCachedMetadata(doc, original, archive)
		return &entry, nil
	})
	if err != nil {
		return nil, err
	}
	cached, _ := v.(*doccache.CachedMetadata)
	return cached, nil
}

// Suggestions returns the cached suggestions for a document, computing and
// caching them with tool on a miss. With a nil tool the result is computed
// but not cached.
func (l *Loader) Suggestions(ctx context.Context, id int64, tool doccache.Classifier, compute SuggestionsFunc) (doccache.Suggestions, error) {
	if cached, ok := l.readSuggestions(ctx, id); ok {
		return cached, nil
	}

	v, err := share(ctx, &l.suggestions, doccache.SuggestionKey(id), func(ctx context.Context) (any, error) {
		if cached, ok := l.readSuggestions(ctx, id); ok {
			return cached, nil
		}

		suggestions, err := compute(ctx, id, tool)
		if err != nil {
			return nil, fmt.Errorf("readthrough: compute suggestions %d: %w", id, err)
		}
		if err := l.mgr.WriteSuggestions(ctx, id, suggestions, tool, 0); err != nil {
			l.logger.Warn(ctx, "suggestions write-back failed",
				observe.Field{Key: "document_id", Value: id},
				observe.Field{Key: "error", Value: err},
			)
		}
		return suggestions, nil
	})
	if err != nil {
		return nil, err
	}
	suggestions, _ := v.(doccache.Suggestions)
	return suggestions, nil
}

// share runs fn once per key across concurrent callers.
func share(ctx context.Context, g *singleflight.Group, key string, fn func(context.Context) (any, error)) (any, error) {
	detached := context.WithoutCancel(ctx)
	ch := g.DoChan(key, func() (any, error) {
		return fn(detached)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Loader) readMetadata(ctx context.Context, id int64) (*doccache.CachedMetadata, bool) {
	cached, ok, err := l.mgr.ReadMetadata(ctx, id)
	if err != nil {
		l.logger.Warn(ctx, "metadata cache unavailable",
			observe.Field{Key: "document_id", Value: id},
			observe.Field{Key: "error", Value: err},
		)
		return nil, false
	}
	return cached, ok
}

func (l *Loader) readSuggestions(ctx context.Context, id int64) (doccache.Suggestions, bool) {
	cached, ok, err := l.mgr.ReadSuggestions(ctx, id)
	if err != nil {
		l.logger.Warn(ctx, "suggestions cache unavailable",
			observe.Field{Key: "document_id", Value: id},
			observe.Field{Key: "error", Value: err},
		)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return cached.Suggestions, true
}
