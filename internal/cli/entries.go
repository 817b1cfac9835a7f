package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/artifactcache/doccache"
)

type keysView struct {
	Metadata          string `json:"metadata"`
	Suggestions       string `json:"suggestions"`
	ThumbnailModified string `json:"thumbnail_modified"`
}

func documentKeys(id int64) keysView {
	return keysView{
		Metadata:          doccache.MetadataKey(id),
		Suggestions:       doccache.SuggestionKey(id),
		ThumbnailModified: doccache.ThumbnailModifiedKey(id),
	}
}

// entryOps binds the cache operations of one artifact kind.
type entryOps struct {
	kind       string
	read       func(ctx context.Context, rt *runtime, id int64) (any, bool, error)
	refresh    func(ctx context.Context, rt *runtime, id int64, ttl time.Duration) error
	invalidate func(ctx context.Context, rt *runtime, id int64) error
}

var metadataOps = entryOps{
	kind: doccache.KindMetadata,
	read: func(ctx context.Context, rt *runtime, id int64) (any, bool, error) {
		return rt.mgr.ReadMetadata(ctx, id)
	},
	refresh: func(ctx context.Context, rt *runtime, id int64, ttl time.Duration) error {
		return rt.mgr.RefreshMetadata(ctx, id, ttl)
	},
	invalidate: func(ctx context.Context, rt *runtime, id int64) error {
		return rt.mgr.InvalidateMetadata(ctx, id)
	},
}

var suggestionOps = entryOps{
	kind: doccache.KindSuggestions,
	read: func(ctx context.Context, rt *runtime, id int64) (any, bool, error) {
		return rt.mgr.ReadSuggestions(ctx, id)
	},
	refresh: func(ctx context.Context, rt *runtime, id int64, ttl time.Duration) error {
		return rt.mgr.RefreshSuggestions(ctx, id, ttl)
	},
	invalidate: func(ctx context.Context, rt *runtime, id int64) error {
		return rt.mgr.InvalidateSuggestions(ctx, id)
	},
}

func (a *App) newMetadataCmd() *cobra.Command {
	return a.newEntryCmd("metadata", "Read, refresh or invalidate cached document metadata", metadataOps)
}

func (a *App) newSuggestionsCmd() *cobra.Command {
	return a.newEntryCmd("suggestions", "Read, refresh or invalidate cached classifier suggestions", suggestionOps)
}

func (a *App) newEntryCmd(use, short string, ops entryOps) *cobra.Command {
	cmd := &cobra.Command{Use: use, Short: short}

	show := &cobra.Command{
		Use:   "show <document-id>",
		Short: "Print the cached entry if it is still valid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				entry, ok, err := ops.read(ctx, rt, id)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintf(a.stdout, "no valid %s cached for document %d\n", ops.kind, id)
					return nil
				}
				return a.printJSON(entry)
			})
		},
	}

	var ttl time.Duration
	refresh := &cobra.Command{
		Use:   "refresh <document-id>",
		Short: "Extend the entry's lifetime without revalidating it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				return ops.refresh(ctx, rt, id, ttl)
			})
		},
	}
	refresh.Flags().DurationVar(&ttl, "ttl", 0, "New lifetime (defaults to the configured TTL)")

	invalidate := &cobra.Command{
		Use:   "invalidate <document-id>",
		Short: "Delete the entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				return ops.invalidate(ctx, rt, id)
			})
		},
	}

	cmd.AddCommand(show, refresh, invalidate)
	return cmd
}
