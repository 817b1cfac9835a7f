package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/artifactcache/doccache"
)

func (a *App) newDocumentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "documents",
		Short: "Manage the document checksum table",
	}

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the documents table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				return rt.docs.Migrate(ctx)
			})
		},
	}

	var checksum, archive string
	put := &cobra.Command{
		Use:   "put <document-id>",
		Short: "Record a document's current checksums",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if checksum == "" {
				return errors.New("--checksum is required")
			}
			doc := doccache.Document{ID: id, Checksum: checksum}
			if archive != "" {
				doc.ArchiveChecksum = &archive
			}
			return a.withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				return rt.docs.PutDocument(ctx, doc)
			})
		},
	}
	put.Flags().StringVar(&checksum, "checksum", "", "Checksum of the original file")
	put.Flags().StringVar(&archive, "archive-checksum", "", "Checksum of the archived rendition, if any")

	show := &cobra.Command{
		Use:   "show <document-id>",
		Short: "Print a document's recorded checksums",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				doc, err := rt.docs.GetDocument(ctx, id)
				if err != nil {
					return err
				}
				return a.printJSON(doc)
			})
		},
	}

	cmd.AddCommand(migrate, put, show)
	return cmd
}
