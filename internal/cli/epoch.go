package cli

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// publishedClassifier describes a classifier by its published fingerprint.
type publishedClassifier struct {
	version int
	hash    []byte
}

func (c publishedClassifier) FormatVersion() int { return c.version }
func (c publishedClassifier) StateHash() []byte  { return c.hash }

type epochView struct {
	Published       bool      `json:"published"`
	Version         int       `json:"version,omitempty"`
	ExpectedVersion int       `json:"expected_version"`
	Hash            string    `json:"hash,omitempty"`
	Modified        time.Time `json:"modified,omitzero"`
}

func (a *App) newEpochCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "epoch",
		Short: "Inspect or publish the classifier epoch",
	}
	cmd.AddCommand(a.newEpochShowCmd(), a.newEpochPublishCmd())
	return cmd
}

func (a *App) newEpochShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the published classifier epoch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				state, err := rt.epoch.Current(ctx, rt.store)
				if err != nil {
					return err
				}
				return a.printJSON(epochView{
					Published:       state.Published(),
					Version:         state.Version,
					ExpectedVersion: rt.epoch.FormatVersion,
					Hash:            state.Hash,
					Modified:        state.Modified,
				})
			})
		},
	}
}

func (a *App) newEpochPublishCmd() *cobra.Command {
	var (
		version int
		hash    string
	)
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a classifier epoch, invalidating cached suggestions of other epochs",
		Long: `Publish writes the classifier format version and state hash to the shared
store. Cached suggestions produced by a different classifier are discarded
when they are next read.

Examples:
  # Publish the hash of a freshly trained model
  artifactcache epoch publish --hash "$(sha256sum model.pickle | cut -d' ' -f1)"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := hex.DecodeString(hash)
			if err != nil || len(raw) == 0 {
				return errors.New("--hash must be a non-empty hex string")
			}
			return a.withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				v := version
				if v == 0 {
					v = rt.epoch.FormatVersion
				}
				if err := rt.epoch.Publish(ctx, rt.store, publishedClassifier{version: v, hash: raw}); err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "published classifier epoch version=%d hash=%s\n", v, hex.EncodeToString(raw))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&version, "version", 0, "Classifier format version (defaults to cache.classifier_format_version)")
	cmd.Flags().StringVar(&hash, "hash", "", "Classifier state hash, hex encoded (required)")
	_ = cmd.MarkFlagRequired("hash")
	return cmd
}
