package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"video-dedup/internal/dedup"
	"video-dedup/internal/fingerprint"
	"video-dedup/internal/platform/config"
	"video-dedup/internal/platform/logger"
)

// options holds the persistent flags shared by every subcommand.
type options struct {
	storeBackend string
	storePath    string
	ffmpegPath   string
	frameSize    int
	logLevel     string
}

func newRootCmd(cfg config.Config) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "dedupctl",
		Short: "Inspect and maintain the video dedup store.",
		Long: `dedupctl fingerprints video files the same way the server does and
reads or clears the persisted digest store.`,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.storeBackend, "store-backend", cfg.StoreBackend, "Store backend: json, sqlite or memory")
	flags.StringVar(&opts.storePath, "store-path", cfg.StorePath, "Path of the JSON snapshot or SQLite database")
	flags.StringVar(&opts.ffmpegPath, "ffmpeg", cfg.FFmpegPath, "ffmpeg binary used for non-GIF containers")
	flags.IntVar(&opts.frameSize, "frame-size", cfg.FrameSize, "Edge length of normalized frames")
	flags.StringVarP(&opts.logLevel, "loglevel", "l", "warn", "Log level: debug, info, warn, error")

	root.AddCommand(
		newFingerprintCmd(opts),
		newLookupCmd(opts),
		newResetCmd(opts),
	)
	return root
}

func (o *options) logger(cmd *cobra.Command) *slog.Logger {
	return logger.NewWithWriter(cmd.ErrOrStderr(), o.logLevel, "text")
}

func (o *options) normalizer(log *slog.Logger) *fingerprint.Normalizer {
	fopts := []fingerprint.Option{fingerprint.WithFrameSize(o.frameSize)}
	if dec, err := fingerprint.LookupFFmpeg(o.ffmpegPath, ""); err != nil {
		log.Debug("ffmpeg not available", "error", err)
	} else {
		fopts = append(fopts, fingerprint.WithVideoDecoder(dec))
	}
	return fingerprint.NewNormalizer(fopts...)
}

// openIndex opens the configured store and loads it. The caller must close
// the returned store. A writable open fails with dedup.ErrStoreInUse while the
// server has the store.
func (o *options) openIndex(ctx context.Context, log *slog.Logger, opts ...dedup.StoreOption) (*dedup.Index, dedup.Store, error) {
	store, err := dedup.OpenStore(o.storeBackend, o.storePath, opts...)
	if errors.Is(err, dedup.ErrStoreInUse) {
		return nil, nil, fmt.Errorf("%w; stop the server or use its POST /reset endpoint", err)
	}
	if err != nil {
		return nil, nil, err
	}
	index := dedup.NewIndex(store, log)
	index.Load(ctx)
	return index, store, nil
}

func fingerprintFile(ctx context.Context, n *fingerprint.Normalizer, path string) (fingerprint.Digest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	d, err := n.Fingerprint(ctx, data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
