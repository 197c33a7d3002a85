package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"video-dedup/internal/dedup"
)

func newFingerprintCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint <file>...",
		Short: "Prints the content digest of each file.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			n := opts.normalizer(opts.logger(cmd))

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			failed := 0
			for _, path := range args {
				d, err := fingerprintFile(ctx, n, path)
				if err != nil {
					fmt.Fprintf(w, "%s\tERROR\t%v\n", path, err)
					failed++
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", path, d, d.Hex())
			}
			w.Flush()

			if failed > 0 {
				return fmt.Errorf("%d of %d files could not be fingerprinted", failed, len(args))
			}
			return nil
		},
	}
}

func newLookupCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <file>",
		Short: "Checks whether a file's content is already in the store.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			log := opts.logger(cmd)

			d, err := fingerprintFile(ctx, opts.normalizer(log), args[0])
			if err != nil {
				return err
			}

			index, store, err := opts.openIndex(ctx, log, dedup.ReadOnly())
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			e, ok := index.Lookup(d)
			if !ok {
				fmt.Fprintf(out, "%s not found\n", d)
				return nil
			}
			fmt.Fprintf(out, "%s first sent by %s (id %s)\n", d, e.FirstSubmitter.Label(), e.FirstSubmitter.ID)
			return nil
		},
	}
}

func newResetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Removes every digest from the store.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			index, store, err := opts.openIndex(ctx, opts.logger(cmd))
			if err != nil {
				return err
			}
			defer store.Close()

			n := index.Len()
			if err := index.Reset(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d digests\n", n)
			return nil
		},
	}
}
