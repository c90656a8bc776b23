package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/logger"
	"github.com/feral-file/ff-marketplace/internal/workflows"
)

func ownedCommand() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "owned [address]",
		Short: "List the tokens owned by an address (defaults to the wallet)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := sessionFromContext(cmd.Context())
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			address := s.mp.Provider.ConnectedAddress()
			if len(args) == 1 {
				normalized, err := domain.NormalizeAddress(args[0])
				if err != nil {
					return fmt.Errorf("%w: %s", domain.ErrInvalidAddress, args[0])
				}
				address = normalized
			}

			if !watch {
				signer, err := s.mp.Provider.Signer(ctx)
				if err != nil {
					return err
				}
				tokens, err := s.mp.Lister.ListOwnedTokens(ctx, signer, address)
				if err != nil {
					return err
				}
				renderTokens(out, address, tokens)
				return nil
			}

			// Refresh until interrupted
			watcher := workflows.NewWatcher(workflows.WatcherConfig{
				Address:         address,
				RefreshInterval: s.cfg.Ownership.RefreshInterval,
				CycleTimeout:    s.cfg.Ownership.Timeout,
			}, s.mp.Lister, s.mp.Provider, func(_ context.Context, tokens []domain.Token, err error) {
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "refresh failed: %v\n", err)
					return
				}
				renderTokens(out, address, tokens)
			}, s.mp.Metrics)

			logger.InfoCtx(ctx, "Watching owned tokens, press Ctrl-C to stop")
			return watcher.Start(ctx)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "refresh the list until interrupted")

	return cmd
}

func renderTokens(w io.Writer, address string, tokens []domain.Token) {
	fmt.Fprintf(w, "%s owns %d token(s)\n", domain.ShortenAddress(address), len(tokens))
	if len(tokens) == 0 {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tARTIST\tIMAGE")
	for _, token := range tokens {
		image := token.ImageURL
		if image == "" {
			image = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", token.TokenID, token.Name, token.Artist, image)
	}
	_ = tw.Flush()
}
