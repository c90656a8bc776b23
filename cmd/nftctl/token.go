package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/feral-file/ff-marketplace/internal/domain"
)

func tokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "token <id>",
		Short: "Show the owner, metadata and image of a token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := sessionFromContext(cmd.Context())

			tokenID, err := domain.ParseTokenID(args[0])
			if err != nil {
				return err
			}
			signer, err := s.mp.Provider.Signer(cmd.Context())
			if err != nil {
				return err
			}

			token, err := s.mp.Lister.TokenDetails(cmd.Context(), signer, tokenID)
			if err != nil {
				return err
			}

			renderToken(cmd.OutOrStdout(), token)
			return nil
		},
	}
}

func renderToken(w io.Writer, token *domain.Token) {
	fmt.Fprintf(w, "Token #%d\n", token.TokenID)
	fmt.Fprintf(w, "  owner:       %s\n", token.Owner)
	fmt.Fprintf(w, "  name:        %s\n", token.Name)
	fmt.Fprintf(w, "  description: %s\n", token.Description)
	fmt.Fprintf(w, "  artist:      %s\n", token.Artist)
	fmt.Fprintf(w, "  metadata:    %s\n", token.MetadataHash)
	fmt.Fprintf(w, "  image:       %s\n", token.ImageURL)
	if token.IsImage != nil && !*token.IsImage {
		fmt.Fprintln(w, "  (image URL does not serve an image)")
	}
}

func supplyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "supply",
		Short: "Print the number of minted tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := sessionFromContext(cmd.Context())

			signer, err := s.mp.Provider.Signer(cmd.Context())
			if err != nil {
				return err
			}
			supply, err := s.mp.Lister.TotalSupply(cmd.Context(), signer)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), supply)
			return nil
		},
	}
}
