package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	"github.com/feral-file/ff-marketplace/internal/adapter"
	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/workflows"
)

type mintFlags struct {
	name        string
	description string
	artist      string
	address     string
	media       []string
}

func mintCommand() *cobra.Command {
	var flags mintFlags

	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Upload media and metadata, then mint the next token",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := sessionFromContext(cmd.Context())

			req, err := flags.request(adapter.NewFileSystem())
			if err != nil {
				return err
			}
			req.Signer, err = s.mp.Provider.Signer(cmd.Context())
			if err != nil {
				return err
			}

			receipt, err := s.mp.Minter.Mint(cmd.Context(), *req)
			if err != nil {
				return err
			}

			renderReceipt(cmd.OutOrStdout(), receipt, s.mp.Storage.RetrieveFile(receipt.ImageHash))
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.name, "name", "", "token name")
	cmd.Flags().StringVar(&flags.description, "description", "", "token description")
	cmd.Flags().StringVar(&flags.artist, "artist", "", "artist name")
	cmd.Flags().StringVar(&flags.address, "address", "", "recipient address (defaults to the wallet)")
	cmd.Flags().StringArrayVar(&flags.media, "media", nil, "media file to mint; only the first is used")

	return cmd
}

// request reads the media files; missing fields are left for the workflow to report
func (f *mintFlags) request(fs adapter.FileSystem) (*workflows.MintRequest, error) {
	req := &workflows.MintRequest{
		Name:        f.name,
		Description: f.description,
		Artist:      f.artist,
		Address:     f.address,
	}

	for _, path := range f.media {
		data, err := fs.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read media file %s: %w", path, err)
		}
		req.Media = append(req.Media, domain.MediaFile{
			Filename:    filepath.Base(path),
			ContentType: mimetype.Detect(data).String(),
			Data:        data,
		})
	}

	return req, nil
}

func renderReceipt(w io.Writer, receipt *domain.MintReceipt, imageURL string) {
	fmt.Fprintf(w, "Minted token #%d\n", receipt.TokenID)
	fmt.Fprintf(w, "  owner:     %s\n", receipt.Owner)
	fmt.Fprintf(w, "  tx:        %s\n", receipt.TxHash)
	fmt.Fprintf(w, "  block:     %d\n", receipt.BlockNumber)
	fmt.Fprintf(w, "  metadata:  %s\n", receipt.MetadataHash)
	fmt.Fprintf(w, "  image:     %s\n", imageURL)
}
