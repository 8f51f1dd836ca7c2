package main

import (
	"fmt"
	"os"

	"github.com/damkit/go-damclient/s3bridge"
	"github.com/docker/go-units"
	"github.com/spf13/cobra"
)

func newDownloadCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "download <mediaId> <dest>",
		Short: "Download the original file of an asset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mediaID, dest := args[0], args[1]
			if err := a.client.DownloadMedia(cmd.Context(), mediaID, dest); err != nil {
				return err
			}

			info, err := os.Stat(dest)
			if err != nil {
				return err
			}
			a.logger.Donef("Downloaded %s to %s (%s)", mediaID, dest, units.BytesSize(float64(info.Size())))
			return nil
		},
	}
}

func newExportCommand(a *app) *cobra.Command {
	var checksum string

	cmd := &cobra.Command{
		Use:   "export <mediaId> <s3://bucket/key>",
		Short: "Copy the original file of an asset into an S3 bucket",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mediaID := args[0]
			dst, ok := parseS3URL(args[1])
			if !ok {
				return fmt.Errorf("invalid destination %q, expected s3://bucket/key", args[1])
			}

			downloadURL, err := a.client.MediaDownloadURL(cmd.Context(), mediaID, "")
			if err != nil {
				return err
			}

			bridge, err := s3bridge.New(cmd.Context(), a.config.S3Params(), a.logger)
			if err != nil {
				return err
			}
			uploaded, err := bridge.ExportMedia(cmd.Context(), downloadURL, dst, checksum)
			if err != nil {
				return err
			}

			if uploaded {
				a.logger.Donef("Exported %s to %s", mediaID, dst)
			} else {
				a.logger.Donef("%s is up to date", dst)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&checksum, "sha256", "", "skip the upload if the object already has this SHA-256 checksum")

	return cmd
}
