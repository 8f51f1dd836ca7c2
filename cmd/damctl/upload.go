package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/damkit/go-damclient/s3bridge"
	"github.com/damkit/go-damclient/upload"
	"github.com/docker/go-units"
	"github.com/spf13/cobra"
)

func newUploadCommand(a *app) *cobra.Command {
	var (
		mediaID  string
		name     string
		fields   []string
		buffered bool
	)

	cmd := &cobra.Command{
		Use:   "upload <file | s3://bucket/key>",
		Short: "Upload a file as a new asset, or as a new version of --media-id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := parseFields(fields)
			if err != nil {
				return err
			}
			if mediaID != "" {
				data[upload.MediaIDKey] = mediaID
			}
			if name != "" {
				data["name"] = name
			}

			var result *upload.Result
			if loc, ok := parseS3URL(args[0]); ok {
				bridge, err := s3bridge.New(cmd.Context(), a.config.S3Params(), a.logger)
				if err != nil {
					return err
				}
				result, err = bridge.UploadObject(cmd.Context(), a.client, loc, data)
				if err != nil {
					return err
				}
			} else {
				result, err = a.uploadFile(cmd, args[0], data, buffered)
				if err != nil {
					return err
				}
			}

			return printJSON(cmd, result)
		},
	}
	cmd.Flags().StringVar(&mediaID, "media-id", "", "upload as a new version of this asset")
	cmd.Flags().StringVar(&name, "name", "", "asset name")
	cmd.Flags().StringArrayVarP(&fields, "field", "f", nil, "asset metadata as key=value, repeatable")
	cmd.Flags().BoolVar(&buffered, "buffered", false, "read the whole file into memory instead of streaming it")

	return cmd
}

func (a *app) uploadFile(cmd *cobra.Command, path string, data map[string]string, buffered bool) (*upload.Result, error) {
	req := upload.Request{
		Filename: filepath.Base(path),
		Data:     data,
		OnProgress: func(p upload.Progress) {
			if p.State == upload.StateUploading {
				a.logger.Printf("%d/%d chunks, %s sent", p.CompletedChunks, p.TotalChunks, units.BytesSize(float64(p.BytesSent)))
			}
		},
	}

	if buffered {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		req.Body = content
		return a.client.UploadFile(cmd.Context(), req)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	req.Body = file
	req.Length = info.Size()

	return a.client.UploadFile(cmd.Context(), req)
}

func parseFields(fields []string) (map[string]string, error) {
	data := map[string]string{}
	for _, field := range fields {
		key, value, ok := strings.Cut(field, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid field %q, expected key=value", field)
		}
		data[key] = value
	}
	return data, nil
}

func parseS3URL(s string) (s3bridge.Location, bool) {
	rest, ok := strings.CutPrefix(s, "s3://")
	if !ok {
		return s3bridge.Location{}, false
	}
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return s3bridge.Location{}, false
	}
	return s3bridge.Location{Bucket: bucket, Key: key}, true
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
