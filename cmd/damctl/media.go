package main

import (
	"fmt"
	"net/url"
	"strconv"
	"text/tabwriter"

	"github.com/damkit/go-damclient/client"
	"github.com/docker/go-units"
	"github.com/spf13/cobra"
)

func newMediaCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "media",
		Short: "Browse and manage assets",
	}
	cmd.AddCommand(newMediaListCommand(a), newMediaInfoCommand(a), newMediaDeleteCommand(a))
	return cmd
}

func newMediaListCommand(a *app) *cobra.Command {
	var (
		limit   int
		page    int
		keyword string
		kind    string
		all     bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List assets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			query := url.Values{}
			if keyword != "" {
				query.Set("keyword", keyword)
			}
			if kind != "" {
				query.Set("type", kind)
			}
			query.Set("limit", strconv.Itoa(limit))

			var media []client.Media
			var err error
			if all {
				media, err = a.client.AllMedia(cmd.Context(), query)
			} else {
				query.Set("page", strconv.Itoa(page))
				media, err = a.client.MediaList(cmd.Context(), query)
			}
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTYPE\tSIZE")
			for _, m := range media {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.ID, m.Name, m.Type, units.BytesSize(float64(m.FileSize)))
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "page size")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().StringVar(&keyword, "keyword", "", "search keyword")
	cmd.Flags().StringVar(&kind, "type", "", "asset type, e.g. image, video, document")
	cmd.Flags().BoolVar(&all, "all", false, "fetch every page")

	return cmd
}

func newMediaInfoCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info <mediaId>",
		Short: "Show an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			media, err := a.client.MediaInfo(cmd.Context(), args[0], url.Values{"versions": {"1"}})
			if err != nil {
				return err
			}
			return printJSON(cmd, media)
		},
	}
}

func newMediaDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <mediaId>",
		Short: "Delete an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.DeleteMedia(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.logger.Donef("Deleted %s", args[0])
			return nil
		},
	}
}
