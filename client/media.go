package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/melbahja/got"
)

const (
	mediaPath = "v4/media/"

	defaultPageLimit = 1000
)

// Media is an asset of the portal.
type Media struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description,omitempty"`
	Type         string            `json:"type"`
	Extension    []string          `json:"extension,omitempty"`
	FileSize     int64             `json:"fileSize,omitempty"`
	BrandID      string            `json:"brandId,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
	DateCreated  string            `json:"dateCreated,omitempty"`
	DateModified string            `json:"dateModified,omitempty"`
	Thumbnails   map[string]string `json:"thumbnails,omitempty"`
}

// MediaList returns one page of assets matching query (e.g. limit, page, keyword, type, brandId).
func (c *Client) MediaList(ctx context.Context, query url.Values) ([]Media, error) {
	var media []Media
	if err := c.get(ctx, mediaPath, query, &media); err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	return media, nil
}

// AllMedia pages through MediaList until a page comes back shorter than the page limit.
func (c *Client) AllMedia(ctx context.Context, query url.Values) ([]Media, error) {
	query = cloneValues(query)

	limit := defaultPageLimit
	if l, err := strconv.Atoi(query.Get("limit")); err == nil && l > 0 {
		limit = l
	}
	query.Set("limit", strconv.Itoa(limit))

	var all []Media
	for page := 1; ; page++ {
		query.Set("page", strconv.Itoa(page))
		media, err := c.MediaList(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		all = append(all, media...)
		c.logger.Debugf("Fetched media page %d (%d items, %d total)", page, len(media), len(all))

		if len(media) < limit {
			return all, nil
		}
	}
}

// MediaTotal returns the number of assets matching query.
func (c *Client) MediaTotal(ctx context.Context, query url.Values) (int, error) {
	query = cloneValues(query)
	query.Set("count", "1")
	query.Set("limit", "1")

	var resp struct {
		Count struct {
			Total int `json:"total"`
		} `json:"count"`
	}
	if err := c.get(ctx, mediaPath, query, &resp); err != nil {
		return 0, fmt.Errorf("count media: %w", err)
	}
	return resp.Count.Total, nil
}

// MediaInfo returns a single asset. query may ask for extra details, e.g. versions=1.
func (c *Client) MediaInfo(ctx context.Context, id string, query url.Values) (Object, error) {
	if err := required("id", id); err != nil {
		return nil, err
	}

	var media Object
	if err := c.get(ctx, mediaPath+url.PathEscape(id)+"/", query, &media); err != nil {
		return nil, fmt.Errorf("get media %s: %w", id, err)
	}
	return media, nil
}

// EditMedia updates the given properties of an asset.
func (c *Client) EditMedia(ctx context.Context, id string, fields url.Values) error {
	if err := required("id", id); err != nil {
		return err
	}

	form := cloneValues(fields)
	form.Set("id", id)
	if err := c.post(ctx, mediaPath, form, nil); err != nil {
		return fmt.Errorf("edit media %s: %w", id, err)
	}
	return nil
}

// DeleteMedia ...
func (c *Client) DeleteMedia(ctx context.Context, id string) error {
	if err := required("id", id); err != nil {
		return err
	}
	if err := c.delete(ctx, mediaPath+url.PathEscape(id)+"/", nil); err != nil {
		return fmt.Errorf("delete media %s: %w", id, err)
	}
	return nil
}

// MediaDownloadURL returns a pre-signed URL of the original file, or of a specific media item
// (e.g. an older version) when itemID is set.
func (c *Client) MediaDownloadURL(ctx context.Context, id, itemID string) (string, error) {
	if err := required("id", id); err != nil {
		return "", err
	}

	path := mediaPath + url.PathEscape(id) + "/download/"
	if itemID != "" {
		path += url.PathEscape(itemID) + "/"
	}

	var resp struct {
		S3File string `json:"s3_file"`
	}
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return "", fmt.Errorf("get download URL of %s: %w", id, err)
	}
	if resp.S3File == "" {
		return "", fmt.Errorf("get download URL of %s: empty URL in response", id)
	}
	return resp.S3File, nil
}

// DownloadMedia downloads the original file of an asset to dest.
func (c *Client) DownloadMedia(ctx context.Context, id, dest string) error {
	if err := required("id", id, "destination", dest); err != nil {
		return err
	}

	downloadURL, err := c.MediaDownloadURL(ctx, id, "")
	if err != nil {
		return err
	}

	c.logger.Debugf("Downloading media %s to %s", id, dest)
	downloader := got.New()
	downloader.Client = c.download

	if err := downloader.Do(got.NewDownload(ctx, downloadURL, dest)); err != nil {
		return fmt.Errorf("download media %s: %w", id, err)
	}
	return nil
}
