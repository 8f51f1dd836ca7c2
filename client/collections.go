package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/damkit/go-damclient/upload"
)

const collectionsPath = "v4/collections/"

// Collection groups assets for sharing.
type Collection struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsPublic    int    `json:"isPublic,omitempty"`
	MediaCount  int    `json:"mediaCount,omitempty"`
	UserID      string `json:"userId,omitempty"`
	DateCreated string `json:"dateCreated,omitempty"`
}

// ShareOptions describes who a collection is shared with and how.
type ShareOptions struct {
	Recipients []string
	// Permission is "view" or "edit".
	Permission string
	// Extra holds further options, e.g. loginRequired, dateStart, dateEnd, message.
	Extra url.Values
}

// Collections returns collections matching query (e.g. limit, page, keyword).
func (c *Client) Collections(ctx context.Context, query url.Values) ([]Collection, error) {
	var collections []Collection
	if err := c.get(ctx, collectionsPath, query, &collections); err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return collections, nil
}

// Collection ...
func (c *Client) Collection(ctx context.Context, id string) (*Collection, error) {
	if err := required("id", id); err != nil {
		return nil, err
	}

	var collection Collection
	if err := c.get(ctx, collectionPath(id), nil, &collection); err != nil {
		return nil, fmt.Errorf("get collection %s: %w", id, err)
	}
	return &collection, nil
}

// SaveNewCollection creates a collection named name. fields may carry description or other properties.
func (c *Client) SaveNewCollection(ctx context.Context, name string, fields url.Values) error {
	if err := required("name", name); err != nil {
		return err
	}

	form := cloneValues(fields)
	form.Set("name", name)
	if err := c.post(ctx, collectionsPath, form, nil); err != nil {
		return fmt.Errorf("create collection %q: %w", name, err)
	}
	return nil
}

// ShareCollection ...
func (c *Client) ShareCollection(ctx context.Context, id string, options ShareOptions) error {
	if err := required("id", id, "permission", options.Permission); err != nil {
		return err
	}
	if len(options.Recipients) == 0 {
		return &upload.ValidationError{Field: "recipients", Err: ErrMissingParameter}
	}

	form := cloneValues(options.Extra)
	form.Set("recipients", strings.Join(options.Recipients, ","))
	form.Set("collectionOptions", options.Permission)
	if err := c.post(ctx, collectionPath(id)+"share/", form, nil); err != nil {
		return fmt.Errorf("share collection %s: %w", id, err)
	}
	return nil
}

// AddMediaToCollection ...
func (c *Client) AddMediaToCollection(ctx context.Context, id string, mediaIDs []string) error {
	if err := required("id", id); err != nil {
		return err
	}
	if len(mediaIDs) == 0 {
		return &upload.ValidationError{Field: "mediaIds", Err: ErrMissingParameter}
	}

	form, err := jsonField(mediaIDs)
	if err != nil {
		return err
	}
	if err := c.post(ctx, collectionPath(id)+"media/", form, nil); err != nil {
		return fmt.Errorf("add media to collection %s: %w", id, err)
	}
	return nil
}

// DeleteMediaFromCollection ...
func (c *Client) DeleteMediaFromCollection(ctx context.Context, id string, mediaIDs []string) error {
	if err := required("id", id); err != nil {
		return err
	}
	if len(mediaIDs) == 0 {
		return &upload.ValidationError{Field: "mediaIds", Err: ErrMissingParameter}
	}

	query := url.Values{"deleteIds": {strings.Join(mediaIDs, ",")}}
	if err := c.delete(ctx, collectionPath(id)+"media/", query); err != nil {
		return fmt.Errorf("remove media from collection %s: %w", id, err)
	}
	return nil
}

// CollectionMediaIDs returns the ids of the assets in the collection.
func (c *Client) CollectionMediaIDs(ctx context.Context, id string) ([]string, error) {
	if err := required("id", id); err != nil {
		return nil, err
	}

	var ids []string
	if err := c.get(ctx, collectionPath(id)+"media/", nil, &ids); err != nil {
		return nil, fmt.Errorf("list media of collection %s: %w", id, err)
	}
	return ids, nil
}

func collectionPath(id string) string {
	return collectionsPath + url.PathEscape(id) + "/"
}
