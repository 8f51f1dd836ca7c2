package client

import (
	"context"
	"fmt"
	"net/url"
)

// Tag ...
type Tag struct {
	ID         string `json:"id"`
	Tag        string `json:"tag"`
	MediaCount int    `json:"mediaCount"`
}

// Brand is a brand of the portal, possibly with sub-brands.
type Brand struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Image       string  `json:"image,omitempty"`
	SubBrands   []Brand `json:"subBrands,omitempty"`
}

// Category ...
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Tags returns tags matching query (e.g. limit, page, keyword, orderBy).
func (c *Client) Tags(ctx context.Context, query url.Values) ([]Tag, error) {
	var tags []Tag
	if err := c.get(ctx, "v4/tags/", query, &tags); err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

// Smartfilters returns the smartfilters configured for the portal.
func (c *Client) Smartfilters(ctx context.Context, query url.Values) ([]Object, error) {
	var filters []Object
	if err := c.get(ctx, "v4/smartfilters/", query, &filters); err != nil {
		return nil, fmt.Errorf("list smartfilters: %w", err)
	}
	return filters, nil
}

// Brands ...
func (c *Client) Brands(ctx context.Context) ([]Brand, error) {
	var brands []Brand
	if err := c.get(ctx, "v4/brands/", nil, &brands); err != nil {
		return nil, fmt.Errorf("list brands: %w", err)
	}
	return brands, nil
}

// Categories ...
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := c.get(ctx, "v4/categories/", nil, &categories); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}
