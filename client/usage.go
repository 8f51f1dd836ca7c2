package client

import (
	"context"
	"fmt"
	"net/url"
)

const usagePath = "media/usage/"

// AssetUsage records where an integration uses an asset.
type AssetUsage struct {
	ID            string `json:"id,omitempty"`
	AssetID       string `json:"asset_id"`
	IntegrationID string `json:"integration_id"`
	URI           string `json:"uri,omitempty"`
	Timestamp     string `json:"timestamp,omitempty"`
	Additional    string `json:"additional,omitempty"`
}

// AssetUsage lists the recorded usages of an asset.
func (c *Client) AssetUsage(ctx context.Context, assetID string) ([]AssetUsage, error) {
	if err := required("assetId", assetID); err != nil {
		return nil, err
	}

	var usages []AssetUsage
	if err := c.get(ctx, usagePath, url.Values{"asset_id": {assetID}}, &usages); err != nil {
		return nil, fmt.Errorf("list usage of asset %s: %w", assetID, err)
	}
	return usages, nil
}

// SaveNewAssetUsage ...
func (c *Client) SaveNewAssetUsage(ctx context.Context, usage AssetUsage) (Object, error) {
	if err := required("assetId", usage.AssetID, "integrationId", usage.IntegrationID); err != nil {
		return nil, err
	}

	form := url.Values{
		"asset_id":       {usage.AssetID},
		"integration_id": {usage.IntegrationID},
	}
	for key, value := range map[string]string{"uri": usage.URI, "timestamp": usage.Timestamp, "additional": usage.Additional} {
		if value != "" {
			form.Set(key, value)
		}
	}

	var created Object
	if err := c.post(ctx, usagePath, form, &created); err != nil {
		return nil, fmt.Errorf("record usage of asset %s: %w", usage.AssetID, err)
	}
	return created, nil
}

// DeleteAssetUsage removes the usage of an asset by an integration, optionally limited to uri.
func (c *Client) DeleteAssetUsage(ctx context.Context, assetID, integrationID, uri string) error {
	if err := required("assetId", assetID, "integrationId", integrationID); err != nil {
		return err
	}

	query := url.Values{"asset_id": {assetID}, "integration_id": {integrationID}}
	if uri != "" {
		query.Set("uri", uri)
	}
	if err := c.delete(ctx, usagePath, query); err != nil {
		return fmt.Errorf("delete usage of asset %s: %w", assetID, err)
	}
	return nil
}
