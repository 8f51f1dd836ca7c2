package client

import (
	"context"
	"fmt"
	"net/url"
	"sort"
)

const metapropertiesPath = "v4/metaproperties/"

// Metaproperty is a custom property assets can be tagged with.
type Metaproperty struct {
	ID               string               `json:"id"`
	Name             string               `json:"name"`
	Label            string               `json:"label"`
	Type             string               `json:"type,omitempty"`
	IsMultiSelect    bool                 `json:"isMultiselect,omitempty"`
	IsRequired       bool                 `json:"isRequired,omitempty"`
	IsFilterable     bool                 `json:"isFilterable,omitempty"`
	ZIndex           int                  `json:"zindex,omitempty"`
	Options          []MetapropertyOption `json:"options,omitempty"`
	DefaultOptionIDs []string             `json:"defaultOptionIds,omitempty"`
}

// MetapropertyOption ...
type MetapropertyOption struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Label          string `json:"label"`
	MetapropertyID string `json:"metapropertyId,omitempty"`
	ZIndex         int    `json:"zindex,omitempty"`
}

// Metaproperties returns every metaproperty ordered by name. The API answers with an object keyed by name.
func (c *Client) Metaproperties(ctx context.Context, query url.Values) ([]Metaproperty, error) {
	var byName map[string]Metaproperty
	if err := c.get(ctx, metapropertiesPath, query, &byName); err != nil {
		return nil, fmt.Errorf("list metaproperties: %w", err)
	}

	metaproperties := make([]Metaproperty, 0, len(byName))
	for _, mp := range byName {
		metaproperties = append(metaproperties, mp)
	}
	sort.Slice(metaproperties, func(i, j int) bool {
		return metaproperties[i].Name < metaproperties[j].Name
	})
	return metaproperties, nil
}

// Metaproperty ...
func (c *Client) Metaproperty(ctx context.Context, id string) (*Metaproperty, error) {
	if err := required("id", id); err != nil {
		return nil, err
	}

	var mp Metaproperty
	if err := c.get(ctx, metapropertyPath(id), nil, &mp); err != nil {
		return nil, fmt.Errorf("get metaproperty %s: %w", id, err)
	}
	return &mp, nil
}

// SaveNewMetaproperty creates a metaproperty from data, a JSON-encodable description of it.
func (c *Client) SaveNewMetaproperty(ctx context.Context, data interface{}) (Object, error) {
	form, err := jsonField(data)
	if err != nil {
		return nil, err
	}

	var created Object
	if err := c.post(ctx, metapropertiesPath, form, &created); err != nil {
		return nil, fmt.Errorf("create metaproperty: %w", err)
	}
	return created, nil
}

// EditMetaproperty ...
func (c *Client) EditMetaproperty(ctx context.Context, id string, data interface{}) error {
	if err := required("id", id); err != nil {
		return err
	}
	form, err := jsonField(data)
	if err != nil {
		return err
	}

	if err := c.post(ctx, metapropertyPath(id), form, nil); err != nil {
		return fmt.Errorf("edit metaproperty %s: %w", id, err)
	}
	return nil
}

// DeleteMetaproperty ...
func (c *Client) DeleteMetaproperty(ctx context.Context, id string) error {
	if err := required("id", id); err != nil {
		return err
	}
	if err := c.delete(ctx, metapropertyPath(id), nil); err != nil {
		return fmt.Errorf("delete metaproperty %s: %w", id, err)
	}
	return nil
}

// MetapropertyOptions returns options across metaproperties, filtered by query (e.g. ids, name).
func (c *Client) MetapropertyOptions(ctx context.Context, query url.Values) ([]MetapropertyOption, error) {
	var options []MetapropertyOption
	if err := c.get(ctx, metapropertiesPath+"options/", query, &options); err != nil {
		return nil, fmt.Errorf("list metaproperty options: %w", err)
	}
	return options, nil
}

// SaveNewMetapropertyOption adds an option to the metaproperty.
func (c *Client) SaveNewMetapropertyOption(ctx context.Context, metapropertyID string, data interface{}) (Object, error) {
	if err := required("metapropertyId", metapropertyID); err != nil {
		return nil, err
	}
	form, err := jsonField(data)
	if err != nil {
		return nil, err
	}

	var created Object
	if err := c.post(ctx, metapropertyPath(metapropertyID)+"options/", form, &created); err != nil {
		return nil, fmt.Errorf("create option of metaproperty %s: %w", metapropertyID, err)
	}
	return created, nil
}

// EditMetapropertyOption ...
func (c *Client) EditMetapropertyOption(ctx context.Context, metapropertyID, optionID string, data interface{}) error {
	if err := required("metapropertyId", metapropertyID, "optionId", optionID); err != nil {
		return err
	}
	form, err := jsonField(data)
	if err != nil {
		return err
	}

	if err := c.post(ctx, optionPath(metapropertyID, optionID), form, nil); err != nil {
		return fmt.Errorf("edit option %s of metaproperty %s: %w", optionID, metapropertyID, err)
	}
	return nil
}

// DeleteMetapropertyOption ...
func (c *Client) DeleteMetapropertyOption(ctx context.Context, metapropertyID, optionID string) error {
	if err := required("metapropertyId", metapropertyID, "optionId", optionID); err != nil {
		return err
	}
	if err := c.delete(ctx, optionPath(metapropertyID, optionID), nil); err != nil {
		return fmt.Errorf("delete option %s of metaproperty %s: %w", optionID, metapropertyID, err)
	}
	return nil
}

func metapropertyPath(id string) string {
	return metapropertiesPath + url.PathEscape(id) + "/"
}

func optionPath(metapropertyID, optionID string) string {
	return metapropertyPath(metapropertyID) + "options/" + url.PathEscape(optionID) + "/"
}
