package gateway

import (
	"context"
	"errors"
)

// CreateAPIKey creates a named key. The returned secret is not retrievable
// again.
func (c *Client) CreateAPIKey(ctx context.Context, name string) (*CreatedAPIKey, error) {
	if name == "" {
		return nil, errors.New("api key name is required")
	}
	var resp CreatedAPIKey
	if err := c.call(ctx, apiKeyService+"CreateAPIKey", createAPIKeyRequest{Name: name}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListAPIKeys returns the caller's keys with masked secrets.
func (c *Client) ListAPIKeys(ctx context.Context) ([]APIKey, error) {
	var resp listAPIKeysResponse
	if err := c.call(ctx, apiKeyService+"ListAPIKeys", empty{}, &resp); err != nil {
		return nil, err
	}
	return resp.APIKeys, nil
}

// RenameAPIKey changes a key's display name.
func (c *Client) RenameAPIKey(ctx context.Context, id, name string) (*APIKey, error) {
	if id == "" || name == "" {
		return nil, errors.New("api key id and name are required")
	}
	var resp updateAPIKeyResponse
	if err := c.call(ctx, apiKeyService+"UpdateAPIKey", updateAPIKeyRequest{ID: id, Name: name}, &resp); err != nil {
		return nil, err
	}
	if resp.APIKey == nil {
		return nil, errors.New("backend returned no api key")
	}
	return resp.APIKey, nil
}

// RevokeAPIKey deletes a key.
func (c *Client) RevokeAPIKey(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("api key id is required")
	}
	var resp deleteAPIKeyResponse
	return c.call(ctx, apiKeyService+"DeleteAPIKey", deleteAPIKeyRequest{ID: id}, &resp)
}
