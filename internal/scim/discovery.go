package scim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// GetServiceProviderConfig retrieves the server's capability document.
func (c *Client) GetServiceProviderConfig(ctx context.Context) (*ServiceProviderConfig, error) {
	body, err := c.Do(ctx, http.MethodGet, "/ServiceProviderConfig", nil, nil)
	if err != nil {
		return nil, err
	}
	var cfg ServiceProviderConfig
	if err := decodeInto(body, &cfg); err != nil {
		return nil, newValidationError("response", "invalid ServiceProviderConfig: %v", err)
	}
	return &cfg, nil
}

// GetResourceTypes retrieves the supported resource types.
func (c *Client) GetResourceTypes(ctx context.Context) ([]ResourceType, error) {
	body, err := c.Do(ctx, http.MethodGet, "/ResourceTypes", nil, nil)
	if err != nil {
		return nil, err
	}
	resources, err := ProcessList(body, "ResourceTypes")
	if err != nil {
		return nil, err
	}
	types := make([]ResourceType, 0, len(resources))
	for _, r := range resources {
		var rt ResourceType
		if err := decodeInto(r, &rt); err == nil {
			types = append(types, rt)
		}
	}
	return types, nil
}

// GetSchemas retrieves the server's attribute schemas.
func (c *Client) GetSchemas(ctx context.Context) ([]Schema, error) {
	body, err := c.Do(ctx, http.MethodGet, "/Schemas", nil, nil)
	if err != nil {
		return nil, err
	}
	resources, err := ProcessList(body, "Schemas")
	if err != nil {
		return nil, err
	}
	schemas := make([]Schema, 0, len(resources))
	for _, r := range resources {
		var s Schema
		if err := decodeInto(r, &s); err == nil {
			schemas = append(schemas, s)
		}
	}
	return schemas, nil
}

// GetServerConfig fetches the three discovery documents concurrently.
// Each request races its own timeout; the first failure is reported but
// all three are awaited.
func (c *Client) GetServerConfig(ctx context.Context) (*ServerConfig, error) {
	var (
		wg                      sync.WaitGroup
		spc                     *ServiceProviderConfig
		types                   []ResourceType
		schemas                 []Schema
		spcErr, typeErr, schErr error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		spc, spcErr = c.GetServiceProviderConfig(ctx)
	}()
	go func() {
		defer wg.Done()
		types, typeErr = c.GetResourceTypes(ctx)
	}()
	go func() {
		defer wg.Done()
		schemas, schErr = c.GetSchemas(ctx)
	}()
	wg.Wait()

	if err := errors.Join(spcErr, typeErr, schErr); err != nil {
		return nil, fmt.Errorf("server discovery failed: %w", err)
	}

	return &ServerConfig{
		ServiceProviderConfig: spc,
		ResourceTypes:         types,
		Schemas:               schemas,
	}, nil
}

// decodeInto remarshals a decoded JSON value into a typed struct.
func decodeInto(v any, out any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
