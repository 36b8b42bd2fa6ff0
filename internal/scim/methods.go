package scim

import (
	"context"
	"net/http"
	"net/url"
)

// ================== Generic Resource Primitives ==================

// ListResources fetches /{resourceType} and normalizes the list shape.
func (c *Client) ListResources(ctx context.Context, resourceType string, params map[string]string) ([]Resource, error) {
	if resourceType == "" {
		return nil, newValidationError("resourceType", "resource type is required")
	}
	body, err := c.Do(ctx, http.MethodGet, "/"+resourceType, params, nil)
	if err != nil {
		return nil, err
	}
	return ProcessList(body, resourceType)
}

// GetResource fetches /{resourceType}/{id}.
func (c *Client) GetResource(ctx context.Context, resourceType, id string) (Resource, error) {
	if err := requireID(resourceType, id); err != nil {
		return nil, err
	}
	body, err := c.Do(ctx, http.MethodGet, resourcePath(resourceType, id), nil, nil)
	if err != nil {
		return nil, err
	}
	return ProcessSingle(body, resourceType)
}

// CreateResource posts a new resource, attaching the core schema URN
// when the payload carries no schemas of its own.
func (c *Client) CreateResource(ctx context.Context, resourceType string, attrs Resource) (Resource, error) {
	if attrs == nil {
		return nil, newValidationError("body", "%s payload is required", resourceType)
	}
	payload := attrs
	if _, ok := payload["schemas"]; !ok {
		if urns, ok := schemaURNsByType[resourceType]; ok {
			payload = copyResource(attrs)
			payload["schemas"] = urns
		}
	}
	body, err := c.Do(ctx, http.MethodPost, "/"+resourceType, nil, payload)
	if err != nil {
		return nil, err
	}
	return ProcessSingle(body, resourceType)
}

// ReplaceResource PUTs a full resource, attaching the id.
func (c *Client) ReplaceResource(ctx context.Context, resourceType, id string, attrs Resource) (Resource, error) {
	if err := requireID(resourceType, id); err != nil {
		return nil, err
	}
	if attrs == nil {
		return nil, newValidationError("body", "%s payload is required", resourceType)
	}
	payload := copyResource(attrs)
	payload["id"] = id
	body, err := c.Do(ctx, http.MethodPut, resourcePath(resourceType, id), nil, payload)
	if err != nil {
		return nil, err
	}
	return ProcessSingle(body, resourceType)
}

// PatchResource applies PATCH operations per RFC 7644 Section 3.5.2.
func (c *Client) PatchResource(ctx context.Context, resourceType, id string, ops []PatchOperation) (Resource, error) {
	if err := requireID(resourceType, id); err != nil {
		return nil, err
	}
	if len(ops) == 0 {
		return nil, newValidationError("operations", "at least one patch operation is required")
	}
	patch := PatchRequest{
		Schemas:    []string{SchemaURNPatchOp},
		Operations: ops,
	}
	body, err := c.Do(ctx, http.MethodPatch, resourcePath(resourceType, id), nil, patch)
	if err != nil {
		return nil, err
	}
	return ProcessSingle(body, resourceType)
}

// DeleteResource deletes /{resourceType}/{id}. A 204 with an empty body
// is the expected success shape.
func (c *Client) DeleteResource(ctx context.Context, resourceType, id string) error {
	if err := requireID(resourceType, id); err != nil {
		return err
	}
	_, err := c.Do(ctx, http.MethodDelete, resourcePath(resourceType, id), nil, nil)
	return err
}

func requireID(resourceType, id string) error {
	if id == "" {
		return newValidationError("id", "%s id is required", resourceType)
	}
	return nil
}

func resourcePath(resourceType, id string) string {
	return "/" + resourceType + "/" + url.PathEscape(id)
}

func copyResource(r Resource) Resource {
	out := make(Resource, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ================== User Operations ==================

func (c *Client) ListUsers(ctx context.Context, params map[string]string) ([]Resource, error) {
	return c.ListResources(ctx, TypeUsers, params)
}

func (c *Client) GetUser(ctx context.Context, id string) (Resource, error) {
	return c.GetResource(ctx, TypeUsers, id)
}

func (c *Client) CreateUser(ctx context.Context, user Resource) (Resource, error) {
	return c.CreateResource(ctx, TypeUsers, user)
}

func (c *Client) ReplaceUser(ctx context.Context, id string, user Resource) (Resource, error) {
	return c.ReplaceResource(ctx, TypeUsers, id, user)
}

func (c *Client) PatchUser(ctx context.Context, id string, ops []PatchOperation) (Resource, error) {
	return c.PatchResource(ctx, TypeUsers, id, ops)
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.DeleteResource(ctx, TypeUsers, id)
}

// ================== Group Operations ==================

func (c *Client) ListGroups(ctx context.Context, params map[string]string) ([]Resource, error) {
	return c.ListResources(ctx, TypeGroups, params)
}

func (c *Client) GetGroup(ctx context.Context, id string) (Resource, error) {
	return c.GetResource(ctx, TypeGroups, id)
}

func (c *Client) CreateGroup(ctx context.Context, group Resource) (Resource, error) {
	return c.CreateResource(ctx, TypeGroups, group)
}

func (c *Client) ReplaceGroup(ctx context.Context, id string, group Resource) (Resource, error) {
	return c.ReplaceResource(ctx, TypeGroups, id, group)
}

func (c *Client) PatchGroup(ctx context.Context, id string, ops []PatchOperation) (Resource, error) {
	return c.PatchResource(ctx, TypeGroups, id, ops)
}

func (c *Client) DeleteGroup(ctx context.Context, id string) error {
	return c.DeleteResource(ctx, TypeGroups, id)
}

// ================== Role Operations ==================

func (c *Client) ListRoles(ctx context.Context, params map[string]string) ([]Resource, error) {
	return c.ListResources(ctx, TypeRoles, params)
}

func (c *Client) GetRole(ctx context.Context, id string) (Resource, error) {
	return c.GetResource(ctx, TypeRoles, id)
}

func (c *Client) CreateRole(ctx context.Context, role Resource) (Resource, error) {
	return c.CreateResource(ctx, TypeRoles, role)
}

func (c *Client) ReplaceRole(ctx context.Context, id string, role Resource) (Resource, error) {
	return c.ReplaceResource(ctx, TypeRoles, id, role)
}

func (c *Client) PatchRole(ctx context.Context, id string, ops []PatchOperation) (Resource, error) {
	return c.PatchResource(ctx, TypeRoles, id, ops)
}

func (c *Client) DeleteRole(ctx context.Context, id string) error {
	return c.DeleteResource(ctx, TypeRoles, id)
}

// ================== Entitlement Operations ==================

func (c *Client) ListEntitlements(ctx context.Context, params map[string]string) ([]Resource, error) {
	return c.ListResources(ctx, TypeEntitlements, params)
}

func (c *Client) GetEntitlement(ctx context.Context, id string) (Resource, error) {
	return c.GetResource(ctx, TypeEntitlements, id)
}

func (c *Client) CreateEntitlement(ctx context.Context, entitlement Resource) (Resource, error) {
	return c.CreateResource(ctx, TypeEntitlements, entitlement)
}

func (c *Client) ReplaceEntitlement(ctx context.Context, id string, entitlement Resource) (Resource, error) {
	return c.ReplaceResource(ctx, TypeEntitlements, id, entitlement)
}

func (c *Client) PatchEntitlement(ctx context.Context, id string, ops []PatchOperation) (Resource, error) {
	return c.PatchResource(ctx, TypeEntitlements, id, ops)
}

func (c *Client) DeleteEntitlement(ctx context.Context, id string) error {
	return c.DeleteResource(ctx, TypeEntitlements, id)
}
