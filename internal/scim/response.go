package scim

import "net/http"

// ProcessList normalizes the response shapes SCIM servers return for
// list operations: a proper ListResponse with a "Resources" array, a
// lowercase "resources" variant, or a bare array. Anything else is a
// validation error naming the resource type.
func ProcessList(body any, resourceType string) ([]Resource, error) {
	var raw []any

	switch v := body.(type) {
	case []any:
		raw = v
	case map[string]any:
		if inner, ok := v["Resources"].([]any); ok {
			raw = inner
		} else if inner, ok := v["resources"].([]any); ok {
			raw = inner
		} else {
			return nil, newValidationError("response", "invalid list response for %s: no Resources array", resourceType)
		}
	default:
		return nil, newValidationError("response", "invalid list response for %s: expected array or list object", resourceType)
	}

	resources := make([]Resource, 0, len(raw))
	for _, item := range raw {
		if obj, ok := item.(map[string]any); ok {
			resources = append(resources, Resource(obj))
		}
	}
	return resources, nil
}

// ProcessSingle requires a non-null JSON object.
func ProcessSingle(body any, resourceType string) (Resource, error) {
	obj, ok := body.(map[string]any)
	if !ok || obj == nil {
		return nil, newValidationError("response", "invalid response for %s: expected a resource object", resourceType)
	}
	return Resource(obj), nil
}

// ProcessErrorResponse builds the typed error for a non-2xx response.
// The human-readable message is taken from detail, message, or error, in
// that order; the SCIM error parser supplies RFC context.
func ProcessErrorResponse(body any, status int) *RequestError {
	message := http.StatusText(status)
	details := map[string]any{}

	if obj, ok := body.(map[string]any); ok {
		if m := firstString(obj, "detail", "message", "error"); m != "" {
			message = m
		}
		if st, ok := obj["scimType"].(string); ok && st != "" {
			details["scimType"] = st
		}
		if schemas, ok := obj["schemas"]; ok {
			details["schemas"] = schemas
		}
	}

	parsed := ParseError(body, status)
	return &RequestError{
		Kind:    KindHTTP,
		Status:  status,
		Message: message,
		Details: details,
		SCIM:    &parsed,
	}
}
