// Package scim implements a SCIM 2.0 (RFC 7643, 7644) client pipeline:
// request construction, allowlist enforcement, response normalization,
// error parsing with RFC context, and request/response logging.
package scim

// Schema URNs per RFC 7643
const (
	SchemaURNUser                  = "urn:ietf:params:scim:schemas:core:2.0:User"
	SchemaURNGroup                 = "urn:ietf:params:scim:schemas:core:2.0:Group"
	SchemaURNRole                  = "urn:ietf:params:scim:schemas:core:2.0:Role"
	SchemaURNEntitlement           = "urn:ietf:params:scim:schemas:core:2.0:Entitlement"
	SchemaURNServiceProviderConfig = "urn:ietf:params:scim:schemas:core:2.0:ServiceProviderConfig"
	SchemaURNResourceType          = "urn:ietf:params:scim:schemas:core:2.0:ResourceType"
	SchemaURNSchema                = "urn:ietf:params:scim:schemas:core:2.0:Schema"
	SchemaURNListResponse          = "urn:ietf:params:scim:api:messages:2.0:ListResponse"
	SchemaURNPatchOp               = "urn:ietf:params:scim:api:messages:2.0:PatchOp"
	SchemaURNError                 = "urn:ietf:params:scim:api:messages:2.0:Error"
)

// ContentTypeSCIM is the media type for SCIM requests and responses.
const ContentTypeSCIM = "application/scim+json"

// Resource type path segments understood by the typed client methods.
const (
	TypeUsers        = "Users"
	TypeGroups       = "Groups"
	TypeRoles        = "Roles"
	TypeEntitlements = "Entitlements"
)

// Resource is an opaque SCIM resource. The client passes resources
// through unmodified except for attaching "schemas" on create and "id"
// on replace; everything else is the server's business.
type Resource map[string]any

// ID returns the server-assigned resource id, if present.
func (r Resource) ID() string {
	id, _ := r["id"].(string)
	return id
}

// schemaURNsByType maps resource type segments to their core schema URN,
// used when a create payload carries no schemas of its own.
var schemaURNsByType = map[string][]string{
	TypeUsers:        {SchemaURNUser},
	TypeGroups:       {SchemaURNGroup},
	TypeRoles:        {SchemaURNRole},
	TypeEntitlements: {SchemaURNEntitlement},
}

// PatchOperation is a single PATCH operation per RFC 7644 Section 3.5.2
type PatchOperation struct {
	Op    string `json:"op"` // add, remove, replace
	Path  string `json:"path,omitempty"`
	Value any    `json:"value,omitempty"`
}

// PatchRequest is a SCIM PATCH request body
type PatchRequest struct {
	Schemas    []string         `json:"schemas"`
	Operations []PatchOperation `json:"Operations"`
}

// Meta contains resource metadata per RFC 7643 Section 3.1
type Meta struct {
	ResourceType string `json:"resourceType,omitempty"`
	Created      string `json:"created,omitempty"`
	LastModified string `json:"lastModified,omitempty"`
	Location     string `json:"location,omitempty"`
	Version      string `json:"version,omitempty"`
}

// ================== Discovery Types ==================

// SupportedConfig indicates whether a feature is supported
type SupportedConfig struct {
	Supported bool `json:"supported"`
}

// BulkConfig describes bulk operation support
type BulkConfig struct {
	Supported      bool `json:"supported"`
	MaxOperations  int  `json:"maxOperations,omitempty"`
	MaxPayloadSize int  `json:"maxPayloadSize,omitempty"`
}

// FilterConfig describes filter support
type FilterConfig struct {
	Supported  bool `json:"supported"`
	MaxResults int  `json:"maxResults,omitempty"`
}

// AuthScheme describes a supported authentication scheme
type AuthScheme struct {
	Type             string `json:"type"`
	Name             string `json:"name"`
	Description      string `json:"description,omitempty"`
	SpecURI          string `json:"specUri,omitempty"`
	DocumentationURI string `json:"documentationUri,omitempty"`
	Primary          bool   `json:"primary,omitempty"`
}

// ServiceProviderConfig describes server capabilities per RFC 7643 Section 5
type ServiceProviderConfig struct {
	Schemas               []string        `json:"schemas"`
	DocumentationURI      string          `json:"documentationUri,omitempty"`
	Patch                 SupportedConfig `json:"patch"`
	Bulk                  BulkConfig      `json:"bulk"`
	Filter                FilterConfig    `json:"filter"`
	ChangePassword        SupportedConfig `json:"changePassword"`
	Sort                  SupportedConfig `json:"sort"`
	ETag                  SupportedConfig `json:"etag"`
	AuthenticationSchemes []AuthScheme    `json:"authenticationSchemes,omitempty"`
	Meta                  *Meta           `json:"meta,omitempty"`
}

// SchemaExtension references an extension schema on a resource type
type SchemaExtension struct {
	Schema   string `json:"schema"`
	Required bool   `json:"required"`
}

// ResourceType describes a resource class per RFC 7643 Section 6
type ResourceType struct {
	Schemas          []string          `json:"schemas,omitempty"`
	ID               string            `json:"id,omitempty"`
	Name             string            `json:"name"`
	Description      string            `json:"description,omitempty"`
	Endpoint         string            `json:"endpoint"`
	Schema           string            `json:"schema"`
	SchemaExtensions []SchemaExtension `json:"schemaExtensions,omitempty"`
	Meta             *Meta             `json:"meta,omitempty"`
}

// Attribute describes a schema attribute per RFC 7643 Section 7
type Attribute struct {
	Name            string      `json:"name"`
	Type            string      `json:"type"`
	MultiValued     bool        `json:"multiValued"`
	Description     string      `json:"description,omitempty"`
	Required        bool        `json:"required"`
	CaseExact       bool        `json:"caseExact,omitempty"`
	Mutability      string      `json:"mutability,omitempty"`
	Returned        string      `json:"returned,omitempty"`
	Uniqueness      string      `json:"uniqueness,omitempty"`
	CanonicalValues []string    `json:"canonicalValues,omitempty"`
	ReferenceTypes  []string    `json:"referenceTypes,omitempty"`
	SubAttributes   []Attribute `json:"subAttributes,omitempty"`
}

// Schema describes a resource schema per RFC 7643 Section 7
type Schema struct {
	Schemas     []string    `json:"schemas,omitempty"`
	ID          string      `json:"id"`
	Name        string      `json:"name,omitempty"`
	Description string      `json:"description,omitempty"`
	Attributes  []Attribute `json:"attributes,omitempty"`
	Meta        *Meta       `json:"meta,omitempty"`
}

// ServerConfig aggregates the three discovery documents.
type ServerConfig struct {
	ServiceProviderConfig *ServiceProviderConfig `json:"serviceProviderConfig"`
	ResourceTypes         []ResourceType         `json:"resourceTypes"`
	Schemas               []Schema               `json:"schemas"`
}
