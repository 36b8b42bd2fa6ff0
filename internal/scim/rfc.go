package scim

import "fmt"

// ErrorCode is a normalized SCIM error code. Codes defined by RFC 7644
// Section 3.12 are carried verbatim; the remaining values normalize HTTP
// statuses that SCIM servers return without a scimType.
type ErrorCode string

const (
	CodeUnknown            ErrorCode = ""
	CodeInvalidFilter      ErrorCode = "invalidFilter"
	CodeTooMany            ErrorCode = "tooMany"
	CodeUniqueness         ErrorCode = "uniqueness"
	CodeMutability         ErrorCode = "mutability"
	CodeInvalidSyntax      ErrorCode = "invalidSyntax"
	CodeInvalidPath        ErrorCode = "invalidPath"
	CodeNoTarget           ErrorCode = "noTarget"
	CodeInvalidValue       ErrorCode = "invalidValue"
	CodeInvalidVers        ErrorCode = "invalidVers"
	CodeSensitive          ErrorCode = "sensitive"
	CodeAuthentication     ErrorCode = "authentication"
	CodeRateLimit          ErrorCode = "rateLimit"
	CodeServerError        ErrorCode = "serverError"
	CodeNotImplemented     ErrorCode = "notImplemented"
	CodeServiceUnavailable ErrorCode = "serviceUnavailable"
)

// knownCodes maps wire scimType strings to the enum, so arbitrary server
// strings degrade to CodeUnknown instead of leaking free-form values.
var knownCodes = map[string]ErrorCode{
	string(CodeInvalidFilter):      CodeInvalidFilter,
	string(CodeTooMany):            CodeTooMany,
	string(CodeUniqueness):         CodeUniqueness,
	string(CodeMutability):         CodeMutability,
	string(CodeInvalidSyntax):      CodeInvalidSyntax,
	string(CodeInvalidPath):        CodeInvalidPath,
	string(CodeNoTarget):           CodeNoTarget,
	string(CodeInvalidValue):       CodeInvalidValue,
	string(CodeInvalidVers):        CodeInvalidVers,
	string(CodeSensitive):          CodeSensitive,
	string(CodeAuthentication):     CodeAuthentication,
	string(CodeRateLimit):          CodeRateLimit,
	string(CodeServerError):        CodeServerError,
	string(CodeNotImplemented):     CodeNotImplemented,
	string(CodeServiceUnavailable): CodeServiceUnavailable,
}

// RFCContext cites the part of the SCIM specification an error relates
// to, with a suggested remediation or the common causes when only the
// HTTP status is known.
type RFCContext struct {
	Section      string   `json:"section"`
	Description  string   `json:"description"`
	Solution     string   `json:"solution,omitempty"`
	CommonCauses []string `json:"commonCauses,omitempty"`
}

// ParsedError is the normalized view of a SCIM error response.
type ParsedError struct {
	Code     ErrorCode   `json:"scimCode"`
	ScimType string      `json:"scimType,omitempty"`
	Detail   string      `json:"detail,omitempty"`
	Status   int         `json:"statusCode"`
	Context  *RFCContext `json:"rfcContext,omitempty"`
	Raw      any         `json:"rawError,omitempty"`
}

// statusMapping normalizes an HTTP status with no scimType of its own.
type statusMapping struct {
	code         ErrorCode
	description  string
	commonCauses []string
}

var statusMappings = map[int]statusMapping{
	400: {CodeInvalidSyntax, "The request body or parameters were malformed.",
		[]string{"Invalid JSON in the request body", "Missing required attributes", "Malformed filter expression"}},
	401: {CodeAuthentication, "The request lacked valid authentication credentials.",
		[]string{"Missing or expired bearer token", "API key not configured", "Credentials revoked on the server"}},
	403: {CodeSensitive, "The authenticated client may not perform this operation.",
		[]string{"Token lacks the required scope", "Operation forbidden for this resource"}},
	404: {CodeNoTarget, "The requested resource or endpoint does not exist.",
		[]string{"Resource was deleted", "Wrong resource id", "Endpoint path not supported by this server"}},
	409: {CodeUniqueness, "The request conflicts with an existing resource.",
		[]string{"userName or displayName already in use", "Concurrent create of the same resource"}},
	412: {CodeInvalidVers, "The resource version precondition failed.",
		[]string{"Stale ETag in If-Match", "Resource modified by another client"}},
	413: {CodeTooMany, "The request payload exceeds what the server accepts.",
		[]string{"Bulk payload too large", "Filter would match too many results"}},
	422: {CodeInvalidValue, "An attribute value was rejected by the server.",
		[]string{"Value violates the attribute's type or canonical values", "Read-only attribute in the payload"}},
	429: {CodeRateLimit, "The server is throttling this client.",
		[]string{"Too many requests in a short window", "Provisioning burst exceeded server limits"}},
	500: {CodeServerError, "The server failed to process a valid request.",
		[]string{"Unhandled server-side exception", "Backend storage unavailable"}},
	501: {CodeNotImplemented, "The server does not implement this operation.",
		[]string{"PATCH or Bulk unsupported", "Resource type not provisioned on this server"}},
	503: {CodeServiceUnavailable, "The server is temporarily unable to serve requests.",
		[]string{"Maintenance window", "Upstream identity store down"}},
}

// rfcContexts maps SCIM error codes to their RFC citation. Codes absent
// here (the HTTP-status normalizations) fall back to the status table.
var rfcContexts = map[ErrorCode]RFCContext{
	CodeInvalidFilter: {
		Section:     "RFC 7644 Section 3.4.2.2",
		Description: "The specified filter syntax was invalid, or the attribute and comparison combination is not supported.",
		Solution:    "Check the filter expression against the server's supported filter grammar and attribute names.",
	},
	CodeTooMany: {
		Section:     "RFC 7644 Section 3.4.2.2",
		Description: "The filter yields more results than the server is willing to calculate or process.",
		Solution:    "Narrow the filter or page through results with startIndex and count.",
	},
	CodeUniqueness: {
		Section:     "RFC 7644 Section 3.3",
		Description: "One or more attribute values are already in use or reserved; uniqueness constraints are enforced server-side.",
		Solution:    "Choose a different value for the conflicting unique attribute (typically userName).",
	},
	CodeMutability: {
		Section:     "RFC 7643 Section 7",
		Description: "The attempted modification is incompatible with the target attribute's mutability (readOnly or immutable).",
		Solution:    "Remove read-only and immutable attributes from the update payload.",
	},
	CodeInvalidSyntax: {
		Section:     "RFC 7644 Section 3.1",
		Description: "The request body message structure was invalid or did not conform to the request schema.",
		Solution:    "Validate the request JSON against the resource schema, including the schemas attribute.",
	},
	CodeInvalidPath: {
		Section:     "RFC 7644 Section 3.5.2",
		Description: "The PATCH operation path attribute was invalid or malformed.",
		Solution:    "Use a valid attribute path, e.g. emails[type eq \"work\"].value.",
	},
	CodeNoTarget: {
		Section:     "RFC 7644 Section 3.5.2",
		Description: "The specified path did not yield an attribute or resource that could be operated on; the target does not exist.",
		Solution:    "Verify the resource id and, for PATCH, that the path selects an existing attribute value.",
	},
	CodeInvalidValue: {
		Section:     "RFC 7644 Section 3.5.2",
		Description: "A required value was missing, or the supplied value was not compatible with the attribute's type or canonical values.",
		Solution:    "Check the attribute's type, required flag, and canonical values in the server's schema.",
	},
	CodeInvalidVers: {
		Section:     "RFC 7644 Section 3.14",
		Description: "The specified SCIM protocol version is not supported, or the resource version precondition failed.",
		Solution:    "Refetch the resource to obtain its current ETag before retrying the conditional request.",
	},
	CodeSensitive: {
		Section:     "RFC 7644 Section 7.5.2",
		Description: "The specified request cannot be completed because it would reveal or transmit sensitive information.",
		Solution:    "Avoid placing sensitive values (such as passwords) in URIs; use the request body instead.",
	},
}

// ParseError normalizes a SCIM error body and HTTP status into a
// ParsedError. It never fails: a fully unrecognized error still yields a
// result, with a nil Context.
func ParseError(body any, status int) ParsedError {
	parsed := ParsedError{Status: status, Raw: body}

	if obj, ok := body.(map[string]any); ok {
		if st, ok := obj["scimType"].(string); ok && st != "" {
			parsed.ScimType = st
		} else if sc, ok := obj["scimCode"].(string); ok && sc != "" {
			parsed.ScimType = sc
		}
		parsed.Detail = firstString(obj, "detail", "message", "error")
	}

	if parsed.ScimType != "" {
		// An unrecognized scimType stays CodeUnknown rather than being
		// second-guessed from the status.
		if code, ok := knownCodes[parsed.ScimType]; ok {
			parsed.Code = code
		}
	} else if m, ok := statusMappings[status]; ok {
		parsed.Code = m.code
	}

	if parsed.Code != CodeUnknown {
		if ctx, ok := rfcContexts[parsed.Code]; ok {
			c := ctx
			parsed.Context = &c
		}
	}
	if parsed.Context == nil {
		if m, ok := statusMappings[status]; ok {
			parsed.Context = &RFCContext{
				Section:      fmt.Sprintf("HTTP %d", status),
				Description:  m.description,
				CommonCauses: m.commonCauses,
			}
		}
	}

	return parsed
}

// firstString returns the first non-empty string value among keys.
func firstString(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
