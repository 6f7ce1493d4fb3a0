package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/extkit/internal/domain/extension"
)

// Error codes for categorization.
const (
	ErrCodeConfigParse       = "CONFIG_PARSE"
	ErrCodeConfigInvalid     = "CONFIG_INVALID"
	ErrCodeFileNotFound      = "FILE_NOT_FOUND"
	ErrCodeValidationFailed  = "VALIDATION_FAILED"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeSecurityViolation = "SECURITY_VIOLATION"
	ErrCodeNetwork           = "NETWORK"
	ErrCodeDecode            = "DECODE"
)

// UserError represents a user-friendly error with actionable suggestions.
type UserError struct {
	Code       string // Error code for categorization (e.g., "SECURITY_VIOLATION")
	Message    string // User-friendly error message
	Context    string // File path, URL or id the error refers to
	Suggestion string // Actionable suggestion to fix the error
	Underlying error  // Wrapped error for error chain
}

// Error returns the formatted error message.
func (e *UserError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s (at %s)", e.Message, e.Context)
	}
	return e.Message
}

// Unwrap returns the underlying error for error chain support.
func (e *UserError) Unwrap() error {
	return e.Underlying
}

// Is supports errors.Is() for comparing error codes.
func (e *UserError) Is(target error) bool {
	if t, ok := target.(*UserError); ok {
		return e.Code == t.Code
	}
	return false
}

// Format returns a fully formatted error with all details.
func (e *UserError) Format() string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.Context != "" {
		fmt.Fprintf(&b, "\n  Location: %s", e.Context)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "\n  Suggestion: %s", e.Suggestion)
	}

	return b.String()
}

// NewUserError creates a new UserError with the given code and message.
func NewUserError(code, message string) *UserError {
	return &UserError{
		Code:    code,
		Message: message,
	}
}

// WithContext returns a copy with context set.
func (e *UserError) WithContext(ctx string) *UserError {
	c := *e
	c.Context = ctx
	return &c
}

// WithSuggestion returns a copy with suggestion set.
func (e *UserError) WithSuggestion(suggestion string) *UserError {
	c := *e
	c.Suggestion = suggestion
	return &c
}

// IsUserError checks if an error is a UserError with a specific code.
func IsUserError(err error, code string) bool {
	var ue *UserError
	if errors.As(err, &ue) {
		return ue.Code == code
	}
	return false
}

// GetUserError extracts a UserError from an error chain, if present.
func GetUserError(err error) *UserError {
	var ue *UserError
	if errors.As(err, &ue) {
		return ue
	}
	return nil
}

// NewYAMLParseError translates YAML errors into user-friendly messages.
func NewYAMLParseError(path string, err error) *UserError {
	errStr := err.Error()
	var message, suggestion string

	switch {
	case strings.Contains(errStr, "time: invalid duration"):
		message = "invalid duration"
		suggestion = `Durations use Go syntax, for example "30s" or "2m".`
	case strings.Contains(errStr, "cannot unmarshal !!seq into"):
		message = "expected an object but found a list"
		suggestion = "Check that you're using 'key: value' format instead of '- item' list format."
	case strings.Contains(errStr, "cannot unmarshal !!str into"):
		message = "unexpected string value"
		suggestion = "Check that numbers and booleans are not quoted."
	case strings.Contains(errStr, "found character that cannot start"):
		message = "invalid character in YAML"
		suggestion = "Quote string values that contain special characters like ':', '#', or '{'."
	default:
		message = "invalid YAML syntax"
		suggestion = "Check your YAML syntax. Common issues: incorrect indentation, missing colons, or unquoted special characters."
	}

	context := path
	if parts := strings.SplitN(errStr, "line ", 2); len(parts) == 2 {
		context = fmt.Sprintf("%s (line %s)", path, strings.Split(parts[1], ":")[0])
	}

	return &UserError{
		Code:       ErrCodeConfigParse,
		Message:    message,
		Context:    context,
		Suggestion: suggestion,
		Underlying: err,
	}
}

// Explain converts a domain error into a UserError with a suggestion. Errors
// that are already UserErrors are returned unchanged; unknown errors are
// returned as is.
func Explain(err error) error {
	if err == nil {
		return nil
	}
	if ue := GetUserError(err); ue != nil {
		return ue
	}

	var (
		ioErr     *extension.IOError
		decodeErr *extension.DecodeError
		valErr    *extension.ValidationError
		notFound  *extension.NotFoundError
		netErr    *extension.NetworkError
		secErr    *extension.SecurityError
	)
	switch {
	case errors.As(err, &secErr):
		return &UserError{
			Code:       ErrCodeSecurityViolation,
			Message:    secErr.Reason,
			Suggestion: securitySuggestion(secErr.Reason),
			Underlying: err,
		}
	case errors.As(err, &valErr):
		return &UserError{
			Code:       ErrCodeValidationFailed,
			Message:    valErr.Reason,
			Underlying: err,
		}
	case errors.As(err, &notFound):
		return &UserError{
			Code:       ErrCodeNotFound,
			Message:    fmt.Sprintf("%s not found", notFound.Kind),
			Context:    notFound.ID,
			Suggestion: notFoundSuggestion(notFound.Kind),
			Underlying: err,
		}
	case errors.As(err, &netErr):
		ue := &UserError{
			Code:       ErrCodeNetwork,
			Message:    "catalog request failed",
			Context:    netErr.URL,
			Suggestion: "Check the source URL and your network connection, then retry.",
			Underlying: err,
		}
		if netErr.StatusCode != 0 {
			ue.Message = fmt.Sprintf("catalog returned status %d", netErr.StatusCode)
		}
		return ue
	case errors.As(err, &decodeErr):
		return &UserError{
			Code:       ErrCodeDecode,
			Message:    "malformed JSON document",
			Suggestion: "The catalog or manifest did not return valid JSON.",
			Underlying: err,
		}
	case errors.As(err, &ioErr):
		return &UserError{
			Code:       ErrCodeFileNotFound,
			Message:    "cannot read file",
			Context:    ioErr.Path,
			Suggestion: "Check that the path exists and is readable.",
			Underlying: err,
		}
	default:
		return err
	}
}

func securitySuggestion(reason string) string {
	switch {
	case reason == "Checksum mismatch":
		return "The package does not match the checksum the catalog declared. Do not install it; report it to the catalog owner."
	case reason == "Custom sources must use HTTPS":
		return "Use an https:// URL for custom sources."
	case strings.HasPrefix(reason, "Blocked domain"):
		return "Custom sources may not point at local or private network addresses."
	case strings.HasPrefix(reason, "Dangerous permission"):
		return "Extensions from a store may not request filesystem or native access."
	default:
		return ""
	}
}

func notFoundSuggestion(kind string) string {
	if kind == "source" {
		return "Run 'extkit source list' to see configured sources."
	}
	return "Run 'extkit list' to see installed extensions."
}
