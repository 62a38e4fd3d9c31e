// Package errors provides the error taxonomy workers raise to the workflow engine.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ErrorCode is an internal error code. Codes double as BPMN error codes
// unless BPMNErrorMapping says otherwise.
type ErrorCode string

const (
	ErrCodeParseError   ErrorCode = "PARSE_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// Monetization gate
	ErrCodePaymentRequired        ErrorCode = "PAYMENT_REQUIRED"
	ErrCodeInvalidAction          ErrorCode = "INVALID_ACTION"
	ErrCodeEntitlementCheckFailed ErrorCode = "ENTITLEMENT_CHECK_FAILED"

	// Passport generation and persistence
	ErrCodePassportSchemaInvalid ErrorCode = "PASSPORT_SCHEMA_INVALID"
	ErrCodePassportStoreFailed   ErrorCode = "PASSPORT_STORE_FAILED"
	ErrCodeHistoryQueryFailed    ErrorCode = "HISTORY_QUERY_FAILED"
	ErrCodeDatabaseConnection    ErrorCode = "DATABASE_CONNECTION_FAILED"

	// Investor search index
	ErrCodeElasticsearchConnectionFailed ErrorCode = "ELASTICSEARCH_CONNECTION_FAILED"
	ErrCodeIndexFailed                   ErrorCode = "INDEX_FAILED"
	ErrCodeSearchQueryFailed             ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeSearchTimeout                 ErrorCode = "SEARCH_TIMEOUT"
	ErrCodeIndexNotFound                 ErrorCode = "INDEX_NOT_FOUND"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeContactNotFound        ErrorCode = "CONTACT_NOT_FOUND"

	ErrCodeLLMTimeout         ErrorCode = "LLM_TIMEOUT"
	ErrCodeLLMSynthesisFailed ErrorCode = "LLM_SYNTHESIS_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError is the structured error every worker reports.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata returns e with key set in its metadata.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// BPMNError is what gets thrown at the process instance.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns the process variables set alongside a fail or throw command.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

func NewParseError(err error) *StandardError {
	return newError(ErrCodeParseError, "Job variables could not be parsed", err.Error(), false)
}

func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "Job input is invalid", details, false)
}

// NewPaymentRequiredError is raised when no paid, unconsumed entitlement exists.
func NewPaymentRequiredError(businessID, action string) *StandardError {
	return newError(ErrCodePaymentRequired, "Payment required before this action",
		fmt.Sprintf("businessId: %s, action: %s", businessID, action), false)
}

func NewInvalidActionError(action string) *StandardError {
	return newError(ErrCodeInvalidAction, "Unsupported passport action",
		fmt.Sprintf("action: %s", action), false)
}

func NewEntitlementCheckFailedError(err error) *StandardError {
	return newError(ErrCodeEntitlementCheckFailed, "Database error during entitlement check", err.Error(), true)
}

func NewPassportSchemaInvalidError(details string) *StandardError {
	return newError(ErrCodePassportSchemaInvalid, "Passport result failed schema validation", details, false)
}

func NewPassportStoreFailedError(err error) *StandardError {
	return newError(ErrCodePassportStoreFailed, "Passport could not be stored", err.Error(), true)
}

func NewHistoryQueryFailedError(err error) *StandardError {
	return newError(ErrCodeHistoryQueryFailed, "Passport history query failed", err.Error(), true)
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnection, "Database connection error", err.Error(), true)
}

func NewElasticsearchConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeElasticsearchConnectionFailed, "Elasticsearch connection error", err.Error(), true)
}

func NewIndexFailedError(index string, err error) *StandardError {
	return newError(ErrCodeIndexFailed, "Passport could not be indexed",
		fmt.Sprintf("index: %s, error: %s", index, err.Error()), true)
}

func NewSearchQueryFailedError(index string, err error) *StandardError {
	return newError(ErrCodeSearchQueryFailed, "Elasticsearch query error",
		fmt.Sprintf("index: %s, error: %s", index, err.Error()), true)
}

func NewSearchTimeoutError(index string) *StandardError {
	return newError(ErrCodeSearchTimeout, "Elasticsearch request timeout",
		fmt.Sprintf("index: %s", index), true)
}

func NewIndexNotFoundError(index string) *StandardError {
	return newError(ErrCodeIndexNotFound, "Elasticsearch index not found",
		fmt.Sprintf("index: %s", index), false)
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("channel: %s, error: %s", channel, err.Error()), true)
}

func NewContactNotFoundError(businessID string) *StandardError {
	return newError(ErrCodeContactNotFound, "No contact on file for business",
		fmt.Sprintf("businessId: %s", businessID), false)
}

func NewLLMTimeoutError() *StandardError {
	return newError(ErrCodeLLMTimeout, "Narrative provider timeout", "provider call exceeded its deadline", true)
}

func NewLLMSynthesisFailedError(err error) *StandardError {
	return newError(ErrCodeLLMSynthesisFailed, "Narrative provider error", err.Error(), true)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false)
}

// BPMNErrorMapping overrides the BPMN code for internal codes that the
// process models catch under a shared name.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeElasticsearchConnectionFailed: "SEARCH_UNAVAILABLE",
	ErrCodeDatabaseConnection:            "STORAGE_UNAVAILABLE",
}

// GetRetryCount returns how many retries a code earns before it is thrown.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeEntitlementCheckFailed,
		ErrCodePassportStoreFailed,
		ErrCodeHistoryQueryFailed,
		ErrCodeDatabaseConnection,
		ErrCodeElasticsearchConnectionFailed,
		ErrCodeIndexFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeLLMSynthesisFailed:
		return 3

	case ErrCodeSearchTimeout:
		return 2

	case ErrCodeLLMTimeout:
		return 1

	default:
		return 0
	}
}

// ConvertToBPMNError maps a StandardError onto the workflow engine's error shape.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, ok := BPMNErrorMapping[stdErr.Code]
	if !ok {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory buckets a code for logs and dashboards.
func GetErrorCategory(code ErrorCode) string {
	s := string(code)
	switch {
	case strings.Contains(s, "PAYMENT") || strings.Contains(s, "ENTITLEMENT") || s == string(ErrCodeInvalidAction):
		return "MONETIZATION"
	case strings.Contains(s, "PASSPORT") || strings.Contains(s, "HISTORY") || strings.Contains(s, "DATABASE"):
		return "STORAGE"
	case strings.Contains(s, "ELASTICSEARCH") || strings.Contains(s, "SEARCH") || strings.Contains(s, "INDEX"):
		return "SEARCH"
	case strings.Contains(s, "NOTIFICATION") || strings.Contains(s, "CONTACT"):
		return "NOTIFICATION"
	case strings.Contains(s, "LLM"):
		return "AI"
	case strings.Contains(s, "PARSE") || strings.Contains(s, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
