package errors

import (
	"fmt"
	"strings"
	"time"
)

type ErrorCode string

const (
	// Pipeline input
	ErrCodeInputTooLong    ErrorCode = "INPUT_TOO_LONG"
	ErrCodeInvalidJobInput ErrorCode = "INVALID_JOB_INPUT"

	// Language model
	ErrCodeModelResponseMalformed ErrorCode = "MODEL_RESPONSE_MALFORMED"
	ErrCodeLLMTimeout             ErrorCode = "LLM_TIMEOUT"
	ErrCodeLLMCompletionFailed    ErrorCode = "LLM_COMPLETION_FAILED"
	ErrCodeTitleGenerationFailed  ErrorCode = "TITLE_GENERATION_FAILED"

	// Target database
	ErrCodeSchemaIntrospectionFailed ErrorCode = "SCHEMA_INTROSPECTION_FAILED"
	ErrCodeDatabaseConnectionFailed  ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed      ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout              ErrorCode = "QUERY_TIMEOUT"
	ErrCodeQueryRejected             ErrorCode = "QUERY_REJECTED"

	// Conversation state
	ErrCodeConversationNotFound ErrorCode = "CONVERSATION_NOT_FOUND"
	ErrCodeMemoryStoreFailed    ErrorCode = "MEMORY_STORE_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches any StandardError carrying the same code.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	return ok && t.Code == e.Code
}

// WithMetadata attaches a key/value to the error and returns it.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// Sentinel returns a bare error usable as an errors.Is target for code.
func Sentinel(code ErrorCode) *StandardError {
	return &StandardError{Code: code}
}

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

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

func NewInputTooLongError(length, limit int) *StandardError {
	return newError(ErrCodeInputTooLong,
		"Input exceeds maximum length",
		fmt.Sprintf("length: %d, limit: %d", length, limit),
		false, nil)
}

func NewInvalidJobInputError(details string) *StandardError {
	return newError(ErrCodeInvalidJobInput, "Invalid job input", details, false, nil)
}

func NewModelResponseMalformedError(err error) *StandardError {
	return newError(ErrCodeModelResponseMalformed, "Model response is not a valid JSON envelope", err.Error(), false, err)
}

func NewLLMTimeoutError(err error) *StandardError {
	return newError(ErrCodeLLMTimeout, "LLM completion timeout", err.Error(), true, err)
}

func NewLLMCompletionFailedError(err error) *StandardError {
	return newError(ErrCodeLLMCompletionFailed, "LLM completion API error", err.Error(), true, err)
}

func NewTitleGenerationFailedError(err error) *StandardError {
	return newError(ErrCodeTitleGenerationFailed, "Conversation title generation failed", err.Error(), false, err)
}

func NewSchemaIntrospectionFailedError(err error) *StandardError {
	return newError(ErrCodeSchemaIntrospectionFailed, "Database schema introspection failed", err.Error(), true, err)
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", err.Error(), true, err)
}

func NewQueryExecutionFailedError(err error) *StandardError {
	return newError(ErrCodeQueryExecutionFailed, "Database query execution error", err.Error(), false, err)
}

func NewQueryTimeoutError(timeout time.Duration) *StandardError {
	return newError(ErrCodeQueryTimeout, "Database query timeout", fmt.Sprintf("timeout: %s", timeout), true, nil)
}

func NewQueryRejectedError(reason string) *StandardError {
	return newError(ErrCodeQueryRejected, "Query rejected by read-only guard", reason, false, nil)
}

func NewConversationNotFoundError(conversationID string) *StandardError {
	return newError(ErrCodeConversationNotFound,
		"Conversation not found",
		fmt.Sprintf("conversationId: %s", conversationID),
		false, nil)
}

func NewMemoryStoreFailedError(err error) *StandardError {
	return newError(ErrCodeMemoryStoreFailed, "Conversation memory store error", err.Error(), true, err)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError("EXTERNAL_SERVICE_ERROR", fmt.Sprintf("External service '%s' error", service), err.Error(), true, err)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError("TIMEOUT_ERROR", fmt.Sprintf("Service '%s' timeout", service), err.Error(), true, err)
}

var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeInputTooLong:              "INPUT_TOO_LONG",
	ErrCodeInvalidJobInput:           "INVALID_JOB_INPUT",
	ErrCodeModelResponseMalformed:    "MODEL_RESPONSE_MALFORMED",
	ErrCodeLLMTimeout:                "LLM_TIMEOUT",
	ErrCodeLLMCompletionFailed:       "LLM_COMPLETION_FAILED",
	ErrCodeTitleGenerationFailed:     "TITLE_GENERATION_FAILED",
	ErrCodeSchemaIntrospectionFailed: "SCHEMA_INTROSPECTION_FAILED",
	ErrCodeDatabaseConnectionFailed:  "DATABASE_CONNECTION_FAILED",
	ErrCodeQueryExecutionFailed:      "QUERY_EXECUTION_FAILED",
	ErrCodeQueryTimeout:              "QUERY_TIMEOUT",
	ErrCodeQueryRejected:             "QUERY_REJECTED",
	ErrCodeConversationNotFound:      "CONVERSATION_NOT_FOUND",
	ErrCodeMemoryStoreFailed:         "MEMORY_STORE_FAILED",
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeSchemaIntrospectionFailed,
		ErrCodeLLMCompletionFailed,
		ErrCodeMemoryStoreFailed:
		return 3

	case ErrCodeQueryTimeout:
		return 2

	case ErrCodeLLMTimeout:
		return 1

	default:
		return 0
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY") || strings.Contains(codeStr, "SCHEMA"):
		return "DATABASE"
	case strings.Contains(codeStr, "LLM") || strings.Contains(codeStr, "MODEL") || strings.Contains(codeStr, "TITLE"):
		return "AI"
	case strings.Contains(codeStr, "CONVERSATION") || strings.Contains(codeStr, "MEMORY"):
		return "CONVERSATION"
	case strings.Contains(codeStr, "INPUT"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
