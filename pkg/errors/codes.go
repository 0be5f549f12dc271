package errors

// ErrorCodeInfo contains metadata about an error code.
type ErrorCodeInfo struct {
	Code            ErrorCode
	Retryable       bool
	Description     string
	SuggestedAction string
}

// ErrorCodeRegistry maps error codes to their metadata. No HTTP layer
// ships in this module, but the registry retains HTTP-adjacent intent
// (retryable vs. terminal, suggested remediation) for job and CLI
// reporting.
var ErrorCodeRegistry = map[ErrorCode]ErrorCodeInfo{
	ErrInputInvalid: {
		Code:            ErrInputInvalid,
		Retryable:       false,
		Description:     "Request or stored data failed validation",
		SuggestedAction: "Inspect the event with: eventhint events show <event-id>",
	},
	ErrNotFoundCode: {
		Code:            ErrNotFoundCode,
		Retryable:       false,
		Description:     "Requested resource does not exist or is not owned by this user",
		SuggestedAction: "Verify the id: eventhint events list",
	},
	ErrOAuthMisconfigured: {
		Code:            ErrOAuthMisconfigured,
		Retryable:       false,
		Description:     "Provider credentials are missing or invalid",
		SuggestedAction: "Reconnect the provider: eventhint providers connect <provider>",
	},
	ErrUpstreamUnavailable: {
		Code:            ErrUpstreamUnavailable,
		Retryable:       true,
		Description:     "A dependency (OCR, LLM, calendar, or scrape target) is transiently unreachable",
		SuggestedAction: "Will be retried automatically; check worker health: eventhint worker status",
	},
	ErrUpstreamRejected: {
		Code:            ErrUpstreamRejected,
		Retryable:       false,
		Description:     "A dependency rejected the request outright",
		SuggestedAction: "Inspect the job log: eventhint jobs show <job-id>",
	},
	ErrInternal: {
		Code:            ErrInternal,
		Retryable:       false,
		Description:     "Unclassified internal error",
		SuggestedAction: "Check logs: eventhint jobs show <job-id>",
	},
}

// IsRetryable returns true if the given error code represents a transient, retryable error.
func IsRetryable(code ErrorCode) bool {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.Retryable
	}
	return false
}

// GetSuggestedAction returns the suggested action for the given error code.
func GetSuggestedAction(code ErrorCode) string {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.SuggestedAction
	}
	return "Check logs for more details: eventhint jobs show <job-id>"
}

// GetDescription returns the human-readable description for the given error code.
func GetDescription(code ErrorCode) string {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.Description
	}
	return "Unknown error"
}
