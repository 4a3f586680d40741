package utils

// Error codes returned in the "code" field of API error responses
const (
	ErrorBadRequest         = 400
	ErrorPathNotExtractable = 4041
	ErrorStoreFailure       = 5001
)
