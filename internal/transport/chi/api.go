package chi

// ErrorCode is the machine-readable error code returned in ErrorResponse.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest       ErrorCode = "bad_request"
	ErrorCodeUnauthorized     ErrorCode = "unauthorized"
	ErrorCodeValidationFailed ErrorCode = "validation_failed"
	ErrorCodeDocumentNotFound ErrorCode = "document_not_found"
	ErrorCodeAlreadyExists    ErrorCode = "document_already_exists"
	ErrorCodeUnavailable      ErrorCode = "store_unavailable"
	ErrorCodeNotFound         ErrorCode = "not_found"
	ErrorCodeMethodNotAllowed ErrorCode = "method_not_allowed"
	ErrorCodeInternalError    ErrorCode = "internal_error"
)

// Response headers.
const (
	HeaderTotalCount      = "X-Total-Count"
	HeaderRankingDegraded = "X-Ranking-Degraded"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// DocumentRequest is the body of POST /documents and PUT /documents/{id}.
// ID is only honored on create; an empty ID gets a generated one.
type DocumentRequest struct {
	ID     string `json:"id,omitempty"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	Locale string `json:"locale,omitempty"`
}

// DocumentResponse is a stored document.
type DocumentResponse struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	Locale string `json:"locale,omitempty"`
}

// SearchResultItem is one entry of the ranked search response.
type SearchResultItem struct {
	ID        string  `json:"id"`
	Score     float64 `json:"score"`
	ViewCount int64   `json:"viewCount"`
}

// SearchParams are the query parameters of GET /search.
type SearchParams struct {
	Q      *string
	Locale *string
	Limit  *int
	Offset *int
}

// ViewCountResponse is the body of GET /documents/{id}/views.
type ViewCountResponse struct {
	ID        string `json:"id"`
	ViewCount int64  `json:"viewCount"`
	Degraded  bool   `json:"degraded"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
