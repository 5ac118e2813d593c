package dto

// APIResponse is the envelope of every JSON response: data on success, error otherwise
type APIResponse struct {
	Data  interface{}  `json:"data,omitempty"`
	Error *ErrorDetail `json:"error,omitempty"`
}

// NewSuccessResponse wraps data in the response envelope
func NewSuccessResponse(data interface{}) APIResponse {
	return APIResponse{Data: data}
}

// SuccessResponse represents a plain confirmation message
type SuccessResponse struct {
	Message string `json:"message" example:"Operation completed successfully"`
}

// PaginationInfo represents pagination metadata
type PaginationInfo struct {
	CurrentPage int   `json:"currentPage" example:"1"`
	TotalPages  int   `json:"totalPages" example:"3"`
	PageSize    int   `json:"pageSize" example:"10"`
	TotalItems  int64 `json:"totalItems" example:"25"`
}

// PaginatedResponse represents a paginated list with metadata
type PaginatedResponse struct {
	Items      interface{}    `json:"items"`
	Pagination PaginationInfo `json:"pagination"`
}
