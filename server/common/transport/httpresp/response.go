package httpresp

const (
	ErrMissingTenant    = "tenant identifier header is required"
	ErrMissingFile      = "file is required"
	ErrFileTooLarge     = "file exceeds the maximum upload size"
	ErrInternal         = "internal server error"
	StatusServerRunning = "Storage server is running"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

func NewErrorResponse(message string) ErrorResponse {
	return ErrorResponse{Error: message}
}

func NewMessageResponse(message string) MessageResponse {
	return MessageResponse{Message: message}
}

func NewStatusResponse(status string) StatusResponse {
	return StatusResponse{Status: status}
}
