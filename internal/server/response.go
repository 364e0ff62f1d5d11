package server

// StatusResponse acknowledges a write.
type StatusResponse struct {
	Status string `json:"status"`
}

// GetResponse carries a lookup result. Value is base64 in JSON.
type GetResponse struct {
	Value []byte `json:"value"`
	Found bool   `json:"found"`
}

// DeleteResponse acknowledges a delete. Removed is always true because a
// tombstone is written whether or not the key existed.
type DeleteResponse struct {
	Removed bool `json:"removed"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newSuccessResponse() StatusResponse { return StatusResponse{Status: "success"} }

func newErrorResponse(msg string) ErrorResponse { return ErrorResponse{Error: msg} }
