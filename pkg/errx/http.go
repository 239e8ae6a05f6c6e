package errx

import "errors"

// HTTPErrorResponse is the JSON body written for failed API calls
type HTTPErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Type    string         `json:"type"`
	Status  int            `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

// ToHTTPResponse converts an Error to an HTTPErrorResponse
func (e *Error) ToHTTPResponse() HTTPErrorResponse {
	return HTTPErrorResponse{
		Error:   e.Message,
		Code:    e.Code,
		Type:    string(e.Type),
		Status:  e.HTTPStatus,
		Details: e.Details,
	}
}

// Response maps any error to a status code and response body. Errors outside
// the errx family become opaque internal errors.
func Response(err error) (int, HTTPErrorResponse) {
	var e *Error
	if errors.As(err, &e) {
		return e.HTTPStatus, e.ToHTTPResponse()
	}
	internal := Internal("Internal server error")
	return internal.HTTPStatus, internal.ToHTTPResponse()
}
