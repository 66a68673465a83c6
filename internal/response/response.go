package response

import "dispatch-service/internal/models"

type ErrorResponse struct {
	Error string `json:"error"`
}

type TokenResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type ListResponse[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Offset int   `json:"offset"`
	Limit  int   `json:"limit"`
}

type BlockedResponse struct {
	Blocked bool   `json:"blocked"`
	Reason  string `json:"reason"`
}

type BatchResult struct {
	Created int      `json:"created"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}
