package resilience

import (
	"fmt"

	"github.com/nutrilog/authharness/internal/auth"
)

// Response is the HTTP-style response shape consumed by ErrorFromResponse.
type Response struct {
	Status int
	Data   ResponseData
}

// ResponseData is the decoded response body.
type ResponseData struct {
	Message string `json:"message"`
}

// ErrorFromResponse translates a non-2xx HTTP-style response into a typed
// authentication error. 2xx responses yield nil.
func ErrorFromResponse(resp Response, label string) *auth.Error {
	switch {
	case resp.Status >= 200 && resp.Status < 300:
		return nil

	case resp.Status == 401 || resp.Status == 403:
		return auth.NewInvalidCredentialsError(
			fmt.Sprintf("%s rejected credentials (status %d)", label, resp.Status))

	case resp.Status == 429:
		return auth.NewRateLimitedError(
			fmt.Sprintf("%s rate limited (status %d)", label, resp.Status))

	case resp.Status >= 500:
		return auth.NewNetworkError(
			fmt.Sprintf("%s server error (status %d)", label, resp.Status),
			NewStatusError(resp.Status))

	default:
		message := resp.Data.Message
		if message == "" {
			message = fmt.Sprintf("%s failed with status %d", label, resp.Status)
		}
		return auth.NewGenericError(auth.CodeAuthFailed, message, nil)
	}
}
