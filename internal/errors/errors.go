package errors

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/julianstephens/habitrack/internal/api"
	"github.com/julianstephens/habitrack/internal/constants"
	"github.com/julianstephens/habitrack/internal/logger"
	"github.com/julianstephens/habitrack/internal/session"
)

// SessionExpiredMessage is shown whenever the server rejects the stored token.
const SessionExpiredMessage = "Session expired. Please log in again with '" + constants.AppName + " login'."

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %s", Message(err, "Something went wrong"))
}

// Message extracts the user-facing text of err: the server's message when it
// sent one, then a description of the failure, then fallback.
func Message(err error, fallback string) string {
	if err == nil {
		return fallback
	}

	if stderrors.Is(err, api.ErrUnauthorized) {
		return SessionExpiredMessage
	}
	if stderrors.Is(err, session.ErrNoToken) {
		return "Not logged in. Run '" + constants.AppName + " login' first."
	}

	var apiErr *api.APIError
	if stderrors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}

	if desc := Describe(err); desc != "" {
		return desc
	}

	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}

// Describe returns category-specific text for server-side and transport
// failures and "" for anything else.
func Describe(err error) string {
	var apiErr *api.APIError
	if stderrors.As(err, &apiErr) && apiErr.IsServerError() {
		return fmt.Sprintf("The server failed to handle the request (status %d). Please try again later.", apiErr.StatusCode)
	}

	var te *api.TransportError
	if !stderrors.As(err, &te) {
		return ""
	}
	switch {
	case api.IsTransport(err, api.KindTimeout):
		return "Request timed out. Please check your connection and try again."
	case api.IsTransport(err, api.KindRejected):
		return fmt.Sprintf("Connection to %s was rejected (%v). Please check the server's TLS configuration.", te.BaseURL, te.Err)
	default:
		return fmt.Sprintf("Network error. Cannot reach backend at %s. Please check if the backend server is running.", te.BaseURL)
	}
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}
