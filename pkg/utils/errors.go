package utils

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
)

// --- Sentinel Errors for Categorization ---
var (
	ErrClientHTTPError  = errors.New("client HTTP error (4xx)")
	ErrServerHTTPError  = errors.New("server HTTP error (5xx)")
	ErrOtherHTTPError   = errors.New("other HTTP error (non-2xx)")
	ErrParsing          = errors.New("parsing error") // HTML documents, YAML config, history entries
	ErrFilesystem       = errors.New("filesystem error")
	ErrDatabase         = errors.New("database error") // Run history store
	ErrRequestCreation  = errors.New("failed to create HTTP request")
	ErrResponseBodyRead = errors.New("failed to read response body")
	ErrConfigValidation = errors.New("configuration validation error")
	ErrNoRecords        = errors.New("no venue records to export")
)

// HTTPStatusError reports a listing page answered with a non-2xx status.
// It unwraps to ErrClientHTTPError, ErrServerHTTPError or ErrOtherHTTPError by status class.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

// NewHTTPStatusError creates an HTTPStatusError for pageURL
func NewHTTPStatusError(pageURL string, statusCode int) *HTTPStatusError {
	return &HTTPStatusError{URL: pageURL, StatusCode: statusCode}
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%v: status %d %s (%s)", e.Unwrap(), e.StatusCode, http.StatusText(e.StatusCode), e.URL)
}

func (e *HTTPStatusError) Unwrap() error {
	switch {
	case e.StatusCode >= 500:
		return ErrServerHTTPError
	case e.StatusCode >= 400:
		return ErrClientHTTPError
	default:
		return ErrOtherHTTPError
	}
}

// CategorizeError maps an error to a short category for log fields and run history
func CategorizeError(err error) string {
	if err == nil {
		return "None"
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		switch code := statusErr.StatusCode; {
		case code == http.StatusUnauthorized, code == http.StatusForbidden, code == http.StatusNotFound,
			code == http.StatusGone, code == http.StatusTooManyRequests:
			return fmt.Sprintf("HTTP_%d", code)
		case code >= 500:
			return "HTTP_5xx"
		case code >= 400:
			return "HTTP_4xx"
		default:
			return "HTTP_OtherStatus"
		}
	}

	switch {
	case errors.Is(err, ErrClientHTTPError):
		return "HTTP_4xx"
	case errors.Is(err, ErrServerHTTPError):
		return "HTTP_5xx"
	case errors.Is(err, ErrOtherHTTPError):
		return "HTTP_OtherStatus"
	case errors.Is(err, ErrParsing):
		lowerErrMsg := strings.ToLower(err.Error())
		switch {
		case strings.Contains(lowerErrMsg, "html"):
			return "Content_ParsingHTML"
		case strings.Contains(lowerErrMsg, "yaml"), strings.Contains(lowerErrMsg, "config"):
			return "Config_ParsingYAML"
		case strings.Contains(lowerErrMsg, "scrapedbentry"):
			return "History_Encoding"
		}
		return "Parsing_Other"
	case errors.Is(err, ErrNoRecords):
		return "Export_NoRecords"
	case errors.Is(err, ErrFilesystem):
		if errors.Is(err, os.ErrPermission) {
			return "Filesystem_Permission"
		}
		if errors.Is(err, os.ErrNotExist) {
			return "Filesystem_NotExist"
		}
		if errors.Is(err, os.ErrExist) {
			return "Filesystem_Exist"
		}
		return "Filesystem_Other"
	case errors.Is(err, ErrDatabase):
		return "History_Database"
	case errors.Is(err, ErrRequestCreation):
		return "Config_BadURL" // Only a malformed page URL makes request construction fail
	case errors.Is(err, ErrResponseBodyRead):
		if strings.Contains(err.Error(), "exceeds") {
			return "Network_BodyTooLarge"
		}
		return "Network_BodyRead"
	case errors.Is(err, ErrConfigValidation):
		return "Config_Validation"
	}

	// --- Fallback checks for common underlying error types/strings ---

	if errors.Is(err, context.Canceled) {
		return "System_ContextCanceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "System_ContextDeadlineExceeded"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "Network_Timeout"
	}

	lowerErrMsg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lowerErrMsg, "timeout"):
		return "Network_TimeoutGeneric"
	case strings.Contains(lowerErrMsg, "connection refused"):
		return "Network_ConnectionRefused"
	case strings.Contains(lowerErrMsg, "no such host"):
		return "Network_DNSLookup"
	case strings.Contains(lowerErrMsg, "tls"), strings.Contains(lowerErrMsg, "certificate"):
		return "Network_TLS"
	case strings.Contains(lowerErrMsg, "reset by peer"):
		return "Network_ConnectionReset"
	case strings.Contains(lowerErrMsg, "redirects"):
		return "Network_TooManyRedirects"
	}

	return "Unknown"
}
