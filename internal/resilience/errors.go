package resilience

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"syscall"

	sdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/sells-group/autoapply/internal/dom"
)

// TransientError marks an error as safe to retry.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps err as transient with an optional HTTP status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

var transientPatterns = []string{
	"connection reset by peer",
	"broken pipe",
	"temporary failure in name resolution",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
	"overloaded",
}

// IsTransient reports whether err is worth retrying. Stale document handles
// and an open breaker never are.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, dom.ErrDetached) || errors.Is(err, ErrCircuitOpen) {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return IsTransientHTTPStatus(apiErr.StatusCode)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsTransientHTTPStatus reports whether an HTTP status signals a temporary
// server-side condition. 529 is the Anthropic overloaded status.
func IsTransientHTTPStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout, 529:
		return true
	}
	return false
}
