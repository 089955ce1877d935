package connectivity

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/jzx17/resilience/pkg/types"
)

// Classify maps a raw error and optional HTTP status from the network layer
// to an issue code. The second return is false when the signal does not look
// like a connectivity problem.
func Classify(err error, httpStatus int) (Code, bool) {
	switch httpStatus {
	case 401:
		return CodeAuthExpired, true
	case 402:
		return CodeQuotaExceeded, true
	case 429:
		return CodeRateLimited, true
	case 500, 502, 504:
		return CodeServerUnreachable, true
	case 503:
		return CodeServiceDegraded, true
	}

	if err == nil {
		return "", false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CodeRequestTimeout, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CodeRequestTimeout, true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return CodeNetworkOffline, true
	}

	// an explicit non-retryable verdict from the network layer without a
	// recognizable status is treated as quota/plan style exhaustion
	var retryable *types.RetryableError
	if errors.As(err, &retryable) && !retryable.Retryable {
		return CodeQuotaExceeded, true
	}

	s := strings.ToLower(err.Error())
	switch {
	case strings.Contains(s, "quota") || strings.Contains(s, "plan limit"):
		return CodeQuotaExceeded, true
	case strings.Contains(s, "rate limit") || strings.Contains(s, "too many requests"):
		return CodeRateLimited, true
	case strings.Contains(s, "websocket") || strings.Contains(s, "stream closed") || strings.Contains(s, "connection reset"):
		return CodeStreamDisconnected, true
	case strings.Contains(s, "timeout") || strings.Contains(s, "deadline exceeded"):
		return CodeRequestTimeout, true
	case strings.Contains(s, "no such host") || strings.Contains(s, "network is unreachable"):
		return CodeNetworkOffline, true
	case strings.Contains(s, "connection refused") || strings.Contains(s, "unreachable"):
		return CodeServerUnreachable, true
	}

	return "", false
}
