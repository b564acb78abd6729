package llm

import (
	"context"
	"errors"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/BaSui01/claritycast/types"
)

// DefaultRetryAfterSeconds is used when a rate-limit error carries no delay hint.
const DefaultRetryAfterSeconds = 60

// 供应商错误消息中的限流/配额标记（小写匹配）
var rateLimitMarkers = []string{
	"rate limit",
	"rate-limit",
	"ratelimit",
	"quota",
	"resource_exhausted",
	"resource exhausted",
	"too many requests",
}

// 独立出现的 429，避免误匹配端口号之类的数字
var status429Pattern = regexp.MustCompile(`\b429\b`)

var retryAfterPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)retry in\s+([0-9]+(?:\.[0-9]+)?)\s*s`),
	regexp.MustCompile(`(?i)"?retryDelay"?\s*:\s*"([0-9]+(?:\.[0-9]+)?)s"`),
}

// IsRateLimited reports whether err signals provider quota exhaustion or
// rate limiting: HTTP 429, a rate-limit error code, or a marker string in
// the message.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}

	var le *Error
	if errors.As(err, &le) {
		if le.HTTPStatus == http.StatusTooManyRequests ||
			le.Code == ErrRateLimited || le.Code == ErrQuotaExceeded {
			return true
		}
	}

	if types.TypeOf(err) == types.ErrRateLimit {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return status429Pattern.MatchString(msg)
}

// ExtractRetryAfterSeconds returns how long the caller should wait. It
// checks, in order: a structured delay on the error, a "retry in Ns" hint in
// the message, and finally DefaultRetryAfterSeconds.
func ExtractRetryAfterSeconds(err error) int {
	if err == nil {
		return DefaultRetryAfterSeconds
	}

	var le *Error
	if errors.As(err, &le) && le.RetryAfter > 0 {
		return int(math.Ceil(le.RetryAfter.Seconds()))
	}
	if te, ok := types.AsError(err); ok && te.RetryAfterSeconds > 0 {
		return te.RetryAfterSeconds
	}

	msg := err.Error()
	for _, re := range retryAfterPatterns {
		m := re.FindStringSubmatch(msg)
		if len(m) < 2 {
			continue
		}
		secs, perr := strconv.ParseFloat(m[1], 64)
		if perr != nil || secs <= 0 {
			continue
		}
		return int(math.Ceil(secs))
	}

	return DefaultRetryAfterSeconds
}

// IsTimeout reports whether err is a deadline expiry, either local or upstream.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var le *Error
	if errors.As(err, &le) {
		return le.Code == ErrUpstreamTimeout
	}
	return false
}
