package gh

import (
	"net/http"
	"strconv"
	"time"
)

// retryTransport retries transient failures (5xx and network errors) with
// exponential backoff and honours rate-limit reset headers on 429/403.
// 4xx responses other than 429 pass through untouched.
type retryTransport struct {
	rt         http.RoundTripper
	maxRetries int
	baseDelay  time.Duration
}

func newRetryTransport(rt http.RoundTripper, maxRetries int, baseDelay time.Duration) *retryTransport {
	if rt == nil {
		rt = http.DefaultTransport
	}
	return &retryTransport{rt: rt, maxRetries: maxRetries, baseDelay: baseDelay}
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error
	delay := t.baseDelay

	for attempt := 0; ; attempt++ {
		resp, err = t.rt.RoundTrip(req)
		if attempt >= t.maxRetries {
			return resp, err
		}
		wait, retry := t.shouldRetry(resp, err)
		if !retry {
			return resp, err
		}
		if resp != nil {
			resp.Body.Close()
		}
		if wait == 0 {
			wait = delay
			delay *= 2
		}
		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(wait):
		}
	}
}

func (t *retryTransport) shouldRetry(resp *http.Response, err error) (time.Duration, bool) {
	if err != nil {
		// Network-level failure.
		return 0, true
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-Ratelimit-Remaining") == "0":
		return resetDelay(resp), true
	case resp.StatusCode >= 500:
		return 0, true
	}
	return 0, false
}

// resetDelay computes how long to sleep before retrying a rate-limited
// request, preferring Retry-After and falling back to x-ratelimit-reset.
func resetDelay(resp *http.Response) time.Duration {
	if s := resp.Header.Get("Retry-After"); s != "" {
		if secs, err := strconv.Atoi(s); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	if s := resp.Header.Get("X-Ratelimit-Reset"); s != "" {
		if epoch, err := strconv.ParseInt(s, 10, 64); err == nil {
			if d := time.Until(time.Unix(epoch, 0)); d > 0 {
				return d
			}
		}
	}
	return time.Second
}
