package probe

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"github.com/lukemcguire/deadcam/link"
	"github.com/lukemcguire/deadcam/result"
	"github.com/lukemcguire/deadcam/urlutil"
)

// DefaultUserAgent is a desktop browser identification. Many camera hosts
// reject requests from obvious bots.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/58.0.3029.110 Safari/537.36"

// HTTPProbe checks still-image endpoints with a single HEAD request.
type HTTPProbe struct {
	transport http.RoundTripper
	userAgent string
	logger    *zap.Logger
}

// NewHTTPProbe creates an HTTPProbe. A nil transport gets a non-pooling clone
// of http.DefaultTransport so every probe dials its own connection.
func NewHTTPProbe(userAgent string, transport http.RoundTripper, logger *zap.Logger) *HTTPProbe {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if transport == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.DisableKeepAlives = true
		transport = t
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPProbe{transport: transport, userAgent: userAgent, logger: logger}
}

// Probe issues one HEAD request, following redirects, and reports the record
// alive only when the final status is exactly 200.
func (p *HTTPProbe) Probe(ctx context.Context, rec link.Record, timeout time.Duration) (v result.Verdict) {
	v = result.Verdict{Record: rec, Strategy: link.StrategyHTTP, CheckedAt: time.Now()}
	defer func() { v.Duration = time.Since(v.CheckedAt) }()

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, rec.URL, nil)
	if err != nil {
		v.Reason = result.ReasonUnreachable
		v.Detail = err.Error()
		return
	}
	req.Header.Set("User-Agent", p.userAgent)

	// A fresh jar per probe: portals that set a session cookie before
	// redirecting to the image still resolve, and nothing is shared.
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		v.Reason = result.ReasonUnreachable
		v.Detail = fmt.Sprintf("create cookie jar: %v", err)
		return
	}
	client := &http.Client{Transport: p.transport, Jar: jar}

	resp, err := client.Do(req)
	if err != nil {
		v.Reason = result.ClassifyError(err, 0)
		if ctx.Err() != nil {
			v.Reason = result.ReasonTimeout
		}
		v.Detail = err.Error()
		p.logger.Debug("http probe failed",
			zap.String("url", urlutil.Redact(rec.URL)), zap.String("reason", string(v.Reason)), zap.Error(err))
		return
	}
	defer func() { _ = resp.Body.Close() }()

	v.StatusCode = resp.StatusCode
	v.Reason = result.ClassifyError(nil, resp.StatusCode)
	v.Alive = v.Reason == result.ReasonOK
	if !v.Alive {
		v.Detail = resp.Status
	}
	return
}
