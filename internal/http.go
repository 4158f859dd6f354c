package internal

import "net/http"

// HeaderTransport is a RoundTripper that sets default headers on outbound
// requests. Headers already present on a request are left alone.
type HeaderTransport struct {
	Base    http.RoundTripper
	Headers http.Header
}

// NewHeaderTransport wraps base, or http.DefaultTransport if base is nil
func NewHeaderTransport(base http.RoundTripper, headers http.Header) *HeaderTransport {
	return &HeaderTransport{Base: base, Headers: headers}
}

func (t *HeaderTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(t.Headers) > 0 {
		// RoundTrippers must not modify the caller's request
		req = req.Clone(req.Context())
		for key, values := range t.Headers {
			if req.Header.Get(key) != "" {
				continue
			}
			for _, value := range values {
				req.Header.Add(key, value)
			}
		}
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}
