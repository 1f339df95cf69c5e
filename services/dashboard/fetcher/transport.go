package fetcher

import (
	"net/http"
)

// prometheusTransport authenticates every Prometheus API call and caps the response body size
type prometheusTransport struct {
	bearerToken            string
	maxResponseSizeInBytes int64
	next                   http.RoundTripper
}

// RoundTrip sets the headers on a copy of the request
func (pt *prometheusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Accept", "application/json")
	if len(pt.bearerToken) > 0 {
		req.Header.Set("Authorization", "Bearer "+pt.bearerToken)
	}

	resp, err := pt.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	resp.Body = http.MaxBytesReader(nil, resp.Body, pt.maxResponseSizeInBytes)

	return resp, nil
}
