package utilities

import (
	"bytes"
	"errors"
	"io"
	"net"
	"net/http"
)

// MaxRequestBodyBytes bounds the request bodies read by GetBodyBytes. Sign-in
// messages are a few hundred bytes.
const MaxRequestBodyBytes = 64 << 10

// ErrBodyTooLarge is returned by GetBodyBytes for bodies over
// MaxRequestBodyBytes.
var ErrBodyTooLarge = errors.New("request body too large")

// GetIPAddress returns the client IP of the request. Forwarded-for headers
// from trusted proxies are applied to RemoteAddr by the xff middleware
// before handlers run, so only RemoteAddr is consulted.
func GetIPAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}

	if ip := net.ParseIP(host); ip != nil {
		return ip.String()
	}
	return host
}

// GetBodyBytes reads the whole request body and puts it back, so it can be
// read again.
func GetBodyBytes(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}

	originalBody := req.Body
	defer SafeClose(originalBody)

	buf, err := io.ReadAll(io.LimitReader(originalBody, MaxRequestBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(buf) > MaxRequestBodyBytes {
		return nil, ErrBodyTooLarge
	}

	req.Body = io.NopCloser(bytes.NewReader(buf))

	return buf, nil
}
