package utils

import (
	"net"
	"net/http"
	"time"
)

// NewHTTPClient returns a client whose dial/TLS phase is bounded by connect and
// whose response wait is bounded by read. The overall request deadline is their sum.
func NewHTTPClient(connect, read time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connect,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   connect,
		ResponseHeaderTimeout: read,
		MaxIdleConns:          16,
		IdleConnTimeout:       90 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   connect + read,
	}
}
