package utils

import (
	"net"
	"net/http"
	"time"
)

// webhookTimeout bounds a single webhook log post.
const webhookTimeout = 10 * time.Second

// GlobalHTTPClient is shared by every outbound webhook post.
var GlobalHTTPClient = newHTTPClient(webhookTimeout)

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}
