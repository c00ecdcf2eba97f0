package utils

import (
	"fmt"
	"math/rand/v2"
	"net/http"
)

// RandomUserAgent returns a recent desktop Firefox user agent, matching the
// client=firefox flavor of the suggest endpoint.
func RandomUserAgent() string {
	const minMajor, maxMajor = 128, 140
	major := rand.IntN(maxMajor-minMajor+1) + minMajor
	return fmt.Sprintf("Mozilla/5.0 (X11; Linux x86_64; rv:%d.0) Gecko/20100101 Firefox/%d.0", major, major)
}

// SetBrowserHeaders makes req look like it came from a browser tab.
func SetBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", RandomUserAgent())
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
}
