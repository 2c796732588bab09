package scraper

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	utls "github.com/refraction-networking/utls"

	"github.com/promisingcoder/google-maps-scraper/internal/model"
)

const (
	searchBaseURL = "https://www.google.com/search"

	defaultRetryAfter = 60 * time.Second
)

// ErrAttemptsExhausted marks a terminal request failure: every retry
// attempt for a tile failed. The sweep treats it as an empty tile.
var ErrAttemptsExhausted = errors.New("all request attempts exhausted")

// RateLimitError indicates the upstream answered 429.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

var userAgents = []string{
	"Mozilla/5.0 (Linux; Android 6.0; Nexus 5 Build/MRA58N) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/139.0.0.0 Mobile Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/139.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/139.0.0.0 Safari/537.36",
}

// Client issues tbm=map search requests with rate limiting and retry.
// It owns the limiter; nothing else writes its counters.
type Client struct {
	http       *http.Client
	baseURL    string
	country    string
	maxRetries int
	limiter    *Limiter
	rateLimits atomic.Int64

	sleep func(context.Context, time.Duration) error
}

// NewClient builds a client from search parameters. The transport uses a
// Chrome TLS fingerprint over HTTP/1.1 unless a proxy handles the
// connection.
func NewClient(params model.SearchParams) *Client {
	jar, _ := cookiejar.New(nil)
	googleURL, _ := url.Parse("https://www.google.com")
	jar.SetCookies(googleURL, []*http.Cookie{
		{Name: "CONSENT", Value: "YES+ES.es+V14+BX", Path: "/", Domain: ".google.com"},
	})

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}

			host, _, err := net.SplitHostPort(addr)
			if err != nil {
				host = addr
			}

			// Chrome TLS spec with HTTP/1.1 forced on ALPN
			spec, err := utls.UTLSIdToSpec(utls.HelloChrome_Auto)
			if err != nil {
				conn.Close()
				return nil, err
			}
			for i, ext := range spec.Extensions {
				if alpn, ok := ext.(*utls.ALPNExtension); ok {
					alpn.AlpnProtocols = []string{"http/1.1"}
					spec.Extensions[i] = alpn
					break
				}
			}

			tlsConn := utls.UClient(conn, &utls.Config{
				ServerName: host,
			}, utls.HelloCustom)
			if err := tlsConn.ApplyPreset(&spec); err != nil {
				conn.Close()
				return nil, err
			}
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}

			return tlsConn, nil
		},
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	if params.ProxyURL != "" {
		proxyParsed, err := url.Parse(params.ProxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(proxyParsed)
			// Proxy owns the connection, standard TLS applies
			transport.DialTLSContext = nil
			transport.TLSClientConfig = &tls.Config{}
		}
	}

	maxRetries := params.MaxRetries
	if maxRetries < 1 {
		maxRetries = 3
	}

	return &Client{
		http: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
			Jar:       jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		baseURL:    searchBaseURL,
		country:    params.Country,
		maxRetries: maxRetries,
		limiter: NewLimiter(
			time.Duration(params.MinDelay*float64(time.Second)),
			time.Duration(params.MaxDelay*float64(time.Second)),
		),
		sleep: sleepCtx,
	}
}

// Search performs one map search centered on lat/lng at the given zoom,
// retrying per policy. A 429 honors the server's Retry-After and consumes
// one attempt; any other failure backs off exponentially. When every
// attempt fails the error wraps ErrAttemptsExhausted.
func (c *Client) Search(ctx context.Context, lat, lng float64, zoom int, query string) ([]byte, error) {
	params := url.Values{}
	params.Set("gl", c.country)
	params.Set("tbm", "map")
	params.Set("q", query)
	params.Set("pb", BuildPB(lat, lng, zoom))

	reqURL := c.baseURL + "?" + params.Encode()

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, err := c.doRequest(ctx, reqURL)
		if err == nil {
			return body, nil
		}
		lastErr = err

		var rl *RateLimitError
		if errors.As(err, &rl) {
			c.rateLimits.Add(1)
			if err := c.sleep(ctx, rl.RetryAfter); err != nil {
				return nil, err
			}
			continue
		}

		if attempt < c.maxRetries-1 {
			backoff := time.Duration(math.Pow(2, float64(attempt)) * (1 + 2*rand.Float64()) * float64(time.Second))
			if err := c.sleep(ctx, backoff); err != nil {
				return nil, err
			}
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %v", ErrAttemptsExhausted, c.maxRetries, lastErr)
}

// RateLimitCount reports how many 429 responses have been seen.
func (c *Client) RateLimitCount() int64 {
	return c.rateLimits.Load()
}

// RequestCount reports how many requests the limiter has paced.
func (c *Client) RequestCount() int {
	return c.limiter.RequestCount()
}

func (c *Client) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("User-Agent", userAgents[rand.IntN(len(userAgents))])
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "identity")
	req.Header.Set("Referer", "https://www.google.com/")
	req.Header.Set("Sec-Fetch-Dest", "empty")
	req.Header.Set("Sec-Fetch-Mode", "cors")
	req.Header.Set("Sec-Fetch-Site", "same-origin")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		io.Copy(io.Discard, resp.Body)
		return nil, &RateLimitError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}

	return body, nil
}

// parseRetryAfter reads an integer-seconds Retry-After value. Anything
// else (missing, HTTP-date) falls back to the default interval.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return defaultRetryAfter
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return defaultRetryAfter
	}
	return time.Duration(secs) * time.Second
}
