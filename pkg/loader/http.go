package loader

import (
	"context"
	"crypto/tls"
	"image"
	"io"
	"net"
	"net/http"
	"time"

	// Image formats understood by the http loader.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/dkorittki/imgprof/pkg/profiler/config"
	"github.com/pkg/errors"
	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
	"github.com/rs/zerolog/log"
)

// DefaultUserAgent mimics a desktop Chrome so CDNs serve browser-grade responses.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ErrInvalidProtocol indicates an unknown HTTP protocol version.
var ErrInvalidProtocol = errors.New("invalid protocol")

// HTTPLoader fetches an image with an HTTP client and decodes it.
type HTTPLoader struct {
	Client    *http.Client
	UserAgent string
	Protocol  string
}

// NewHTTPLoader returns a loader speaking the given protocol version.
// A zero timeout disables the client timeout.
func NewHTTPLoader(protocol string, timeout time.Duration, userAgent string) (*HTTPLoader, error) {
	var client *http.Client
	switch protocol {
	case config.ProtocolHTTP1:
		client = createHTTP1Client(timeout)
	case config.ProtocolHTTP2:
		client = createHTTP2Client(timeout)
	case config.ProtocolHTTP3:
		client = createHTTP3Client(timeout)
	default:
		return nil, errors.Wrapf(ErrInvalidProtocol, "'%s'", protocol)
	}

	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &HTTPLoader{Client: client, UserAgent: userAgent, Protocol: protocol}, nil
}

func (l *HTTPLoader) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// Load requests url, requires a 2xx response and decodes the body as an image.
func (l *HTTPLoader) Load(ctx context.Context, url string) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return &LoadError{URL: url, Err: err}
	}
	req = req.WithContext(ctx)
	req.Header.Set("User-Agent", l.UserAgent)
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")

	resp, err := l.Client.Do(req)
	if err != nil {
		return &LoadError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	log.Debug().
		Str("component", "loader").
		Str("url", url).
		Int("status", resp.StatusCode).
		Str("proto", resp.Proto).
		Msg("received image response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return &LoadError{URL: url, Err: errors.Wrapf(ErrBadStatus, "%d", resp.StatusCode)}
	}

	if _, _, err := image.Decode(resp.Body); err != nil {
		return &LoadError{URL: url, Err: errors.Wrap(err, "cannot decode image")}
	}

	return nil
}

func newDialer(timeout time.Duration) *net.Dialer {
	return &net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}
}

// createHTTP1Client returns a client which never negotiates HTTP/2.
func createHTTP1Client(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:       http.ProxyFromEnvironment,
		DialContext: newDialer(timeout).DialContext,
		TLSClientConfig: &tls.Config{
			NextProtos: []string{"http/1.1"},
		},
		ForceAttemptHTTP2:   false,
		TLSNextProto:        map[string]func(string, *tls.Conn) http.RoundTripper{},
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// createHTTP2Client returns a client which prefers HTTP/2 via ALPN.
func createHTTP2Client(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         newDialer(timeout).DialContext,
		TLSClientConfig:     &tls.Config{},
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// createHTTP3Client returns a client speaking HTTP/3 over QUIC.
func createHTTP3Client(timeout time.Duration) *http.Client {
	qcfg := &quic.Config{}
	if timeout > 0 {
		qcfg.HandshakeIdleTimeout = timeout
	}

	transport := &http3.RoundTripper{
		TLSClientConfig: &tls.Config{},
		QUICConfig:      qcfg,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}
