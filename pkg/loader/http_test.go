package loader

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/dkorittki/imgprof/internal/pkg/testing/fakeserver"
	"github.com/dkorittki/imgprof/pkg/profiler/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPLoader(t *testing.T) {
	vars := []struct {
		name     string
		protocol string
		err      error
	}{
		{name: "HTTP1", protocol: config.ProtocolHTTP1},
		{name: "HTTP2", protocol: config.ProtocolHTTP2},
		{name: "HTTP3", protocol: config.ProtocolHTTP3},
		{name: "Invalid", protocol: "gopher", err: ErrInvalidProtocol},
	}

	for _, v := range vars {
		t.Run(v.name, func(t *testing.T) {
			l, err := NewHTTPLoader(v.protocol, time.Second, "")
			if v.err != nil {
				assert.True(t, errors.Is(err, v.err))
				assert.Nil(t, l)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, DefaultUserAgent, l.UserAgent)
			assert.Equal(t, v.protocol, l.Protocol)
			assert.Equal(t, time.Second, l.Client.Timeout)
		})
	}
}

func TestHTTPLoader_Load(t *testing.T) {
	s := fakeserver.New()
	defer s.Close()

	vars := []struct {
		name string
		path string
		err  error
	}{
		{name: "Image", path: "/ok.png"},
		{name: "NotFound", path: "/missing.png", err: ErrBadStatus},
		{name: "NotAnImage", path: "/text.png", err: image.ErrFormat},
	}

	for _, v := range vars {
		t.Run(v.name, func(t *testing.T) {
			l, err := NewHTTPLoader(config.ProtocolHTTP1, 0, "imgprof-test")
			require.NoError(t, err)

			ctx := l.WithContext(context.Background())
			err = l.Load(ctx, s.URL+v.path)

			if v.err == nil {
				assert.NoError(t, err)
				return
			}

			var loadErr *LoadError
			require.True(t, errors.As(err, &loadErr))
			assert.Equal(t, s.URL+v.path, loadErr.URL)
			assert.True(t, errors.Is(err, v.err))
		})
	}
}

func TestHTTPLoader_LoadSendsUserAgent(t *testing.T) {
	s := fakeserver.New()
	defer s.Close()

	l, err := NewHTTPLoader(config.ProtocolHTTP2, 0, "imgprof-test")
	require.NoError(t, err)

	require.NoError(t, l.Load(context.Background(), s.URL+"/ok.png"))
	assert.Equal(t, "imgprof-test", s.LastUserAgent())
	assert.Equal(t, 1, s.Requests())
}

func TestHTTPLoader_LoadTimeout(t *testing.T) {
	s := fakeserver.New()
	defer s.Close()

	l, err := NewHTTPLoader(config.ProtocolHTTP1, 50*time.Millisecond, "")
	require.NoError(t, err)

	assert.Error(t, l.Load(context.Background(), s.URL+"/slow.png"))
}

func TestHTTPLoader_LoadMalformed(t *testing.T) {
	l, err := NewHTTPLoader(config.ProtocolHTTP1, 0, "")
	require.NoError(t, err)

	var loadErr *LoadError
	assert.True(t, errors.As(l.Load(context.Background(), "http://[::1"), &loadErr))
}
