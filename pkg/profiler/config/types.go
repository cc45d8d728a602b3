package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	// LoaderHTTP fetches and decodes images with a Go HTTP client.
	LoaderHTTP = "http"

	// LoaderChrome loads images through a headless Chrome instance.
	LoaderChrome = "chrome"

	// LoaderFake simulates loads without network access.
	LoaderFake = "fake"
)

const (
	ProtocolHTTP1 = "http1"
	ProtocolHTTP2 = "http2"
	ProtocolHTTP3 = "http3"
)

// DefaultBuckets is the default maximum number of histogram buckets.
const DefaultBuckets = 10

// ProfilerConfig represents the tool configuration read from the
// "profiler" section of the config file.
type ProfilerConfig struct {
	// Loader selects the image load primitive, one of LoaderHTTP, LoaderChrome or LoaderFake.
	Loader string

	// Protocol selects the HTTP version used by the http loader.
	Protocol string

	// Timeout limits a single load. Zero means loads may stay pending forever.
	Timeout time.Duration

	// UserAgent is sent by the http loader.
	UserAgent string

	// SettingsFile overrides the location of the persisted settings.
	SettingsFile string

	// Buckets is the maximum number of histogram buckets.
	Buckets int

	// ChromePath overrides the browser executable used by the chrome loader.
	ChromePath string
}

// Default returns the configuration used when no config file exists.
func Default() *ProfilerConfig {
	return &ProfilerConfig{
		Loader:   LoaderHTTP,
		Protocol: ProtocolHTTP2,
		Buckets:  DefaultBuckets,
	}
}

// NewProfilerConfig unmarshals v on top of the defaults.
// A nil v yields the defaults.
func NewProfilerConfig(v *viper.Viper) (*ProfilerConfig, error) {
	cfg := Default()
	if v == nil {
		return cfg, nil
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
