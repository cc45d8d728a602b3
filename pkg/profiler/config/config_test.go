package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProfilerConfig(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(`
profiler:
  loader: chrome
  timeout: 5s
  buckets: 20
  chromepath: /usr/bin/chromium
`)))

	cfg, err := NewProfilerConfig(v.Sub("profiler"))
	require.NoError(t, err)

	assert.Equal(t, LoaderChrome, cfg.Loader)
	assert.Equal(t, ProtocolHTTP2, cfg.Protocol)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 20, cfg.Buckets)
	assert.Equal(t, "/usr/bin/chromium", cfg.ChromePath)
}

func TestNewProfilerConfig_Nil(t *testing.T) {
	cfg, err := NewProfilerConfig(nil)

	assert.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestValidateProfilerConfig(t *testing.T) {
	vars := []struct {
		name  string
		in    *ProfilerConfig
		valid bool
	}{
		{name: "Default", in: Default(), valid: true},
		{name: "Nil", in: nil},
		{name: "UnknownLoader", in: &ProfilerConfig{Loader: "curl", Protocol: ProtocolHTTP1, Buckets: 1}},
		{name: "UnknownProtocol", in: &ProfilerConfig{Loader: LoaderHTTP, Protocol: "spdy", Buckets: 1}},
		{name: "NegativeTimeout", in: &ProfilerConfig{Loader: LoaderHTTP, Protocol: ProtocolHTTP3, Buckets: 1, Timeout: -time.Second}},
		{name: "NoBuckets", in: &ProfilerConfig{Loader: LoaderFake, Protocol: ProtocolHTTP3}},
	}

	for _, v := range vars {
		t.Run(v.name, func(t *testing.T) {
			err := ValidateProfilerConfig(v.in)
			if v.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
