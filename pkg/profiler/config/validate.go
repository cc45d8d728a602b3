package config

import (
	"github.com/pkg/errors"
)

// ValidateProfilerConfig validates the profiler sub config.
func ValidateProfilerConfig(cfg *ProfilerConfig) error {
	if cfg == nil {
		return errors.New("missing profiler config")
	}

	switch cfg.Loader {
	case LoaderHTTP, LoaderChrome, LoaderFake:
	default:
		return errors.Errorf("invalid loader '%s'", cfg.Loader)
	}

	switch cfg.Protocol {
	case ProtocolHTTP1, ProtocolHTTP2, ProtocolHTTP3:
	default:
		return errors.Errorf("invalid protocol '%s'", cfg.Protocol)
	}

	if cfg.Timeout < 0 {
		return errors.Errorf("invalid timeout '%s'", cfg.Timeout)
	}

	if cfg.Buckets <= 0 {
		return errors.Errorf("invalid bucket count '%d'", cfg.Buckets)
	}

	return nil
}
