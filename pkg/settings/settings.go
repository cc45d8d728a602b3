// Package settings persists the user inputs of the profiler across sessions.
package settings

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Namespace prefixes every key written to a Store.
const Namespace = "imgprof."

// Keys of the persisted settings, without namespace.
const (
	KeyMode              = "mode"
	KeyURLInput          = "urlInput"
	KeyComparisonBaseURL = "comparisonBaseUrl"
	KeyCacheBust         = "cacheBust"
)

var (
	// ErrUnknownKey indicates a key which is not one of the persisted settings.
	ErrUnknownKey = errors.New("unknown settings key")

	// ErrInvalidMode indicates a mode string other than single or comparison.
	ErrInvalidMode = errors.New("invalid mode")
)

// Keys lists all persisted settings keys in display order.
var Keys = []string{KeyMode, KeyURLInput, KeyComparisonBaseURL, KeyCacheBust}

// Mode selects between measuring a URL list alone or against a second origin.
type Mode int

const (
	ModeSingle     Mode = 0
	ModeComparison Mode = 1
)

func (m Mode) String() string {
	if m == ModeComparison {
		return "comparison"
	}
	return "single"
}

// ParseMode parses the string form of a mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single":
		return ModeSingle, nil
	case "comparison", "compare":
		return ModeComparison, nil
	}
	return ModeSingle, errors.Wrapf(ErrInvalidMode, "'%s'", s)
}

// Settings are the user inputs of a profiling session.
type Settings struct {
	Mode              Mode
	URLInput          string
	ComparisonBaseURL string
	CacheBust         bool
}

// Default returns the settings used when nothing was stored yet.
func Default() Settings {
	return Settings{Mode: ModeSingle}
}

// A Store is a string valued key-value store surviving process restarts.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// Load reads settings from store. Missing or unparsable values fall back to defaults.
func Load(store Store) Settings {
	s := Default()

	if v, ok := store.Get(Namespace + KeyMode); ok {
		if m, err := ParseMode(v); err == nil {
			s.Mode = m
		}
	}
	if v, ok := store.Get(Namespace + KeyURLInput); ok {
		s.URLInput = v
	}
	if v, ok := store.Get(Namespace + KeyComparisonBaseURL); ok {
		s.ComparisonBaseURL = v
	}
	if v, ok := store.Get(Namespace + KeyCacheBust); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			s.CacheBust = b
		}
	}

	return s
}

// Save writes every field of s to store.
func Save(store Store, s Settings) error {
	for _, key := range Keys {
		if err := store.Set(Namespace+key, s.Value(key)); err != nil {
			return errors.Wrapf(err, "cannot store %s", key)
		}
	}
	return nil
}

// Value returns the string encoding of the field named by key.
func (s Settings) Value(key string) string {
	switch key {
	case KeyMode:
		return s.Mode.String()
	case KeyURLInput:
		return s.URLInput
	case KeyComparisonBaseURL:
		return s.ComparisonBaseURL
	case KeyCacheBust:
		return strconv.FormatBool(s.CacheBust)
	}
	return ""
}

// With returns a copy of s with the field named by key parsed from value.
func (s Settings) With(key, value string) (Settings, error) {
	switch key {
	case KeyMode:
		m, err := ParseMode(value)
		if err != nil {
			return s, err
		}
		s.Mode = m
	case KeyURLInput:
		s.URLInput = value
	case KeyComparisonBaseURL:
		s.ComparisonBaseURL = value
	case KeyCacheBust:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return s, errors.Wrapf(err, "invalid %s", key)
		}
		s.CacheBust = b
	default:
		return s, errors.Wrapf(ErrUnknownKey, "'%s'", key)
	}
	return s, nil
}

// SetField validates value and writes the single field named by key to store.
func SetField(store Store, key, value string) (Settings, error) {
	s, err := Load(store).With(key, value)
	if err != nil {
		return s, err
	}

	if err := store.Set(Namespace+key, s.Value(key)); err != nil {
		return s, errors.Wrapf(err, "cannot store %s", key)
	}
	return s, nil
}
