package trigger

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/dkorittki/imgprof/pkg/measurement"
	"github.com/pkg/errors"
)

// CacheBustParam is the query parameter carrying the submission timestamp.
const CacheBustParam = "_t"

var (
	// ErrMalformedURL indicates a URL without scheme or host.
	ErrMalformedURL = errors.New("malformed url")

	// ErrNoURLs indicates an input without any non-blank line.
	ErrNoURLs = errors.New("no urls given")
)

// Options control how submitted URLs are turned into measurement items.
type Options struct {
	// CacheBust appends CacheBustParam with Timestamp to every URL.
	CacheBust bool

	// Timestamp is computed once per submission and shared by all items.
	Timestamp int64

	// Compare enables comparison mode. It has no effect without ComparisonBase.
	Compare bool

	// ComparisonBase replaces the origin of the first URL in every counterpart.
	ComparisonBase string
}

// ParseURLList splits text into lines, trims them and drops blank lines.
func ParseURLList(text string) []string {
	var urls []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			urls = append(urls, line)
		}
	}
	return urls
}

// CacheBust appends the timestamp query parameter to u.
func CacheBust(u string, ts int64) string {
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + CacheBustParam + "=" + strconv.FormatInt(ts, 10)
}

// Origin returns the normalized scheme and host of u, e.g. "https://a.com:8443".
// The host is lowercased and the default port of the scheme is dropped, as
// browsers do.
func Origin(u string) (string, error) {
	parsed, err := url.Parse(u)
	if err != nil {
		return "", errors.Wrap(ErrMalformedURL, err.Error())
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", errors.Wrapf(ErrMalformedURL, "'%s'", u)
	}

	host := strings.ToLower(parsed.Hostname())
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port := parsed.Port(); port != "" && port != defaultPorts[parsed.Scheme] {
		host += ":" + port
	}

	return parsed.Scheme + "://" + host, nil
}

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// Host returns the host label of u, or u itself when it cannot be parsed.
func Host(u string) string {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return u
	}
	return parsed.Host
}

// Counterparts derives the comparison URL of every entry of urls.
//
// The origin of the first URL is replaced textually by base in every entry,
// so all entries are assumed to share that origin. Entries with a different
// origin are left unchanged. One trailing slash of base is ignored.
func Counterparts(urls []string, base string) ([]string, error) {
	if len(urls) == 0 {
		return nil, nil
	}

	origin, err := Origin(urls[0])
	if err != nil {
		return nil, err
	}

	base = strings.TrimSuffix(base, "/")

	out := make([]string, len(urls))
	for i, u := range urls {
		out[i] = strings.Replace(u, origin, base, 1)
	}
	return out, nil
}

// Build turns submitted URLs into pending items, in input order.
//
// In comparison mode every item gets a counterpart. When the first URL has no
// origin to substitute, counterparts stay empty and their loads fail.
func Build(urls []string, opts Options) []measurement.Item {
	compare := opts.Compare && opts.ComparisonBase != ""

	var counterparts []string
	if compare {
		var err error
		counterparts, err = Counterparts(urls, opts.ComparisonBase)
		if err != nil {
			counterparts = nil
		}
	}

	effective := func(u string) string {
		if opts.CacheBust && u != "" {
			return CacheBust(u, opts.Timestamp)
		}
		return u
	}

	items := make([]measurement.Item, len(urls))
	for i, u := range urls {
		items[i] = measurement.Item{URL: effective(u)}
		if !compare {
			continue
		}

		items[i].Compared = true
		if counterparts != nil {
			items[i].URL2 = effective(counterparts[i])
		}
	}

	return items
}

// Hosts returns the host labels of the primary and comparison side of items.
func Hosts(items []measurement.Item) (string, string) {
	if len(items) == 0 {
		return "", ""
	}

	base := Host(items[0].URL)
	if !items[0].Compared {
		return base, ""
	}
	return base, Host(items[0].URL2)
}
