// dsn.go parses project DSNs into envelope endpoints.

package unisen

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidDSN is returned by ParseDSN for malformed DSNs.
var ErrInvalidDSN = errors.New("invalid dsn")

// DSN identifies a project on an ingestion server:
// scheme://public_key@host[:port]/[path/]project_id
type DSN struct {
	Scheme    string
	PublicKey string
	Host      string
	Path      string
	ProjectID string
	raw       string
}

// ParseDSN parses a DSN string.
func ParseDSN(raw string) (*DSN, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDSN, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidDSN, u.Scheme)
	}
	if u.User == nil || u.User.Username() == "" {
		return nil, fmt.Errorf("%w: missing public key", ErrInvalidDSN)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidDSN)
	}

	path := strings.TrimSuffix(u.Path, "/")
	idx := strings.LastIndex(path, "/")
	if idx < 0 || idx == len(path)-1 {
		return nil, fmt.Errorf("%w: missing project id", ErrInvalidDSN)
	}

	return &DSN{
		Scheme:    u.Scheme,
		PublicKey: u.User.Username(),
		Host:      u.Host,
		Path:      path[:idx],
		ProjectID: path[idx+1:],
		raw:       raw,
	}, nil
}

// EnvelopeURL returns the envelope ingestion endpoint, authenticated through
// query parameters since hosts may not allow custom auth headers.
func (d *DSN) EnvelopeURL() string {
	q := url.Values{}
	q.Set("sentry_key", d.PublicKey)
	q.Set("sentry_version", "7")
	q.Set("sentry_client", SDKName+"/"+SDKVersion)
	return fmt.Sprintf("%s://%s%s/api/%s/envelope/?%s", d.Scheme, d.Host, d.Path, d.ProjectID, q.Encode())
}

func (d *DSN) String() string {
	return d.raw
}
