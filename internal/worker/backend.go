package worker

import (
	"fmt"
	"net/http"
	"strings"
)

// Backend selects a worker implementation.
type Backend int

const (
	BackendMock Backend = iota
	BackendOpenAI
	BackendAnthropic
)

var backendNames = map[Backend]string{
	BackendMock:      "mock",
	BackendOpenAI:    "openai",
	BackendAnthropic: "anthropic",
}

func (b Backend) String() string {
	if name, ok := backendNames[b]; ok {
		return name
	}
	return fmt.Sprintf("Backend(%d)", int(b))
}

// ParseBackend maps a configuration value to a Backend. Matching is case
// insensitive.
func ParseBackend(s string) (Backend, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for b, name := range backendNames {
		if name == needle {
			return b, nil
		}
	}
	return 0, fmt.Errorf("unknown worker backend %q (want mock, openai or anthropic)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (b Backend) MarshalText() ([]byte, error) {
	if _, ok := backendNames[b]; !ok {
		return nil, fmt.Errorf("unknown worker backend %d", int(b))
	}
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Backend) UnmarshalText(text []byte) error {
	parsed, err := ParseBackend(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// Option configures New.
type Option func(*options)

type options struct {
	httpClient *http.Client
}

// WithHTTPClient overrides the HTTP client used by remote backends.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// New builds the worker described by spec.
func New(spec Spec, opts ...Option) (Worker, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	switch spec.Backend {
	case BackendMock:
		return NewMock(spec.Name), nil
	case BackendOpenAI:
		return NewOpenAI(spec, o.httpClient)
	case BackendAnthropic:
		return NewAnthropic(spec, o.httpClient)
	default:
		return nil, fmt.Errorf("worker %s: unsupported backend %s", spec.Name, spec.Backend)
	}
}
