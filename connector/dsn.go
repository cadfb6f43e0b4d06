package connector

import (
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// DSNBuilder assembles URL-style connection strings. Empty parameter values
// are dropped so optional settings can be passed unconditionally.
type DSNBuilder struct {
	u      url.URL
	port   int
	params map[string]string
}

func NewDSNBuilder(scheme string) *DSNBuilder {
	return &DSNBuilder{
		u:      url.URL{Scheme: scheme},
		params: make(map[string]string),
	}
}

// Auth sets the credentials. A password without a username is ignored.
func (b *DSNBuilder) Auth(username, password string) *DSNBuilder {
	switch {
	case username == "":
		b.u.User = nil
	case password == "":
		b.u.User = url.User(username)
	default:
		b.u.User = url.UserPassword(username, password)
	}
	return b
}

func (b *DSNBuilder) Host(host string, port int) *DSNBuilder {
	b.port = port
	b.u.Host = host
	if port > 0 {
		b.u.Host = net.JoinHostPort(host, strconv.Itoa(port))
	}
	return b
}

func (b *DSNBuilder) Database(name string) *DSNBuilder {
	b.u.Path = ""
	if name != "" {
		b.u.Path = "/" + name
	}
	return b
}

func (b *DSNBuilder) Param(key, value string) *DSNBuilder {
	if value != "" {
		b.params[key] = value
	}
	return b
}

func (b *DSNBuilder) Params(params map[string]string) *DSNBuilder {
	for k, v := range params {
		b.Param(k, v)
	}
	return b
}

// WithPostgresDefaults sets sslmode and connect_timeout; later calls override them.
func (b *DSNBuilder) WithPostgresDefaults() *DSNBuilder {
	return b.Param("sslmode", "prefer").
		Param("connect_timeout", "10")
}

// Validate reports a missing host or an out-of-range port as ErrInvalidConfig.
func (b *DSNBuilder) Validate() error {
	if b.u.Hostname() == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidConfig)
	}
	if b.port <= 0 || b.port > 65535 {
		return fmt.Errorf("%w: invalid port: %d", ErrInvalidConfig, b.port)
	}
	return nil
}

func (b *DSNBuilder) Build() string {
	u := b.u
	u.RawQuery = b.Query()
	return u.String()
}

// Query encodes the parameters, sorted so equal configs build equal DSNs.
func (b *DSNBuilder) Query() string {
	keys := make([]string, 0, len(b.params))
	for key := range b.params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, key := range keys {
		pairs[i] = url.QueryEscape(key) + "=" + url.QueryEscape(b.params[key])
	}
	return strings.Join(pairs, "&")
}
