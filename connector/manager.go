package connector

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var ErrProviderNotRegistered = errors.New("provider not registered")

type standardConnector struct {
	provider Provider
	config   Config
}

var globalManager = &Manager{
	providers: make(map[string]Provider),
}

type Manager struct {
	providers map[string]Provider
	mu        sync.RWMutex
}

func Register(name string, provider Provider) {
	globalManager.mu.Lock()
	defer globalManager.mu.Unlock()
	globalManager.providers[name] = provider
}

func Registered(name string) bool {
	globalManager.mu.RLock()
	defer globalManager.mu.RUnlock()
	_, ok := globalManager.providers[name]
	return ok
}

func New(name string, config Config) (Connector, error) {
	globalManager.mu.RLock()
	provider, ok := globalManager.providers[name]
	globalManager.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotRegistered, name)
	}
	return &standardConnector{provider: provider, config: config}, nil
}

// Open validates config and connects with the provider named by config.Driver.
func Open(ctx context.Context, config Config) (Connection, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	c, err := New(config.Driver, config)
	if err != nil {
		return nil, err
	}
	return c.Connect(ctx)
}

func (c *standardConnector) Connect(ctx context.Context) (Connection, error) {
	if c.config.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.ConnectTimeout)
		defer cancel()
	}
	return c.provider.Connect(ctx, c.config)
}
