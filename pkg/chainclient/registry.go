package chainclient

import (
	"context"
	"fmt"

	"github.com/speedrun-hq/zora-runner/pkg/config"
	"github.com/speedrun-hq/zora-runner/pkg/logger"
)

// Registry holds the clients of one account run, by chain name
type Registry struct {
	clients map[string]*Client
}

// NewRegistry indexes clients by name
func NewRegistry(clients ...*Client) *Registry {
	r := &Registry{clients: make(map[string]*Client, len(clients))}
	for _, client := range clients {
		r.clients[client.Name()] = client
	}
	return r
}

// DialAll connects to every named chain through proxy. Already opened
// connections are closed if one of them fails.
func DialAll(ctx context.Context, chains map[string]config.ChainConfig, names []string, proxy string, log logger.Logger) (*Registry, error) {
	r := NewRegistry()
	for _, name := range names {
		cfg, ok := chains[name]
		if !ok {
			r.Close()
			return nil, fmt.Errorf("chain %s is not configured", name)
		}
		client, err := Dial(ctx, cfg, proxy, log)
		if err != nil {
			r.Close()
			return nil, err
		}
		r.clients[name] = client
	}
	return r, nil
}

// Get returns the client of the named chain
func (r *Registry) Get(name string) (*Client, error) {
	client, ok := r.clients[name]
	if !ok {
		return nil, fmt.Errorf("no client for chain %s", name)
	}
	return client, nil
}

// Names returns the chain names held by the registry
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	return names
}

// Close closes every client
func (r *Registry) Close() {
	for _, client := range r.clients {
		client.Close()
	}
}
