package registry

import (
	"fmt"
	"sync"

	"github.com/ajitpratap0/nimbus/pkg/config"
	"github.com/ajitpratap0/nimbus/pkg/connector/core"
	"github.com/ajitpratap0/nimbus/pkg/errors"
	"github.com/ajitpratap0/nimbus/pkg/logger"
	"go.uber.org/zap"
)

// Registry manages connector registration and instantiation
type Registry struct {
	sources map[string]SourceFactory
	infos   map[string]*ConnectorInfo
	mu      sync.RWMutex
	logger  *zap.Logger
}

// SourceFactory is a function that creates incremental source instances.
// It takes a BaseConfig and returns a configured source or an error.
type SourceFactory func(config *config.BaseConfig) (core.IncrementalSource, error)

// ConnectorInfo describes a registered connector
type ConnectorInfo struct {
	Name         string
	Type         string
	Description  string
	Version      string
	Capabilities []string
	ConfigSchema map[string]interface{}
}

// Global registry instance
var globalRegistry = NewRegistry()

// NewRegistry creates a new connector registry
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[string]SourceFactory),
		infos:   make(map[string]*ConnectorInfo),
		logger:  logger.Get().With(zap.String("component", "connector_registry")),
	}
}

// RegisterSource registers a source connector factory
func (r *Registry) RegisterSource(name string, factory SourceFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sources[name]; exists {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("source connector %s already registered", name))
	}

	r.sources[name] = factory
	r.logger.Info("source connector registered", zap.String("name", name))
	return nil
}

// RegisterConnectorInfo records descriptive metadata for a connector
func (r *Registry) RegisterConnectorInfo(info *ConnectorInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := info.Type + "/" + info.Name
	if _, exists := r.infos[key]; exists {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("connector info %s already registered", key))
	}

	r.infos[key] = info
	return nil
}

// CreateSource creates a source connector instance
func (r *Registry) CreateSource(name string, config *config.BaseConfig) (core.IncrementalSource, error) {
	r.mu.RLock()
	factory, exists := r.sources[name]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.New(errors.ErrorTypeConfig, fmt.Sprintf("source connector %s not found", name))
	}

	source, err := factory(config)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("failed to create source connector %s", name))
	}

	return source, nil
}

// ListSources returns a list of registered source connectors
func (r *Registry) ListSources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]string, 0, len(r.sources))
	for name := range r.sources {
		sources = append(sources, name)
	}
	return sources
}

// GetConnectorInfo returns registered metadata for a connector, if any
func (r *Registry) GetConnectorInfo(connectorType, name string) (*ConnectorInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, ok := r.infos[connectorType+"/"+name]
	return info, ok
}

// Package-level helpers operating on the global registry

// RegisterSource registers a source factory in the global registry
func RegisterSource(name string, factory SourceFactory) error {
	return globalRegistry.RegisterSource(name, factory)
}

// RegisterConnectorInfo registers connector metadata in the global registry
func RegisterConnectorInfo(info *ConnectorInfo) error {
	return globalRegistry.RegisterConnectorInfo(info)
}

// CreateSource creates a source from the global registry
func CreateSource(name string, config *config.BaseConfig) (core.IncrementalSource, error) {
	return globalRegistry.CreateSource(name, config)
}

// ListSources lists sources in the global registry
func ListSources() []string {
	return globalRegistry.ListSources()
}

// GetConnectorInfo fetches connector metadata from the global registry
func GetConnectorInfo(connectorType, name string) (*ConnectorInfo, bool) {
	return globalRegistry.GetConnectorInfo(connectorType, name)
}
