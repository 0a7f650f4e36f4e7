package registry

import (
	"context"
	"testing"

	"github.com/ajitpratap0/nimbus/pkg/config"
	"github.com/ajitpratap0/nimbus/pkg/connector/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource is a minimal IncrementalSource for registry tests
type fakeSource struct {
	name string
}

func (f *fakeSource) Initialize(ctx context.Context, cfg *config.BaseConfig) error { return nil }
func (f *fakeSource) FetchNextBatch(ctx context.Context, lastCheckpoint string, sourceLimit int64) (*core.FetchResult, error) {
	return &core.FetchResult{Checkpoint: lastCheckpoint}, nil
}
func (f *fakeSource) Close(ctx context.Context) error  { return nil }
func (f *fakeSource) GetState() core.State             { return core.State{} }
func (f *fakeSource) SetState(state core.State) error  { return nil }
func (f *fakeSource) Health(ctx context.Context) error { return nil }
func (f *fakeSource) Metrics() map[string]interface{}  { return nil }

func fakeFactory(name string) SourceFactory {
	return func(cfg *config.BaseConfig) (core.IncrementalSource, error) {
		return &fakeSource{name: name}, nil
	}
}

func TestRegistry_RegisterSource(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.RegisterSource("alpha", fakeFactory("alpha")))

	t.Run("duplicate registration fails", func(t *testing.T) {
		err := r.RegisterSource("alpha", fakeFactory("alpha"))
		assert.Error(t, err)
	})

	t.Run("listed after registration", func(t *testing.T) {
		assert.Contains(t, r.ListSources(), "alpha")
	})
}

func TestRegistry_CreateSource(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterSource("alpha", fakeFactory("alpha")))

	t.Run("creates registered source", func(t *testing.T) {
		source, err := r.CreateSource("alpha", config.NewBaseConfig("x", "alpha"))
		require.NoError(t, err)
		assert.NotNil(t, source)
	})

	t.Run("unknown source fails", func(t *testing.T) {
		_, err := r.CreateSource("missing", config.NewBaseConfig("x", "missing"))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "missing")
	})
}

func TestRegistry_ConnectorInfo(t *testing.T) {
	r := NewRegistry()

	info := &ConnectorInfo{
		Name:        "alpha",
		Type:        "source",
		Description: "test connector",
		Version:     "1.0.0",
	}
	require.NoError(t, r.RegisterConnectorInfo(info))

	got, ok := r.GetConnectorInfo("source", "alpha")
	require.True(t, ok)
	assert.Equal(t, "test connector", got.Description)

	_, ok = r.GetConnectorInfo("source", "beta")
	assert.False(t, ok)

	assert.Error(t, r.RegisterConnectorInfo(info))
}
