package platform

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider_Registered(t *testing.T) {
	Register("test-backend", func(opts ProviderOptions) (*Provider, error) {
		return &Provider{Name: "test-backend"}, nil
	})
	defer func() {
		registryMu.Lock()
		delete(registry, "test-backend")
		registryMu.Unlock()
	}()

	p, err := NewProvider("test-backend", ProviderOptions{})
	require.NoError(t, err)
	assert.Equal(t, "test-backend", p.Name)
	assert.Contains(t, Backends(), "test-backend")
}

func TestNewProvider_UnsupportedPlatform(t *testing.T) {
	registryMu.Lock()
	orig, had := registry[runtime.GOOS]
	delete(registry, runtime.GOOS)
	registryMu.Unlock()
	defer func() {
		if had {
			Register(runtime.GOOS, orig)
		}
	}()

	_, err := NewProvider("", ProviderOptions{})
	require.Error(t, err)
	assert.Equal(t, CodeUnsupportedPlatform, CodeOf(err))
}

func TestNewProvider_UnknownName(t *testing.T) {
	_, err := NewProvider("no-such-backend", ProviderOptions{})
	require.Error(t, err)
	assert.True(t, Is(err, CodeUnsupportedPlatform))
}
