package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProxyManagerRotation(t *testing.T) {
	pm := NewProxyManager([]string{"10.0.0.1:8080", "https://10.0.0.2:443", "ftp://bad"}, "", nil)
	require.True(t, pm.HasProxies())

	first, err := pm.GetCurrentProxy()
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.1:8080", first)

	pm.RotateProxy()
	second, _ := pm.GetCurrentProxy()
	assert.Equal(t, "https://10.0.0.2:443", second)

	pm.RotateProxy()
	third, _ := pm.GetCurrentProxy()
	assert.Equal(t, first, third)
	assert.Equal(t, defaultUserAgent, pm.GetUserAgent())
}

func TestProxyManagerEmpty(t *testing.T) {
	pm := NewProxyManager(nil, "custom-agent", nil)

	assert.False(t, pm.HasProxies())
	p, err := pm.GetCurrentProxy()
	assert.NoError(t, err)
	assert.Empty(t, p)
	pm.RotateProxy()
	assert.Equal(t, "custom-agent", pm.GetUserAgent())
}

func TestValidateProxy(t *testing.T) {
	assert.True(t, ValidateProxy("127.0.0.1:3128"))
	assert.True(t, ValidateProxy("socks5://127.0.0.1:1080"))
	assert.False(t, ValidateProxy(""))
	assert.False(t, ValidateProxy("ftp://127.0.0.1:21"))
}
