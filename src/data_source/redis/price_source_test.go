package redis

import (
	"testing"

	"market-stream/src/helpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "latest:mainnet:CRYPTO:BTC", Key("btc", "crypto", "MAINNET"))
}

func TestDecodePrice(t *testing.T) {
	v, err := DecodePrice([]byte(`65000.25`))
	require.NoError(t, err)
	assert.Equal(t, 65000.25, v)

	v, err = DecodePrice([]byte(`{"symbol":"BTC","price":101.5,"timestamp":1700000000}`))
	require.NoError(t, err)
	assert.Equal(t, 101.5, v)

	_, err = DecodePrice([]byte(`0`))
	assert.ErrorIs(t, err, helpers.ErrPriceUnavailable)

	_, err = DecodePrice([]byte(`not json`))
	var dse *helpers.DataSourceError
	assert.ErrorAs(t, err, &dse)
}
