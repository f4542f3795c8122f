package signals

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/earnscope/earnscope/internal/domain"
)

func oiContract(typ domain.OptionType, strike float64, oi int64) domain.ContractSnapshot {
	c := contract(typ, strike, nil, nil)
	c.Contract.OptionSymbol = fmt.Sprintf("%s-%.0f", typ, strike)
	c.Market.OpenInterest = domain.Int64(oi)
	return c
}

func TestATMWindowStrikes(t *testing.T) {
	chain := []domain.ContractSnapshot{
		oiContract(domain.Call, 90, 0),
		oiContract(domain.Call, 95, 0),
		oiContract(domain.Call, 100, 0),
		oiContract(domain.Put, 105, 0),
		oiContract(domain.Put, 110, 0),
		oiContract(domain.Put, 115, 0),
	}

	got := ATMWindowStrikes(chain, 101)
	assert.Equal(t, []float64{90, 95, 100, 105, 110}, got)
}

func TestATMWindowStrikes_EdgeOfLadder(t *testing.T) {
	chain := []domain.ContractSnapshot{
		oiContract(domain.Call, 100, 0),
		oiContract(domain.Call, 105, 0),
		oiContract(domain.Call, 110, 0),
	}
	got := ATMWindowStrikes(chain, 99)
	assert.Equal(t, []float64{100, 105, 110}, got)
}

func TestOIDelta(t *testing.T) {
	chain := []domain.ContractSnapshot{
		oiContract(domain.Call, 100, 500),
		oiContract(domain.Put, 100, 300),
		oiContract(domain.Call, 200, 9999), // outside the window
	}
	prior := map[string]int64{
		chain[0].Contract.OptionSymbol: 400,
		chain[1].Contract.OptionSymbol: 350,
	}

	dCalls, dPuts := OIDelta(chain[:2], 100, prior)
	require.NotNil(t, dCalls)
	require.NotNil(t, dPuts)
	assert.Equal(t, int64(100), *dCalls)
	assert.Equal(t, int64(-50), *dPuts)
}

func TestOIDelta_AbsentPriorCountsAsZero(t *testing.T) {
	chain := []domain.ContractSnapshot{
		oiContract(domain.Call, 100, 500),
	}
	dCalls, dPuts := OIDelta(chain, 100, map[string]int64{})
	require.NotNil(t, dCalls)
	assert.Equal(t, int64(500), *dCalls)
	assert.Nil(t, dPuts)
}

func TestOIDelta_EmptyChain(t *testing.T) {
	dCalls, dPuts := OIDelta(nil, 100, nil)
	assert.Nil(t, dCalls)
	assert.Nil(t, dPuts)
}
