package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/earnscope/earnscope/internal/domain"
)

func flowContract(typ domain.OptionType, volume, last float64) domain.ContractSnapshot {
	c := contract(typ, 100, nil, nil)
	c.Market.Volume = domain.Float(volume)
	if last > 0 {
		c.Market.Last = domain.Float(last)
	}
	return c
}

func TestPCR(t *testing.T) {
	chain := []domain.ContractSnapshot{
		flowContract(domain.Call, 200, 2.0),
		flowContract(domain.Put, 100, 3.0),
	}

	got := PCR(chain)
	require.NotNil(t, got.Volume)
	require.NotNil(t, got.Notional)
	assert.InDelta(t, 0.5, *got.Volume, 1e-9)
	// Notional weights volume by price and the 100x contract multiplier.
	assert.InDelta(t, (100*3.0*100)/(200*2.0*100), *got.Notional, 1e-9)
}

func TestPCR_NilWhenNoCallVolume(t *testing.T) {
	chain := []domain.ContractSnapshot{
		flowContract(domain.Put, 100, 3.0),
	}
	got := PCR(chain)
	assert.Nil(t, got.Volume)
	assert.Nil(t, got.Notional)
}

func TestPCR_UnpricedContractsExcludedFromNotionalOnly(t *testing.T) {
	unpriced := flowContract(domain.Call, 500, 0)
	chain := []domain.ContractSnapshot{
		unpriced,
		flowContract(domain.Call, 100, 2.0),
		flowContract(domain.Put, 100, 2.0),
	}

	got := PCR(chain)
	require.NotNil(t, got.Volume)
	require.NotNil(t, got.Notional)
	assert.InDelta(t, 100.0/600.0, *got.Volume, 1e-9)
	assert.InDelta(t, 1.0, *got.Notional, 1e-9)
}

func TestContractPrice_PrefersLastThenMid(t *testing.T) {
	m := domain.MarketSnapshot{
		Last: domain.Float(2.5),
		Bid:  domain.Float(2.0),
		Ask:  domain.Float(3.0),
	}
	got := contractPrice(m)
	require.NotNil(t, got)
	assert.InDelta(t, 2.5, *got, 1e-9)

	m.Last = nil
	got = contractPrice(m)
	require.NotNil(t, got)
	assert.InDelta(t, 2.5, *got, 1e-9)

	m.Bid = nil
	assert.Nil(t, contractPrice(m))
}

func TestVolumeThrust(t *testing.T) {
	chain := []domain.ContractSnapshot{
		flowContract(domain.Call, 3000, 0),
		flowContract(domain.Put, 1000, 0),
	}
	baseline := VolumeBaseline{CallMed20: 1000, PutMed20: 1000}

	got := VolumeThrust(chain, baseline)
	require.NotNil(t, got.Calls)
	require.NotNil(t, got.Puts)
	require.NotNil(t, got.Net)
	assert.InDelta(t, 2.0, *got.Calls, 1e-9)
	assert.InDelta(t, 0.0, *got.Puts, 1e-9)
	assert.InDelta(t, 2.0, *got.Net, 1e-9)
}

func TestVolumeThrust_NetRequiresBothSides(t *testing.T) {
	chain := []domain.ContractSnapshot{
		flowContract(domain.Call, 3000, 0),
	}
	got := VolumeThrust(chain, VolumeBaseline{CallMed20: 1000})
	assert.NotNil(t, got.Calls)
	assert.Nil(t, got.Puts)
	assert.Nil(t, got.Net)
}

func TestEstimateBaseline(t *testing.T) {
	bars := []domain.Bar{
		{Volume: 1_000_000},
		{Volume: 2_000_000},
		{Volume: 3_000_000},
	}
	got := EstimateBaseline(bars)
	// Median 2M, 5% option share split 60/40.
	assert.InDelta(t, 2_000_000*0.05*0.60, got.CallMed20, 1e-6)
	assert.InDelta(t, 2_000_000*0.05*0.40, got.PutMed20, 1e-6)
}

func TestEstimateBaseline_Fallback(t *testing.T) {
	got := EstimateBaseline(nil)
	assert.Equal(t, float64(10000), got.CallMed20)
	assert.Equal(t, float64(8000), got.PutMed20)
}
