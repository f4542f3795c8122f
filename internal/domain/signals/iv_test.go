package signals

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/earnscope/earnscope/internal/domain"
)

func contract(typ domain.OptionType, strike float64, iv, delta *float64) domain.ContractSnapshot {
	return domain.ContractSnapshot{
		Contract: domain.OptionContract{
			OptionSymbol: "TEST",
			Symbol:       "TEST",
			Expiry:       time.Date(2026, 9, 18, 0, 0, 0, 0, time.UTC),
			Strike:       strike,
			Type:         typ,
		},
		Market: domain.MarketSnapshot{IV: iv, Delta: delta},
	}
}

func TestInterpIVAtDelta(t *testing.T) {
	chain := []domain.ContractSnapshot{
		contract(domain.Call, 100, domain.Float(0.50), domain.Float(0.60)),
		contract(domain.Call, 105, domain.Float(0.45), domain.Float(0.40)),
		contract(domain.Call, 110, domain.Float(0.42), domain.Float(0.20)),
	}

	got := InterpIVAtDelta(chain, 0.25, domain.Call)
	require.NotNil(t, got)
	// 0.25 sits a quarter of the way from delta 0.20 to 0.40.
	assert.InDelta(t, 0.42+0.25*(0.45-0.42), *got, 1e-9)
}

func TestInterpIVAtDelta_RequiresStraddle(t *testing.T) {
	t.Run("target below observed range", func(t *testing.T) {
		chain := []domain.ContractSnapshot{
			contract(domain.Call, 100, domain.Float(0.50), domain.Float(0.60)),
			contract(domain.Call, 105, domain.Float(0.45), domain.Float(0.40)),
		}
		assert.Nil(t, InterpIVAtDelta(chain, 0.25, domain.Call))
	})

	t.Run("single usable point", func(t *testing.T) {
		chain := []domain.ContractSnapshot{
			contract(domain.Call, 100, domain.Float(0.50), domain.Float(0.30)),
		}
		assert.Nil(t, InterpIVAtDelta(chain, 0.25, domain.Call))
	})

	t.Run("missing greeks excluded", func(t *testing.T) {
		chain := []domain.ContractSnapshot{
			contract(domain.Call, 100, domain.Float(0.50), nil),
			contract(domain.Call, 105, nil, domain.Float(0.40)),
			contract(domain.Call, 110, domain.Float(0.42), domain.Float(0.20)),
		}
		assert.Nil(t, InterpIVAtDelta(chain, 0.25, domain.Call))
	})
}

func TestRiskReversal25D(t *testing.T) {
	chain := []domain.ContractSnapshot{
		contract(domain.Call, 100, domain.Float(0.48), domain.Float(0.40)),
		contract(domain.Call, 110, domain.Float(0.44), domain.Float(0.20)),
		contract(domain.Put, 95, domain.Float(0.52), domain.Float(-0.40)),
		contract(domain.Put, 90, domain.Float(0.56), domain.Float(-0.20)),
	}

	got := RiskReversal25D(chain)
	require.NotNil(t, got)
	callIV := 0.44 + 0.25*(0.48-0.44) // interpolated at |delta| 0.25
	putIV := 0.56 + 0.25*(0.52-0.56)
	assert.InDelta(t, callIV-putIV, *got, 1e-9)
}

func TestRiskReversal25D_NilWhenOneSideMissing(t *testing.T) {
	chain := []domain.ContractSnapshot{
		contract(domain.Call, 100, domain.Float(0.48), domain.Float(0.40)),
		contract(domain.Call, 110, domain.Float(0.44), domain.Float(0.20)),
	}
	assert.Nil(t, RiskReversal25D(chain))
}

func TestATMIV_InterpolatesBothSides(t *testing.T) {
	spot := domain.Float(100.0)
	chain := []domain.ContractSnapshot{
		contract(domain.Call, 95, domain.Float(0.50), nil),
		contract(domain.Call, 105, domain.Float(0.46), nil),
		contract(domain.Put, 95, domain.Float(0.54), nil),
		contract(domain.Put, 105, domain.Float(0.48), nil),
	}

	got := ATMIV(chain, spot)
	require.NotNil(t, got)
	callIV := 0.50 + 0.5*(0.46-0.50)
	putIV := 0.54 + 0.5*(0.48-0.54)
	assert.InDelta(t, (callIV+putIV)/2, *got, 1e-9)
}

func TestATMIV_NearestFallback(t *testing.T) {
	spot := domain.Float(100.0)
	chain := []domain.ContractSnapshot{
		contract(domain.Call, 98, domain.Float(0.47), nil),
		contract(domain.Put, 110, domain.Float(0.60), nil),
	}

	got := ATMIV(chain, spot)
	require.NotNil(t, got)
	assert.InDelta(t, 0.47, *got, 1e-9)
}

func TestATMIV_IgnoresFarStrikes(t *testing.T) {
	spot := domain.Float(100.0)
	chain := []domain.ContractSnapshot{
		contract(domain.Call, 150, domain.Float(0.80), nil),
	}
	assert.Nil(t, ATMIV(chain, spot))
}

func TestATMIV_NilSpot(t *testing.T) {
	chain := []domain.ContractSnapshot{
		contract(domain.Call, 100, domain.Float(0.50), nil),
	}
	assert.Nil(t, ATMIV(chain, nil))
}

func TestIVBump(t *testing.T) {
	t.Run("two neighbors", func(t *testing.T) {
		got := IVBump(domain.Float(0.60), domain.Float(0.40), domain.Float(0.44))
		require.NotNil(t, got)
		assert.InDelta(t, 0.60-0.42, *got, 1e-9)
	})

	t.Run("one neighbor", func(t *testing.T) {
		got := IVBump(domain.Float(0.60), nil, domain.Float(0.44))
		require.NotNil(t, got)
		assert.InDelta(t, 0.16, *got, 1e-9)
	})

	t.Run("no neighbors", func(t *testing.T) {
		assert.Nil(t, IVBump(domain.Float(0.60), nil, nil))
	})

	t.Run("no event ATM", func(t *testing.T) {
		assert.Nil(t, IVBump(nil, domain.Float(0.40), domain.Float(0.44)))
	})
}
