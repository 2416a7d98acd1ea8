package domain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfitFactorJSON(t *testing.T) {
	t.Run("infinity renders as the string inf", func(t *testing.T) {
		p := ProfitabilityReport{Wins: 3, ProfitFactor: ProfitFactor(math.Inf(1))}
		data, err := json.Marshal(p)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"profit_factor":"inf"`)

		var decoded ProfitabilityReport
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.True(t, decoded.ProfitFactor.IsInfinite())
	})

	t.Run("finite value stays numeric", func(t *testing.T) {
		data, err := json.Marshal(ProfitFactor(1.5))
		require.NoError(t, err)
		assert.Equal(t, "1.5", string(data))

		var f ProfitFactor
		require.NoError(t, json.Unmarshal([]byte("2.5"), &f))
		assert.InDelta(t, 2.5, float64(f), 1e-9)
	})
}

func TestUnrealizedPnL(t *testing.T) {
	long := &Position{Action: ActionBuy, Size: 100, EntryPrice: 2.0}
	assert.InDelta(t, 10, long.UnrealizedPnL(2.2), 1e-9)
	assert.InDelta(t, -10, long.UnrealizedPnL(1.8), 1e-9)

	short := &Position{Action: ActionSell, Size: 100, EntryPrice: 2.0}
	assert.InDelta(t, -10, short.UnrealizedPnL(2.2), 1e-9)
	assert.InDelta(t, 10, short.UnrealizedPnL(1.8), 1e-9)

	zeroEntry := &Position{Action: ActionBuy, Size: 100}
	assert.InDelta(t, 0, zeroEntry.UnrealizedPnL(1.0), 1e-9)
}
