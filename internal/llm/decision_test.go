package llm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDecisions_WellFormedJSON(t *testing.T) {
	raw := `[{"symbol":"BTC/USDT","action":"open_long","confidence":83}]`
	result := ParseDecisions(raw)
	require.NoError(t, result.Err)
	require.Len(t, result.Decisions, 1)
	require.Equal(t, ActionOpenLong, result.Decisions[0].Action)
}

func TestParseDecisions_RelaxedRetryStripsCodeFences(t *testing.T) {
	raw := "```json\n[{\"symbol\":\"ETH/USDT\",\"action\":\"hold\",\"confidence\":50}]\n```"
	result := ParseDecisions(raw)
	require.NoError(t, result.Err)
	require.Len(t, result.Decisions, 1)
	require.Equal(t, ActionHold, result.Decisions[0].Action)
}

func TestParseDecisions_PersistentFailureKeepsRaw(t *testing.T) {
	raw := "not json at all"
	result := ParseDecisions(raw)
	require.Error(t, result.Err)
	require.Empty(t, result.Decisions)
	require.Equal(t, raw, result.Raw)
}
