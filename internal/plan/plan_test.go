package plan

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionUnmarshalRejectsUnknownTag(t *testing.T) {
	var p Plan
	err := json.Unmarshal([]byte(`{"task":"t","steps":[{"action":"teleport","description":"x"}]}`), &p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "teleport")
}

func TestPlanDecodeAndValidate(t *testing.T) {
	raw := `{
		"task": "search site",
		"steps": [
			{"action": "navigate", "description": "open example", "params": {"url": "https://example.test"}},
			{"action": "search", "description": "search weather", "params": {"text": "weather"}}
		]
	}`
	var p Plan
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	require.NoError(t, p.Validate())

	assert.Equal(t, ActionNavigate, p.Steps[0].Action)
	assert.Equal(t, "https://example.test", p.Steps[0].Params.URL)
	assert.Equal(t, "weather", p.Steps[1].Params.Text)
}

func TestPlanValidateErrors(t *testing.T) {
	t.Run("empty plan", func(t *testing.T) {
		p := Plan{Task: "empty"}
		assert.Error(t, p.Validate())
	})

	t.Run("missing description", func(t *testing.T) {
		p := Plan{Task: "t", Steps: []Step{{Action: ActionClick}}}
		assert.Error(t, p.Validate())
	})

	t.Run("action outside enum", func(t *testing.T) {
		p := Plan{Task: "t", Steps: []Step{{Action: Action("hover"), Description: "d"}}}
		assert.Error(t, p.Validate())
	})
}

func TestSelectorInfoValidate(t *testing.T) {
	valid := SelectorInfo{Selector: "#q", Confidence: 0.8}
	require.NoError(t, valid.Validate())

	noSelector := SelectorInfo{Confidence: 0.8}
	assert.Error(t, noSelector.Validate())

	badConfidence := SelectorInfo{Selector: "#q", Confidence: 1.5}
	assert.Error(t, badConfidence.Validate())
}
