package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
		found    bool
	}{
		{
			name:     "bare object",
			raw:      `{"breakdown": []}`,
			expected: `{"breakdown": []}`,
			found:    true,
		},
		{
			name:     "markdown fenced",
			raw:      "```json\n{\"question\": \"how big?\"}\n```",
			expected: `{"question": "how big?"}`,
			found:    true,
		},
		{
			name:     "surrounded by prose",
			raw:      `Sure! Here is the estimate: {"breakdown": [{"item": "Toast"}]} Hope that helps.`,
			expected: `{"breakdown": [{"item": "Toast"}]}`,
			found:    true,
		},
		{
			name:  "no object",
			raw:   "I could not analyze this image.",
			found: false,
		},
		{
			name:  "closing brace before opening",
			raw:   "} nonsense {",
			found: false,
		},
		{
			name:  "empty input",
			raw:   "",
			found: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSONObject(tt.raw)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.expected, got)
			}
		})
	}
}

func TestInterpretBreakdown(t *testing.T) {
	raw := `{"breakdown": [
		{"item": "Grilled Chicken Breast", "portion": "1 large breast", "calories": 200, "protein_grams": 35, "carbs_grams": 4, "fat_grams": 2.5},
		{"item": "White Rice", "portion": "1 cup", "calories": 350, "protein_grams": 2, "carbs_grams": 70, "fat_grams": 7}
	]}`

	got := Interpret(raw)
	require.Equal(t, ReplyBreakdown, got.Kind)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Grilled Chicken Breast", got.Items[0].Item)
	assert.Equal(t, "1 large breast", got.Items[0].Portion)
	assert.Equal(t, LooseNumber(200), got.Items[0].Calories)
	assert.Equal(t, LooseNumber(350), got.Items[1].Calories)
	assert.Equal(t, raw, got.Raw)
}

func TestInterpretQuestion(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		question string
	}{
		{
			name:     "json question field",
			raw:      `{"question": "Was the rice cooked in butter?"}`,
			question: "Was the rice cooked in butter?",
		},
		{
			name:     "bare text ending in question mark",
			raw:      "I can see a smoothie. What ingredients went into it?",
			question: "I can see a smoothie. What ingredients went into it?",
		},
		{
			name:     "fenced json question",
			raw:      "```json\n{\"question\": \"How large was the bowl?\"}\n```",
			question: "How large was the bowl?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Interpret(tt.raw)
			assert.Equal(t, ReplyQuestion, got.Kind)
			assert.Equal(t, tt.question, got.Question)
		})
	}
}

func TestInterpretOpaque(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "plain refusal", raw: "I am unable to identify any food in this image."},
		{name: "empty breakdown array", raw: `{"breakdown": []}`},
		{name: "breakdown of non-objects", raw: `{"breakdown": [1, 2, 3]}`},
		{name: "items without names", raw: `{"breakdown": [{"calories": 100}]}`},
		{name: "unrelated json", raw: `{"status": "ok"}`},
		{name: "invalid json braces", raw: "here { is not json }"},
		{name: "empty string", raw: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Interpret(tt.raw)
			assert.Equal(t, ReplyOpaque, got.Kind)
			assert.Equal(t, tt.raw, got.Raw)
		})
	}
}

func TestInterpretBreakdownWinsOverQuestion(t *testing.T) {
	raw := `{"breakdown": [{"item": "Apple", "calories": 95}], "question": "Anything else?"}`

	got := Interpret(raw)
	assert.Equal(t, ReplyBreakdown, got.Kind)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Apple", got.Items[0].Item)
	assert.Empty(t, got.Question)
}

func TestInterpretDropsNamelessItems(t *testing.T) {
	raw := `{"breakdown": [
		{"item": "Miso Soup", "calories": 80},
		{"calories": 999},
		{"item": "  ", "calories": 500}
	]}`

	got := Interpret(raw)
	require.Equal(t, ReplyBreakdown, got.Kind)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Miso Soup", got.Items[0].Item)
}

func TestLooseNumberCoercion(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected LooseNumber
	}{
		{name: "plain number", raw: `{"item": "x", "calories": 550}`, expected: 550},
		{name: "float", raw: `{"item": "x", "calories": 2.5}`, expected: 2.5},
		{name: "numeric string", raw: `{"item": "x", "calories": "320"}`, expected: 320},
		{name: "padded numeric string", raw: `{"item": "x", "calories": " 75 "}`, expected: 75},
		{name: "string with unit", raw: `{"item": "x", "calories": "550 kcal"}`, expected: 0},
		{name: "null", raw: `{"item": "x", "calories": null}`, expected: 0},
		{name: "boolean", raw: `{"item": "x", "calories": true}`, expected: 0},
		{name: "nested object", raw: `{"item": "x", "calories": {"value": 5}}`, expected: 0},
		{name: "missing", raw: `{"item": "x"}`, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Interpret(`{"breakdown": [` + tt.raw + `]}`)
			require.Equal(t, ReplyBreakdown, got.Kind)
			require.Len(t, got.Items, 1)
			assert.Equal(t, tt.expected, got.Items[0].Calories)
		})
	}
}
