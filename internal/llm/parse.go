package llm

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ReplyKind classifies a model reply after interpretation.
type ReplyKind int

const (
	// ReplyOpaque is anything that matches neither shape below; the raw
	// text is all we have.
	ReplyOpaque ReplyKind = iota
	// ReplyBreakdown is a final per-item nutrition estimate.
	ReplyBreakdown
	// ReplyQuestion is a single clarifying question for the user.
	ReplyQuestion
)

func (k ReplyKind) String() string {
	switch k {
	case ReplyBreakdown:
		return "breakdown"
	case ReplyQuestion:
		return "question"
	default:
		return "opaque"
	}
}

// LooseNumber decodes JSON numbers and numeric strings; anything else
// (null, strings with units baked in, nested objects) becomes 0. One bad
// value must not sink the rest of the breakdown.
type LooseNumber float64

func (n *LooseNumber) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = LooseNumber(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*n = LooseNumber(parsed)
			return nil
		}
	}
	*n = 0
	return nil
}

// BreakdownItem mirrors one entry of the model's breakdown array.
type BreakdownItem struct {
	Item         string      `json:"item"`
	Portion      string      `json:"portion"`
	Calories     LooseNumber `json:"calories"`
	ProteinGrams LooseNumber `json:"protein_grams"`
	CarbsGrams   LooseNumber `json:"carbs_grams"`
	FatGrams     LooseNumber `json:"fat_grams"`
}

// Interpretation is the app-level reading of one model reply.
type Interpretation struct {
	Kind     ReplyKind
	Items    []BreakdownItem
	Question string
	Raw      string
}

// ExtractJSONObject returns the widest {...} slice of raw. Models wrap
// their JSON in prose or markdown fences; slicing from the first "{" to the
// last "}" strips both.
func ExtractJSONObject(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return raw[start : end+1], true
}

// Interpret classifies a model reply as a breakdown, a clarifying question,
// or opaque text. Model output is untrusted, so interpretation never fails:
// a reply matching neither shape comes back as ReplyOpaque with the raw
// text preserved. A breakdown wins over a question when both are present.
func Interpret(raw string) Interpretation {
	out := Interpretation{Kind: ReplyOpaque, Raw: raw}

	if jsonStr, ok := ExtractJSONObject(raw); ok {
		var envelope struct {
			Breakdown json.RawMessage `json:"breakdown"`
			Question  string          `json:"question"`
		}
		if err := json.Unmarshal([]byte(jsonStr), &envelope); err == nil {
			if items, ok := decodeBreakdown(envelope.Breakdown); ok {
				out.Kind = ReplyBreakdown
				out.Items = items
				return out
			}
			if q := strings.TrimSpace(envelope.Question); q != "" {
				out.Kind = ReplyQuestion
				out.Question = q
				return out
			}
		}
	}

	// The model does not always wrap its questions in JSON; bare text that
	// reads as a question still counts.
	if trimmed := strings.TrimSpace(raw); strings.HasSuffix(trimmed, "?") {
		out.Kind = ReplyQuestion
		out.Question = trimmed
	}
	return out
}

// decodeBreakdown accepts a non-empty array of objects that name an item.
// Entries without a name are dropped rather than failing the rest.
func decodeBreakdown(raw json.RawMessage) ([]BreakdownItem, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, false
	}
	items := make([]BreakdownItem, 0, len(elems))
	for _, elem := range elems {
		var item BreakdownItem
		if err := json.Unmarshal(elem, &item); err != nil {
			continue
		}
		if strings.TrimSpace(item.Item) == "" {
			continue
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return nil, false
	}
	return items, true
}
