package llm

import "context"

// cannedReply is the fixed answer CannedClient gives. It must stay
// interpretable as a final breakdown.
const cannedReply = `{"breakdown": [
	{"item": "Scrambled Eggs", "portion": "2 eggs", "calories": 180, "protein_grams": 12, "carbs_grams": 2, "fat_grams": 13},
	{"item": "Buttered Toast", "portion": "1 slice", "calories": 160, "protein_grams": 4, "carbs_grams": 19, "fat_grams": 7}
]}`

// CannedClient is the PLATELENS_TEST_MODE chat backend. It answers every
// request with the same fixed breakdown, so the full upload flow can be
// exercised without an API key or network access.
type CannedClient struct{}

func (CannedClient) Chat(_ context.Context, _ *ChatRequest) (*ChatResponse, error) {
	return &ChatResponse{Text: cannedReply}, nil
}
