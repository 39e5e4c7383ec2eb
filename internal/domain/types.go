package domain

import "time"

// Stage is the lifecycle position of a meal session.
type Stage string

const (
	StageUploaded       Stage = "uploaded"        // photo stored, no model call yet
	StageAwaitingAnswer Stage = "awaiting_answer" // model asked a question, waiting on the user
	StageDone           Stage = "done"            // final breakdown or raw text available
)

type Session struct {
	ID          string
	Stage       Stage
	Rounds      int    // follow-up rounds consumed so far
	Question    string // pending clarifying question while awaiting an answer
	RawResponse string // last model response text, verbatim
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type MealPhoto struct {
	ID         int64
	SessionID  string
	StorageKey string
	MimeType   string
	UploadedAt time.Time
}

type ConversationTurn struct {
	ID        int64
	SessionID string
	Round     int
	Prompt    string
	Response  string
	CreatedAt time.Time
}

type FoodItemEstimate struct {
	ID           int64
	SessionID    string
	Name         string
	Portion      string
	Calories     float64
	ProteinGrams float64
	CarbsGrams   float64
	FatGrams     float64
}

type MealTotal struct {
	Calories     float64
	ProteinGrams float64
	CarbsGrams   float64
	FatGrams     float64
}

// TotalOf sums the numeric fields of items. Totals are derived on every read,
// never stored.
func TotalOf(items []*FoodItemEstimate) MealTotal {
	var t MealTotal
	for _, item := range items {
		t.Calories += item.Calories
		t.ProteinGrams += item.ProteinGrams
		t.CarbsGrams += item.CarbsGrams
		t.FatGrams += item.FatGrams
	}
	return t
}
