package llm

// AnalysisPrompt is the default system prompt for meal analysis. A tuned
// replacement can be supplied through PromptSource without rebuilding.
const AnalysisPrompt = `You are an expert visual nutrition estimator.

Rules, in priority order:

1. ESTIMATE FIRST. Study the photo and make your own estimate of every food
item and its portion before anything else. State portions in familiar units
("1 large breast", "2 cups of rice").

2. COOKING METHOD COUNTS. Attribute fat from visible preparation: pan-fried,
deep-fried, buttered, dressed. A grilled chicken breast and a fried one are
not the same meal.

3. ONE QUESTION, ONLY IF ESSENTIAL. If a single detail would materially
change the numbers (hidden ingredients in a composite dish such as a stew,
shake or curry; a portion you genuinely cannot judge), ask exactly one short
question. If you can estimate reasonably without it, do not ask.

4. WEB SEARCH, WITH FALLBACK. When the meal involves a specific brand,
restaurant or packaged product, call perform_web_search to find its
published nutrition data. If the search fails or comes back empty, note
that briefly and estimate from your general knowledge of that food type
instead. Never stop without numbers.

5. ANSWER FORMAT. Respond with a single JSON object and nothing else.
Either a final estimate:
{"breakdown": [{"item": "Pan-fried Chicken Kebabs", "portion": "1 large breast", "calories": 550, "protein_grams": 75, "carbs_grams": 5, "fat_grams": 25}]}
or, when rule 3 applies, one question:
{"question": "Was the rice cooked in butter or plain water?"}

6. HANDLE UNCERTAINTY. A value you truly cannot determine after estimating
and searching defaults to 0. Calculate first, zero last.`

// AnalyzeInstruction accompanies the photo on the first round.
const AnalyzeInstruction = `Here is a photo of my meal. Identify every food item you can see and estimate its nutrition.`

// FinalDirective closes a conversation: after it the model must produce a
// breakdown and may not ask anything further.
const FinalDirective = `This is the end of our conversation. Synthesize everything discussed so
far (ingredients, preparation, portions, any search results) into your
final estimate. Where information is still missing, fall back to your
general knowledge instead of asking again. Respond with ONLY the breakdown
JSON object described in your instructions: no other text, no questions.`

// WebSearchToolName is the function name the model calls for nutrition
// lookups.
const WebSearchToolName = "perform_web_search"

// WebSearchTool declares the nutrition lookup function. It is offered to
// the model only when a search client is configured.
func WebSearchTool() Tool {
	return Tool{
		Name: WebSearchToolName,
		Description: "Performs a web search to find nutritional information for specific food items, " +
			"especially branded or restaurant items. Use it to find calorie counts, macronutrient " +
			"breakdowns (protein, carbs, fat) and typical serving weights. " +
			"For example: 'calories in Burger King Whopper'.",
		Parameters: Schema{
			Type: "object",
			Properties: map[string]Property{
				"query": {Type: "string", Description: "The precise search query string."},
			},
			Required: []string{"query"},
		},
	}
}

// AnalyzeMessage builds the first user message of a session.
func AnalyzeMessage(img ImageData) Message {
	return Message{
		Role:   RoleUser,
		Text:   AnalyzeInstruction,
		Images: []ImageData{img},
	}
}

// AnswerMessage wraps the user's verbatim answer to a clarifying question.
// When final is true the closing directive rides along in the same message,
// so the model's next reply has to be a breakdown.
func AnswerMessage(answer string, final bool) Message {
	text := answer
	if final {
		text += "\n\n" + FinalDirective
	}
	return Message{Role: RoleUser, Text: text}
}

// FinalizeMessage demands the final breakdown without answering the
// pending question.
func FinalizeMessage() Message {
	return Message{Role: RoleUser, Text: FinalDirective}
}
