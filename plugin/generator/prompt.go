package generator

import "fmt"

// buildCardsPrompt embeds the user text and the strict output schema the
// model must follow. Identity fields in the example are placeholders; the
// backend overrides them after parsing.
func buildCardsPrompt(userText string) string {
	return fmt.Sprintf(`Create scheduling cards for this request: %q

Return JSON format:
{
    "cards": [
        {
            "type": "schedule",
            "title": "Meeting Title",
            "description": "Description here",
            "primary_action": {
                "event_title": "Meeting Name",
                "start_time": "2024-01-15T14:00:00",
                "end_time": "2024-01-15T15:00:00",
                "duration_minutes": 60
            },
            "alternatives": [
                {
                    "start_time": "2024-01-15T16:00:00",
                    "end_time": "2024-01-15T17:00:00",
                    "reason": "Later time available"
                }
            ],
            "confidence": 0.9,
            "metadata": {"urgency": "medium"}
        }
    ]
}

Card "type" is one of: schedule, reschedule, cancel, reminder, task.
Timestamps are ISO-8601. Respond with the JSON block only.`, userText)
}

// buildActionPrompt asks the model for a confirmation payload after a user
// acted on a card.
func buildActionPrompt(cardUID, action string) string {
	return fmt.Sprintf(`User action: %s on card %s.
Return JSON with fields "message" (string), "next_steps" (array of strings),
"calendar_update" (object) and "notifications" (array of strings).`, action, cardUID)
}
