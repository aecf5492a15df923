// Package notifier delivers the entry-saved webhook. The payload shape is
// fixed by the receiving automation: {uid, calories, protein, carbs, fat, notes}.
package notifier

import (
	"context"
	"errors"
	"strings"

	"macrotrack/internal/model"
)

// Backend names, used as the metrics label.
const (
	BackendHTTP   = "http"
	BackendQueue  = "queue"
	BackendPubSub = "pubsub"
)

var ErrNoTarget = errors.New("notification has no target url")

// Payload is the JSON body posted to the webhook.
type Payload struct {
	UID      string  `json:"uid"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Notes    string  `json:"notes"`
}

// Notification is one webhook call. It is also the envelope stored on the
// queue and published on the topic.
type Notification struct {
	TargetURL string  `json:"target_url"`
	EntryID   string  `json:"entry_id"`
	Payload   Payload `json:"payload"`
}

// Notifier sends a notification or hands it to something that will.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// FormatNotes combines the food name with its notes as "<name> - <notes>",
// unless the notes already mention the name.
func FormatNotes(name, notes string) string {
	name = strings.TrimSpace(name)
	notes = strings.TrimSpace(notes)
	switch {
	case notes == "":
		return name
	case name == "":
		return notes
	case strings.Contains(strings.ToLower(notes), strings.ToLower(name)):
		return notes
	default:
		return name + " - " + notes
	}
}

// ForEntry builds the notification for a saved entry.
func ForEntry(targetURL string, e model.FoodEntry) Notification {
	return Notification{
		TargetURL: targetURL,
		EntryID:   e.ID,
		Payload: Payload{
			UID:      e.UserID,
			Calories: e.Macros.Calories,
			Protein:  e.Macros.Protein,
			Carbs:    e.Macros.Carbs,
			Fat:      e.Macros.Fat,
			Notes:    FormatNotes(e.Name, e.Notes),
		},
	}
}
