package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// ViewsChangedField is the survey field that seeds the opening prompt.
const ViewsChangedField = "views_changed"

// ChatbotInteraction holds the participant's copy of the transcript.
type ChatbotInteraction struct {
	Messages []Message `json:"messages"`
}

// Participant is the persisted participant document. Survey fields are
// flattened into the top level of the JSON object on disk.
type Participant struct {
	ID                 string
	CreatedAt          time.Time
	Survey             map[string]any
	ChatbotInteraction ChatbotInteraction
}

// ViewsChanged returns the participant's views_changed answer, "" if absent.
func (p Participant) ViewsChanged() string {
	v, _ := p.Survey[ViewsChangedField].(string)
	return v
}

var reservedParticipantKeys = map[string]struct{}{
	"id":                  {},
	"createdAt":           {},
	"chatbot_interaction": {},
}

func (p Participant) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(p.Survey)+3)
	for k, v := range p.Survey {
		if _, reserved := reservedParticipantKeys[k]; reserved {
			continue
		}
		doc[k] = v
	}
	msgs := p.ChatbotInteraction.Messages
	if msgs == nil {
		msgs = []Message{}
	}
	doc["id"] = p.ID
	doc["createdAt"] = p.CreatedAt
	doc["chatbot_interaction"] = ChatbotInteraction{Messages: msgs}
	return json.Marshal(doc)
}

func (p *Participant) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var out Participant
	if v, ok := raw["id"]; ok {
		if err := json.Unmarshal(v, &out.ID); err != nil {
			return fmt.Errorf("domain: participant id: %w", err)
		}
	}
	if v, ok := raw["createdAt"]; ok {
		if err := json.Unmarshal(v, &out.CreatedAt); err != nil {
			return fmt.Errorf("domain: participant createdAt: %w", err)
		}
	}
	if v, ok := raw["chatbot_interaction"]; ok {
		if err := json.Unmarshal(v, &out.ChatbotInteraction); err != nil {
			return fmt.Errorf("domain: participant chatbot_interaction: %w", err)
		}
	}
	out.Survey = make(map[string]any, len(raw))
	for k, v := range raw {
		if _, reserved := reservedParticipantKeys[k]; reserved {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return fmt.Errorf("domain: survey field %q: %w", k, err)
		}
		out.Survey[k] = val
	}
	*p = out
	return nil
}
