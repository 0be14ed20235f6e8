package scoring

import (
	"encoding/json"
	"strings"
)

// EmailRecord is the raw input of a scoring pass. Missing fields are empty strings.
type EmailRecord struct {
	Subject  string `json:"subject"`
	Snippet  string `json:"snippet"`
	Sender   string `json:"sender"`
	Category string `json:"category,omitempty"`
	Priority string `json:"priority,omitempty"`
}

// UnmarshalJSON accepts "summary" for snippet and "from" for sender, as mail sync
// payloads use either spelling. Keys match case-insensitively, with an exact
// lowercase key winning. Non-string values decode to "" instead of failing.
func (r *EmailRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		// null or a non-object: treat as an empty record
		*r = EmailRecord{}
		return nil
	}
	raw = foldKeys(raw)

	*r = EmailRecord{
		Subject:  stringField(raw, "subject"),
		Snippet:  stringField(raw, "snippet", "summary"),
		Sender:   stringField(raw, "sender", "from"),
		Category: stringField(raw, "category"),
		Priority: stringField(raw, "priority"),
	}
	return nil
}

func foldKeys(raw map[string]json.RawMessage) map[string]json.RawMessage {
	folded := make(map[string]json.RawMessage, len(raw))
	for k, v := range raw {
		lower := strings.ToLower(k)
		if _, seen := folded[lower]; seen && k != lower {
			continue
		}
		folded[lower] = v
	}
	return folded
}

// stringField returns the first key holding a non-empty string.
func stringField(raw map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil && s != "" {
			return s
		}
	}
	return ""
}
