// Package llm interprets chat messages with an OpenAI chat model.
package llm

import (
	"encoding/json"
	"strconv"
	"strings"
)

// maxSearchQueries caps the number of search queries kept from a model answer.
const maxSearchQueries = 5

// Role is the speaker of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of the conversation context sent to the model.
type Turn struct {
	Role    Role
	Content string
}

// MoodAnalysis is the model's structured reading of a user message.
type MoodAnalysis struct {
	Mood          string   `json:"mood"`
	EnergyLevel   string   `json:"energyLevel"`
	SuggestedSize int      `json:"suggestedSize"`
	SearchQueries []string `json:"searchQueries"`
	Response      string   `json:"response"`

	// ignoredSize holds a suggestedSize that could not be used as a size.
	ignoredSize string
}

// UnmarshalJSON accepts energyLevel and suggestedSize as either numbers or
// strings, since models are not consistent about it. A suggestedSize that is
// not a positive number is treated as unset.
func (m *MoodAnalysis) UnmarshalJSON(data []byte) error {
	var raw struct {
		Mood          string          `json:"mood"`
		EnergyLevel   json.RawMessage `json:"energyLevel"`
		SuggestedSize json.RawMessage `json:"suggestedSize"`
		SearchQueries []string        `json:"searchQueries"`
		Response      string          `json:"response"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	m.Mood = raw.Mood
	m.Response = raw.Response
	m.EnergyLevel = scalarString(raw.EnergyLevel)

	m.SuggestedSize, m.ignoredSize = parseSize(scalarString(raw.SuggestedSize))

	m.SearchQueries = make([]string, 0, len(raw.SearchQueries))
	for _, q := range raw.SearchQueries {
		if q = strings.TrimSpace(q); q != "" {
			m.SearchQueries = append(m.SearchQueries, q)
		}
		if len(m.SearchQueries) == maxSearchQueries {
			break
		}
	}
	return nil
}

// parseSize reads a playlist size such as "20", "12.0" or "20 songs". It
// returns the unusable input alongside 0 when no positive size is found.
func parseSize(s string) (int, string) {
	if s == "" {
		return 0, ""
	}
	n := 0
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		n = int(f)
	} else {
		end := strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' })
		if end == -1 {
			end = len(s)
		}
		n, _ = strconv.Atoi(s[:end])
	}
	if n <= 0 {
		return 0, s
	}
	return n, ""
}

// scalarString renders a JSON string or number as a plain string.
func scalarString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
