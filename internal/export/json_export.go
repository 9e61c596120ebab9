package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/heartline/heartline/internal/memory"
	"github.com/heartline/heartline/internal/sentiment"
)

// JSONExporter renders ExportData as structured JSON. LoadJSON reads it back.
type JSONExporter struct{}

type jsonOutput struct {
	Version  int           `json:"version"`
	Profile  jsonProfile   `json:"profile"`
	Sessions []jsonSession `json:"sessions"`
}

type jsonProfile struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	AddressedAs string             `json:"addressed_as"`
	Traits      map[string]float64 `json:"traits,omitempty"`
}

type jsonSession struct {
	ID        string     `json:"id"`
	StartedAt time.Time  `json:"started_at"`
	Turns     []jsonTurn `json:"turns"`
}

type jsonTurn struct {
	Role      string            `json:"role"`
	Text      string            `json:"text"`
	At        time.Time         `json:"at"`
	Method    string            `json:"method,omitempty"`
	Sentiment *sentiment.Result `json:"sentiment,omitempty"`
}

const jsonVersion = 1

func (e *JSONExporter) Export(data ExportData) (string, error) {
	p := data.Profile
	out := jsonOutput{
		Version: jsonVersion,
		Profile: jsonProfile{
			ID:          p.ID,
			Name:        p.Name,
			AddressedAs: p.Address(),
			Traits:      p.Traits,
		},
		Sessions: make([]jsonSession, 0, len(data.Sessions)),
	}
	for _, s := range data.Sessions {
		js := jsonSession{ID: s.Summary.ID, StartedAt: s.Summary.StartedAt, Turns: make([]jsonTurn, 0, len(s.Turns))}
		for _, t := range s.Turns {
			js.Turns = append(js.Turns, jsonTurn{
				Role:      string(t.Role),
				Text:      t.Text,
				At:        t.At,
				Method:    t.Method,
				Sentiment: t.Sentiment,
			})
		}
		out.Sessions = append(out.Sessions, js)
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}

// LoadJSON parses a JSON export back into ExportData.
func LoadJSON(r io.Reader) (ExportData, error) {
	var in jsonOutput
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return ExportData{}, fmt.Errorf("export: decode json: %w", err)
	}
	if in.Version != jsonVersion {
		return ExportData{}, fmt.Errorf("export: unsupported version %d", in.Version)
	}

	data := ExportData{Profile: memory.Profile{
		ID:          in.Profile.ID,
		Name:        in.Profile.Name,
		AddressedAs: in.Profile.AddressedAs,
		Traits:      in.Profile.Traits,
	}}
	for _, js := range in.Sessions {
		s := Session{Summary: memory.SessionSummary{
			ID:        js.ID,
			ProfileID: in.Profile.ID,
			StartedAt: js.StartedAt,
			Turns:     len(js.Turns),
		}}
		for _, jt := range js.Turns {
			s.Turns = append(s.Turns, memory.Turn{
				Role:      memory.Role(jt.Role),
				Text:      jt.Text,
				At:        jt.At,
				Method:    jt.Method,
				Sentiment: jt.Sentiment,
			})
			s.Summary.LastAt = jt.At
		}
		data.Sessions = append(data.Sessions, s)
	}
	return data, nil
}
