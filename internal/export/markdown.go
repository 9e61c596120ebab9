package export

import (
	"fmt"
	"strings"

	"github.com/heartline/heartline/internal/memory"
)

// MarkdownExporter renders conversations as a readable transcript.
type MarkdownExporter struct{}

func (e *MarkdownExporter) Export(data ExportData) (string, error) {
	p := data.Profile
	var b strings.Builder
	fmt.Fprintf(&b, "# Conversations with %s\n\n", p.Name)
	if len(data.Sessions) == 0 {
		b.WriteString("_No conversations yet._\n")
		return b.String(), nil
	}

	for _, s := range data.Sessions {
		fmt.Fprintf(&b, "## %s\n\n", s.Summary.StartedAt.Local().Format("Mon Jan 2 2006, 15:04"))
		for _, t := range s.Turns {
			speaker := "**You**"
			if t.Role == memory.RoleAgent {
				speaker = "**" + p.Name + "**"
			}
			fmt.Fprintf(&b, "%s: %s", speaker, t.Text)
			if t.Sentiment != nil && t.Sentiment.Label != "" {
				fmt.Fprintf(&b, " _(%s)_", t.Sentiment.Label)
			}
			b.WriteString("\n\n")
		}
	}
	return b.String(), nil
}
