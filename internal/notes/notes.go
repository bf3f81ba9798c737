// Package notes renders savings ideas as shareable Markdown documents.
package notes

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"

	"github.com/mzeman/cloudspend/internal/spend"
)

const ideaTemplate = `# {{ .Idea.Title }}

| Field | Value |
|---|---|
| Status | {{ .Idea.Status }} |
| Service | {{ .Idea.Service }} |
| Owner | {{ .Idea.Owner | default "unassigned" }} |
| Confidence | {{ printf "%.0f%%" (mulf .Idea.Confidence 100.0) }} |
| Est. monthly saving | ${{ .Idea.EstMonthlySavingUSD }} |

## Notes

{{ .Idea.Notes | default "_No notes yet._" }}

---
_Generated {{ .GeneratedAt | date "2006-01-02 15:04 MST" }} · idea {{ .Idea.ID | trunc 8 }}_
`

// noteContext is the data handed to the template.
type noteContext struct {
	Idea        *spend.SavingsIdea
	GeneratedAt time.Time
}

// Renderer renders idea notes. The template is parsed once at construction;
// Render itself is pure apart from reading the clock.
type Renderer struct {
	tmpl *template.Template

	// now is replaceable in tests.
	now func() time.Time
}

// NewRenderer parses the note template.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("idea-note").Funcs(sprig.TxtFuncMap()).Parse(ideaTemplate)
	if err != nil {
		return nil, fmt.Errorf("NewRenderer: parsing note template: %w", err)
	}
	return &Renderer{tmpl: tmpl, now: time.Now}, nil
}

// Render produces the Markdown note for one idea.
func (r *Renderer) Render(idea *spend.SavingsIdea) (string, error) {
	var sb strings.Builder
	err := r.tmpl.Execute(&sb, noteContext{
		Idea:        idea,
		GeneratedAt: r.now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("Render: executing note template: %w", err)
	}
	return sb.String(), nil
}
