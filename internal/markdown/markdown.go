// Package markdown renders task descriptions and comments for the terminal.
package markdown

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
)

var newlines = strings.NewReplacer("\r\n", "\n", "\r", "\n")

var (
	rendererMu sync.Mutex
	renderers  = map[int]*glamour.TermRenderer{}
)

// Render formats markdown text for terminal output, wrapped to width and
// indented by indentBy spaces. Blank input renders as "".
func Render(width, indentBy int, input string) string {
	value := strings.TrimRight(newlines.Replace(input), "\n")
	if strings.TrimSpace(value) == "" {
		return ""
	}
	width = max(width, 1)
	indentBy = max(indentBy, 0)
	renderWidth := max(width-indentBy, 1)

	rendered := wordwrap.String(value, renderWidth)
	if renderer := markdownRenderer(renderWidth); renderer != nil {
		if formatted, err := safeRender(renderer, value); err == nil {
			rendered = formatted
		}
	}
	rendered = strings.TrimRight(rendered, "\r\n")
	if strings.TrimSpace(rendered) == "" {
		return ""
	}
	if indentBy == 0 {
		return rendered
	}
	return indent.String(rendered, uint(indentBy))
}

// safeRender guards against panics inside the markdown renderer.
func safeRender(renderer *glamour.TermRenderer, value string) (rendered string, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			rendered = ""
			err = errRendererPanic
		}
	}()
	return renderer.Render(value)
}

func markdownRenderer(width int) *glamour.TermRenderer {
	rendererMu.Lock()
	defer rendererMu.Unlock()
	if cached, ok := renderers[width]; ok {
		return cached
	}
	style := styles.ASCIIStyleConfig
	style.Item.BlockPrefix = "- "
	style.ImageText.Format = "Image: {{.text}} ->"
	created, err := glamour.NewTermRenderer(
		glamour.WithStyles(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	renderers[width] = created
	return created
}
