package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// SimpleHandler outputs events as simple tagged lines
type SimpleHandler struct {
	writer io.Writer

	tagStyle  lipgloss.Style
	okStyle   lipgloss.Style
	skipStyle lipgloss.Style

	resolved int
	skipped  int
}

// NewSimpleHandler creates a handler writing to w. Styling is applied
// only when w is a terminal.
func NewSimpleHandler(w io.Writer) *SimpleHandler {
	h := &SimpleHandler{writer: w}

	color := false
	if f, ok := w.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	if color {
		h.tagStyle = lipgloss.NewStyle().Bold(true)
		h.okStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
		h.skipStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	}
	return h
}

func (h *SimpleHandler) Handle(event Event) {
	switch event.Type {
	case EventResolveStart:
		fmt.Fprintf(h.writer, "%s Resolving %d java archives\n", h.tag("[SBOM]"), event.Count)

	case EventResolveComplete:
		fmt.Fprintf(h.writer, "%s Completed: %d entries, %d archives skipped in %.1fs\n",
			h.tag("[DONE]"), event.Count, h.skipped, event.Duration.Seconds())

	case EventArchiveClassified:
		fmt.Fprintf(h.writer, "%s %s: %s\n", h.tag("[JAR] "), event.Kind, event.Archive)

	case EventArchiveSkipped:
		h.skipped++
		fmt.Fprintf(h.writer, "%s %s (%s)\n", h.tag("[SKIP]"), event.Archive, h.skipStyle.Render(event.Reason))

	case EventRepositoryResolved:
		h.resolved++
		fmt.Fprintf(h.writer, "%s %s %s %s@%s %s\n",
			h.tag("[REPO]"), event.Archive, h.okStyle.Render("->"), event.Repo, event.Ref, event.Path)

	case EventEntryAdded:
		fmt.Fprintf(h.writer, "%s %d prefixes -> %s\n", h.tag("[MAP] "), event.Count, event.Repo)

	case EventFileWritten:
		fmt.Fprintf(h.writer, "%s Results written: %s\n", h.tag("[OUT] "), event.Path)

	case EventInfo:
		fmt.Fprintf(h.writer, "%s %s\n", h.tag("[INFO]"), event.Info)
	}
}

func (h *SimpleHandler) tag(s string) string {
	return h.tagStyle.Render(s)
}
