package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/reconciler"
)

var (
	labelStyle   = lipgloss.NewStyle().Bold(true)
	urlStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	idStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	pendingStyle = lipgloss.NewStyle().Faint(true).Italic(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Faint(true)
)

const timeLayout = "2006-01-02 15:04"

// renderList prints bookmarks newest first, followed by errMsg if set.
func renderList(w io.Writer, items []domain.Bookmark, errMsg string) {
	if len(items) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No bookmarks yet."))
	}
	for _, b := range items {
		renderBookmark(w, b)
	}
	if errMsg != "" {
		fmt.Fprintln(w, errorStyle.Render(errMsg))
	}
}

func renderBookmark(w io.Writer, b domain.Bookmark) {
	id := idStyle.Render(b.ID)
	if reconciler.IsPlaceholder(b.ID) {
		id = pendingStyle.Render("saving…")
	}

	fmt.Fprintf(w, "%s  %s  %s\n", id, labelStyle.Render(b.Label()),
		mutedStyle.Render(b.CreatedAt.Local().Format(timeLayout)))
	if b.Title != "" {
		fmt.Fprintf(w, "    %s\n", urlStyle.Render(b.URL))
	}
}
