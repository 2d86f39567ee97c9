package display

import (
	_ "embed"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
)

//go:embed banner.txt
var bannerRaw string

// RenderBanner returns the banner art centred for the current terminal
// width. To change the banner just replace banner.txt.
func RenderBanner() string {
	return renderBanner(TermWidth())
}

func renderBanner(width int) string {
	art := strings.TrimRight(bannerRaw, "\n")
	if art == "" {
		return ""
	}
	block := BannerStyle.Render(art)
	if lipgloss.Width(block) >= width {
		return block + "\n"
	}
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, block) + "\n"
}

// TermWidth returns the current terminal column count, or 80 as fallback.
func TermWidth() int {
	if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
		return w
	}
	return 80
}
