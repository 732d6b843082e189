package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/figura/pkg/fallback"
	"github.com/matzehuels/figura/pkg/render/styles"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // primary actions
	colorGreen  = lipgloss.Color("35")  // success
	colorYellow = lipgloss.Color("220") // warnings
	colorBlue   = lipgloss.Color("75")  // commands
	colorWhite  = lipgloss.Color("255") // values
	colorGray   = lipgloss.Color("245") // secondary text
	colorDim    = lipgloss.Color("240") // muted text
)

// =============================================================================
// Styles
// =============================================================================

var (
	StyleTitle     = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)
	StyleDim       = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue     = lipgloss.NewStyle().Foreground(colorWhite)
	StyleWarning   = lipgloss.NewStyle().Foreground(colorYellow)

	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)
	styleCommand  = lipgloss.NewStyle().Foreground(colorBlue)
)

const (
	iconSuccess = "✓"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(format string, args ...any) {
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + fmt.Sprintf(format, args...))
}

// printDetail prints an indented, dimmed line.
func printDetail(format string, args ...any) {
	fmt.Println("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(14)
	fmt.Println(keyStyle.Render(key) + " " + StyleValue.Render(value))
}

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

// =============================================================================
// Stats Display
// =============================================================================

// docStats summarizes one generated document.
type docStats struct {
	Nodes, Edges int
	Source       fallback.Source
	Cached       bool
}

// statsLine renders stats as "7 nodes · 6 edges · local · cached".
func statsLine(s docStats) string {
	parts := []string{fmt.Sprintf("%d nodes", s.Nodes)}
	if s.Edges > 0 {
		parts = append(parts, fmt.Sprintf("%d edges", s.Edges))
	}
	if s.Source != "" {
		parts = append(parts, string(s.Source))
	}
	for i, p := range parts {
		parts[i] = StyleDim.Render(p)
	}
	status := styleComputed.Render("fresh")
	if s.Cached {
		status = styleCached.Render("cached")
	}
	parts = append(parts, status)
	return "  " + strings.Join(parts, StyleDim.Render(" · "))
}

func printStats(s docStats) {
	fmt.Println(statsLine(s))
}

// toneSwatch renders a tone name on its own surface color.
func toneSwatch(t styles.Tone) string {
	p := t.Palette()
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(styles.Hex(p.Text))).
		Background(lipgloss.Color(styles.Hex(p.Surface))).
		Padding(0, 1).
		Render(string(t))
}
