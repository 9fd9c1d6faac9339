package display

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/backmassage/clipsweep/internal/term"
)

const bannerArt = `      _ _                              
  ___| (_)_ __  _____      _____  ___ _ __  
 / __| | | '_ \/ __\ \ /\ / / _ \/ _ \ '_ \ 
| (__| | | |_) \__ \\ V  V /  __/  __/ |_) |
 \___|_|_| .__/|___/ \_/\_/ \___|\___| .__/ 
         |_|                         |_|    `

var bannerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))

// PrintBanner writes the ASCII art banner to w, in magenta when colors are
// enabled.
func PrintBanner(w io.Writer) {
	if term.Enabled() {
		fmt.Fprintln(w, bannerStyle.Render(bannerArt))
		return
	}
	fmt.Fprintln(w, bannerArt)
}
