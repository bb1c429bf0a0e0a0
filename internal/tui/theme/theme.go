// Package theme defines color themes for the finassist terminal UI.
package theme

import "github.com/charmbracelet/lipgloss"

// Theme assigns colors to the roles used by the dashboard.
type Theme struct {
	Name string

	Background    lipgloss.Color
	Surface       lipgloss.Color // cards and panels
	SurfaceBright lipgloss.Color // active tab, selected row
	Border        lipgloss.Color
	BorderAccent  lipgloss.Color // focused input

	TextDim     lipgloss.Color
	TextMuted   lipgloss.Color
	TextPrimary lipgloss.Color

	Accent       lipgloss.Color
	AccentBright lipgloss.Color

	// Spending semantics. Rising spend is a warning, falling spend is good
	// news, and projections are set apart from recorded months.
	Rising    lipgloss.Color
	Falling   lipgloss.Color
	Projected lipgloss.Color

	Green       lipgloss.Color
	GreenBright lipgloss.Color
	Orange      lipgloss.Color
	Red         lipgloss.Color
	Blue        lipgloss.Color
	BlueBright  lipgloss.Color
	Yellow      lipgloss.Color
	Cyan        lipgloss.Color
}

// Active is the currently selected theme.
var Active = FlexokiDark

// FlexokiDark is the default: warm, paper-inspired and dark.
var FlexokiDark = Theme{
	Name:          "flexoki-dark",
	Background:    "#100F0F",
	Surface:       "#1C1B1A",
	SurfaceBright: "#343331",
	Border:        "#403E3C",
	BorderAccent:  "#3AA99F",
	TextDim:       "#575653",
	TextMuted:     "#878580",
	TextPrimary:   "#FFFCF0",
	Accent:        "#3AA99F",
	AccentBright:  "#5BC8BE",
	Rising:        "#DA702C",
	Falling:       "#879A39",
	Projected:     "#CE5D97",
	Green:         "#879A39",
	GreenBright:   "#A3B859",
	Orange:        "#DA702C",
	Red:           "#D14D41",
	Blue:          "#4385BE",
	BlueBright:    "#6BA3D6",
	Yellow:        "#D0A215",
	Cyan:          "#24837B",
}

// FlexokiLight is the same palette on paper, for light terminals.
var FlexokiLight = Theme{
	Name:          "flexoki-light",
	Background:    "#FFFCF0",
	Surface:       "#F2F0E5",
	SurfaceBright: "#E6E4D9",
	Border:        "#DAD8CE",
	BorderAccent:  "#24837B",
	TextDim:       "#B7B5AC",
	TextMuted:     "#6F6E69",
	TextPrimary:   "#100F0F",
	Accent:        "#24837B",
	AccentBright:  "#3AA99F",
	Rising:        "#BC5215",
	Falling:       "#66800B",
	Projected:     "#A02F6F",
	Green:         "#66800B",
	GreenBright:   "#879A39",
	Orange:        "#BC5215",
	Red:           "#AF3029",
	Blue:          "#205EA6",
	BlueBright:    "#4385BE",
	Yellow:        "#AD8301",
	Cyan:          "#24837B",
}

// TokyoNight is a cool blue and purple theme.
var TokyoNight = Theme{
	Name:          "tokyo-night",
	Background:    "#1A1B26",
	Surface:       "#24283B",
	SurfaceBright: "#414868",
	Border:        "#565F89",
	BorderAccent:  "#7AA2F7",
	TextDim:       "#565F89",
	TextMuted:     "#A9B1D6",
	TextPrimary:   "#C0CAF5",
	Accent:        "#7AA2F7",
	AccentBright:  "#A9C1FF",
	Rising:        "#FF9E64",
	Falling:       "#9ECE6A",
	Projected:     "#BB9AF7",
	Green:         "#9ECE6A",
	GreenBright:   "#B9E87A",
	Orange:        "#FF9E64",
	Red:           "#F7768E",
	Blue:          "#7AA2F7",
	BlueBright:    "#A9C1FF",
	Yellow:        "#E0AF68",
	Cyan:          "#7DCFFF",
}

// Terminal uses ANSI 16 colors only.
var Terminal = Theme{
	Name:          "terminal",
	Background:    "0",
	Surface:       "0",
	SurfaceBright: "8",
	Border:        "8",
	BorderAccent:  "6",
	TextDim:       "8",
	TextMuted:     "7",
	TextPrimary:   "15",
	Accent:        "6",
	AccentBright:  "14",
	Rising:        "3",
	Falling:       "2",
	Projected:     "5",
	Green:         "2",
	GreenBright:   "10",
	Orange:        "3",
	Red:           "1",
	Blue:          "4",
	BlueBright:    "12",
	Yellow:        "3",
	Cyan:          "6",
}

// All available themes, in display order.
var All = []Theme{FlexokiDark, FlexokiLight, TokyoNight, Terminal}

// ByName returns a theme by its name, defaulting to FlexokiDark.
func ByName(name string) Theme {
	for _, t := range All {
		if t.Name == name {
			return t
		}
	}
	return FlexokiDark
}

// SetActive sets the active theme by name.
func SetActive(name string) {
	Active = ByName(name)
}

// Names lists the selectable theme names.
func Names() []string {
	out := make([]string, len(All))
	for i, t := range All {
		out[i] = t.Name
	}
	return out
}
