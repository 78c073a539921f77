package route

import (
	"fmt"
	"strings"
)

// Color is a route stroke color from the fixed palette, stored as an uppercase hex string.
type Color string

const (
	ColorRed    Color = "#FF0000"
	ColorBlue   Color = "#0000FF"
	ColorGreen  Color = "#008000"
	ColorOrange Color = "#FFA500"
	ColorPurple Color = "#800080"
)

// Palette lists the selectable colors. The first entry is the default.
var Palette = []Color{ColorRed, ColorBlue, ColorGreen, ColorOrange, ColorPurple}

var colorNames = map[Color]string{
	ColorRed:    "red",
	ColorBlue:   "blue",
	ColorGreen:  "green",
	ColorOrange: "orange",
	ColorPurple: "purple",
}

// DefaultColor returns the first palette entry.
func DefaultColor() Color { return Palette[0] }

// IsValid returns true if the color belongs to the palette.
func (c Color) IsValid() bool {
	_, ok := colorNames[c]
	return ok
}

// Name returns the palette name of the color, e.g. "red".
func (c Color) Name() string { return colorNames[c] }

// String returns the hex representation.
func (c Color) String() string { return string(c) }

// ParseColor accepts a palette hex value (any case) or a palette name.
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if c := Color(strings.ToUpper(s)); c.IsValid() {
		return c, nil
	}
	lower := strings.ToLower(s)
	for c, name := range colorNames {
		if name == lower {
			return c, nil
		}
	}
	return "", fmt.Errorf("color %q is not in the palette", s)
}
