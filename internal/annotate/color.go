// Package annotate renders highlight overlays and footnote blocks into the
// page content of an existing PDF document.
package annotate

// RGB is a device-RGB color with each channel in [0, 1].
type RGB struct {
	R, G, B float64
}

var palette = map[string]RGB{
	"yellow": {1, 1, 0},
	"blue":   {0, 0, 1},
	"green":  {0, 1, 0},
	"red":    {1, 0, 0},
	"purple": {0.5, 0, 0.5},
	"pink":   {1, 0.4, 0.7},
	"orange": {1, 0.6, 0},
}

// ColorNames lists the canonical highlight color names accepted by the API.
var ColorNames = []string{"yellow", "blue", "green", "red", "purple", "pink", "orange"}

// ResolveColor maps a highlight color name to its RGB value. Unknown or empty
// names resolve to yellow.
func ResolveColor(name string) RGB {
	if c, ok := palette[name]; ok {
		return c
	}
	return palette["yellow"]
}

// KnownColor reports whether name is one of the canonical highlight colors.
func KnownColor(name string) bool {
	_, ok := palette[name]
	return ok
}
