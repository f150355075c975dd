package document

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	cssparser "github.com/aymerick/douceur/parser"
)

const (
	// DefaultFontSize is 12pt in half-points.
	DefaultFontSize = 24
	// DefaultSpacingAfter is 10pt in twentieths of a point.
	DefaultSpacingAfter = 200
)

var leadingNumber = regexp.MustCompile(`^\s*([-+]?(?:\d+\.?\d*|\.\d+))`)

// parseCSSNumber reads the numeric prefix of a CSS length such as "16px".
func parseCSSNumber(v string) (float64, bool) {
	m := leadingNumber.FindStringSubmatch(v)
	if m == nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// ParseFontSize converts a CSS font size to half-points (value / 2, rounded).
// Unparsable or non-positive sizes fall back to 12pt.
func ParseFontSize(v string) int {
	f, ok := parseCSSNumber(v)
	if !ok || f <= 0 {
		return DefaultFontSize
	}
	size := int(math.Round(f / 2))
	if size <= 0 {
		return DefaultFontSize
	}
	return size
}

// ParseMarginBottom converts a CSS pixel margin to paragraph spacing
// (value * 2). Unparsable or zero margins fall back to 10pt.
func ParseMarginBottom(v string) int {
	f, ok := parseCSSNumber(v)
	if !ok || f <= 0 {
		return DefaultSpacingAfter
	}
	return int(math.Round(f * 2))
}

// parseInlineStyle reads a style attribute into lower-cased property names
// and their values. Later declarations win; a malformed tail is dropped.
func parseInlineStyle(style string) map[string]string {
	props := make(map[string]string)
	style = strings.TrimSpace(style)
	if style == "" {
		return props
	}
	// Declarations are only terminated by ";" or "}".
	if !strings.HasSuffix(style, ";") {
		style += ";"
	}
	decls, _ := cssparser.NewParser(style).ParseDeclarations()
	for _, decl := range decls {
		name := strings.ToLower(strings.TrimSpace(decl.Property))
		value := strings.TrimSpace(decl.Value)
		if name != "" && value != "" {
			props[name] = value
		}
	}
	return props
}

var (
	hexColor = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	rgbColor = regexp.MustCompile(`^rgba?\(\s*(\d{1,3})\s*,\s*(\d{1,3})\s*,\s*(\d{1,3})\s*(?:,\s*[\d.]+\s*)?\)$`)
)

var namedColors = map[string]string{
	"black":  "000000",
	"white":  "FFFFFF",
	"red":    "FF0000",
	"green":  "008000",
	"blue":   "0000FF",
	"yellow": "FFFF00",
	"gray":   "808080",
	"grey":   "808080",
	"orange": "FFA500",
	"purple": "800080",
}

// resolveColor converts a CSS color to the RRGGBB form used by w:color.
func resolveColor(v string) (string, bool) {
	v = strings.TrimSpace(strings.ToLower(v))
	if m := hexColor.FindStringSubmatch(v); m != nil {
		hex := m[1]
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		return strings.ToUpper(hex), true
	}
	if m := rgbColor.FindStringSubmatch(v); m != nil {
		var rgb [3]int
		for i := range rgb {
			n, err := strconv.Atoi(m[i+1])
			if err != nil || n > 255 {
				return "", false
			}
			rgb[i] = n
		}
		return fmt.Sprintf("%02X%02X%02X", rgb[0], rgb[1], rgb[2]), true
	}
	if hex, ok := namedColors[v]; ok {
		return hex, true
	}
	return "", false
}

// resolveFontFamily returns the first family of a CSS font-family list.
func resolveFontFamily(v string) (string, bool) {
	first, _, _ := strings.Cut(v, ",")
	first = strings.Trim(strings.TrimSpace(first), `"'`)
	switch strings.ToLower(first) {
	case "", "inherit", "initial", "serif", "sans-serif", "monospace", "cursive", "fantasy", "system-ui":
		return "", false
	}
	return first, true
}
