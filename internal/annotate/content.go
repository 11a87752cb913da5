package annotate

import (
	"bytes"
	"fmt"
	"strconv"
)

// Resource names registered by the pipeline in each page's resource
// dictionaries. The prefix keeps them from colliding with names already used
// by the source document.
const (
	fontRegularName = "MgHelv"
	fontBoldName    = "MgHelvB"
	highlightGSName = "MgAlpha"
)

// contentWriter accumulates PDF content-stream operators for one page. Draw
// primitives never fail; text primitives fail when the string cannot be
// encoded for the standard fonts, mirroring the per-item draw errors the
// renderers are required to isolate.
type contentWriter struct {
	buf bytes.Buffer
}

func (w *contentWriter) Bytes() []byte {
	return w.buf.Bytes()
}

func (w *contentWriter) Empty() bool {
	return w.buf.Len() == 0
}

// num formats a coordinate with enough precision for the 0.1-unit placement
// scale while keeping streams compact.
func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FillRect draws a rectangle filled at the given alpha and stroked with a
// 1pt border of the same color. Degenerate rectangles (zero or negative
// width) are emitted as-is; viewers render them as invisible boxes.
func (w *contentWriter) FillRect(r Rect, c RGB) {
	fmt.Fprintf(&w.buf, "q\n/%s gs\n%s %s %s rg\n%s %s %s RG\n1 w\n%s %s %s %s re\nB\nQ\n",
		highlightGSName,
		num(c.R), num(c.G), num(c.B),
		num(c.R), num(c.G), num(c.B),
		num(r.X), num(r.Y), num(r.W), num(r.H))
}

// Line draws a stroked line segment.
func (w *contentWriter) Line(x1, y1, x2, y2, width float64, c RGB) {
	fmt.Fprintf(&w.buf, "q\n%s %s %s RG\n%s w\n%s %s m\n%s %s l\nS\nQ\n",
		num(c.R), num(c.G), num(c.B), num(width),
		num(x1), num(y1), num(x2), num(y2))
}

// Text draws a single line of text at (x, y) in the named font.
func (w *contentWriter) Text(s, font string, size, x, y float64, c RGB) error {
	enc, err := encodeWinAnsi(s)
	if err != nil {
		return err
	}
	fmt.Fprintf(&w.buf, "q\nBT\n/%s %s Tf\n%s %s %s rg\n%s %s Td\n",
		font, num(size), num(c.R), num(c.G), num(c.B), num(x), num(y))
	w.buf.Write(enc)
	w.buf.WriteString(" Tj\nET\nQ\n")
	return nil
}

// TextClipped draws text like Text but clips it to a box maxWidth wide around
// the baseline, so overlong runs stop at the given width instead of spilling
// across the page.
func (w *contentWriter) TextClipped(s, font string, size, x, y float64, c RGB, maxWidth float64) error {
	enc, err := encodeWinAnsi(s)
	if err != nil {
		return err
	}
	fmt.Fprintf(&w.buf, "q\n%s %s %s %s re\nW n\nBT\n/%s %s Tf\n%s %s %s rg\n%s %s Td\n",
		num(x), num(y-0.3*size), num(maxWidth), num(1.6*size),
		font, num(size), num(c.R), num(c.G), num(c.B), num(x), num(y))
	w.buf.Write(enc)
	w.buf.WriteString(" Tj\nET\nQ\n")
	return nil
}

// winAnsiSpecials maps the runes in the 0x80-0x9F window of WinAnsiEncoding,
// which differs from Latin-1 there. See PDF Reference Table D.2.
var winAnsiSpecials = map[rune]byte{
	'€': 0x80, // euro
	'‚': 0x82,
	'ƒ': 0x83,
	'„': 0x84,
	'…': 0x85, // ellipsis
	'†': 0x86,
	'‡': 0x87,
	'ˆ': 0x88,
	'‰': 0x89,
	'Š': 0x8a,
	'‹': 0x8b,
	'Œ': 0x8c,
	'Ž': 0x8e,
	'‘': 0x91,
	'’': 0x92,
	'“': 0x93,
	'”': 0x94,
	'•': 0x95,
	'–': 0x96, // en dash
	'—': 0x97, // em dash
	'˜': 0x98,
	'™': 0x99,
	'š': 0x9a,
	'›': 0x9b,
	'œ': 0x9c,
	'ž': 0x9e,
	'Ÿ': 0x9f,
}

// encodeWinAnsi converts s to a parenthesized PDF string literal in
// WinAnsiEncoding. Runes outside the encoding produce an error, which the
// renderers treat as a per-item draw failure.
func encodeWinAnsi(s string) ([]byte, error) {
	var out bytes.Buffer
	out.WriteByte('(')
	for _, r := range s {
		var b byte
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			b = ' '
		case r < 0x80:
			b = byte(r)
		case r >= 0xa0 && r <= 0xff:
			b = byte(r)
		default:
			sp, ok := winAnsiSpecials[r]
			if !ok {
				return nil, fmt.Errorf("cannot encode %q in WinAnsiEncoding", r)
			}
			b = sp
		}
		switch b {
		case '(', ')', '\\':
			out.WriteByte('\\')
			out.WriteByte(b)
		default:
			out.WriteByte(b)
		}
	}
	out.WriteByte(')')
	return out.Bytes(), nil
}
