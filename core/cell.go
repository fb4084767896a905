package core

import "strconv"

// colorMode discriminates how a cell color was specified.
type colorMode uint8

const (
	colorDefault colorMode = iota
	colorBase16            // SGR 30-37/90-97 (index 0-15)
	colorPalette           // SGR 38;5;n / 48;5;n
	colorRGB               // SGR 38;2;r;g;b / 48;2;r;g;b
)

// color is one foreground or background color value.
type color struct {
	mode    colorMode
	index   uint8
	r, g, b uint8
}

// attribute flags for a cell.
const (
	attrBold uint8 = 1 << iota
	attrFaint
	attrItalic
	attrUnderline
	attrBlink
	attrReverse
	attrStrike
)

// pen is the active rendition applied to written cells.
type pen struct {
	fg    color
	bg    color
	attrs uint8
}

// cell is one grid position.
type cell struct {
	r rune
	p pen
}

func blankCell(p pen) cell {
	// Erased cells keep the pen background but drop text attributes.
	return cell{r: ' ', p: pen{bg: p.bg}}
}

// sgr renders the pen as a CSI SGR sequence. The zero pen renders as a
// plain reset.
func (p pen) sgr() string {
	buf := []byte("\x1b[0")
	if p.attrs&attrBold != 0 {
		buf = append(buf, ";1"...)
	}
	if p.attrs&attrFaint != 0 {
		buf = append(buf, ";2"...)
	}
	if p.attrs&attrItalic != 0 {
		buf = append(buf, ";3"...)
	}
	if p.attrs&attrUnderline != 0 {
		buf = append(buf, ";4"...)
	}
	if p.attrs&attrBlink != 0 {
		buf = append(buf, ";5"...)
	}
	if p.attrs&attrReverse != 0 {
		buf = append(buf, ";7"...)
	}
	if p.attrs&attrStrike != 0 {
		buf = append(buf, ";9"...)
	}
	buf = appendColor(buf, p.fg, false)
	buf = appendColor(buf, p.bg, true)
	return string(append(buf, 'm'))
}

func appendColor(buf []byte, c color, background bool) []byte {
	base := 30
	if background {
		base = 40
	}
	switch c.mode {
	case colorBase16:
		code := base + int(c.index)
		if c.index >= 8 {
			code = base + 60 + int(c.index) - 8
		}
		buf = append(buf, ';')
		buf = strconv.AppendInt(buf, int64(code), 10)
	case colorPalette:
		buf = append(buf, ';')
		buf = strconv.AppendInt(buf, int64(base+8), 10)
		buf = append(buf, ";5;"...)
		buf = strconv.AppendInt(buf, int64(c.index), 10)
	case colorRGB:
		buf = append(buf, ';')
		buf = strconv.AppendInt(buf, int64(base+8), 10)
		buf = append(buf, ";2;"...)
		buf = strconv.AppendInt(buf, int64(c.r), 10)
		buf = append(buf, ';')
		buf = strconv.AppendInt(buf, int64(c.g), 10)
		buf = append(buf, ';')
		buf = strconv.AppendInt(buf, int64(c.b), 10)
	}
	return buf
}
