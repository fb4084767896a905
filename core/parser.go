package core

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

type parserState int

const (
	stateGround parserState = iota
	stateEscape
	stateCSI
	stateOSC
	stateOSCEsc
	stateEscapeSkip
)

// parser decodes a VT byte stream and applies the effects to its screen.
// State survives across feed calls so sequences split over arbitrary chunk
// boundaries are handled identically to a single contiguous write. Unknown
// or malformed sequences are dropped without disturbing the grid.
type parser struct {
	scr   *screen
	state parserState

	// Pending UTF-8 continuation bytes from a multi-byte rune cut off at a
	// chunk boundary.
	utf8Buf []byte

	csiParams  strings.Builder
	csiPrivate bool
}

func (p *parser) feed(data []byte) {
	for i := 0; i < len(data); i++ {
		b := data[i]
		switch p.state {
		case stateGround:
			p.ground(b)
		case stateEscape:
			p.escape(b)
		case stateCSI:
			p.csi(b)
		case stateOSC:
			if b == 0x07 { // BEL terminator
				p.state = stateGround
			} else if b == 0x1b {
				p.state = stateOSCEsc
			}
		case stateOSCEsc:
			// ESC \ (ST) ends the OSC string; anything else re-enters it.
			if b == '\\' {
				p.state = stateGround
			} else if b != 0x1b {
				p.state = stateOSC
			}
		case stateEscapeSkip:
			p.state = stateGround
		}
	}
}

func (p *parser) ground(b byte) {
	switch {
	case b == 0x1b:
		p.flushUTF8()
		p.state = stateEscape
	case b == '\n':
		p.flushUTF8()
		p.scr.lineFeed()
	case b == '\r':
		p.flushUTF8()
		p.scr.carriageReturn()
	case b == '\b':
		p.flushUTF8()
		p.scr.backspace()
	case b == '\t':
		p.flushUTF8()
		p.scr.tab()
	case b < 0x20 || b == 0x7f:
		// Other C0 controls and DEL are ignored.
		p.flushUTF8()
	case b < 0x80:
		p.flushUTF8()
		p.scr.writeRune(rune(b))
	default:
		p.utf8Buf = append(p.utf8Buf, b)
		p.drainUTF8()
	}
}

// drainUTF8 emits any complete runes accumulated in the buffer, keeping a
// trailing partial sequence for the next byte.
func (p *parser) drainUTF8() {
	for len(p.utf8Buf) > 0 {
		r, size := utf8.DecodeRune(p.utf8Buf)
		if r == utf8.RuneError && size == 1 {
			if !utf8.FullRune(p.utf8Buf) && len(p.utf8Buf) < utf8.UTFMax {
				return // still expecting continuation bytes
			}
			// Invalid lead byte; drop it and continue.
			p.utf8Buf = p.utf8Buf[1:]
			continue
		}
		p.scr.writeRune(r)
		p.utf8Buf = p.utf8Buf[size:]
	}
}

// flushUTF8 discards an unfinished multi-byte rune when a control byte
// interrupts it.
func (p *parser) flushUTF8() {
	p.utf8Buf = p.utf8Buf[:0]
}

func (p *parser) escape(b byte) {
	switch b {
	case '[':
		p.csiParams.Reset()
		p.csiPrivate = false
		p.state = stateCSI
	case ']':
		p.state = stateOSC
	case 'D': // IND
		p.scr.lineFeed()
		p.state = stateGround
	case 'M': // RI
		p.scr.reverseLineFeed()
		p.state = stateGround
	case 'E': // NEL
		p.scr.carriageReturn()
		p.scr.lineFeed()
		p.state = stateGround
	case '7':
		p.scr.saveCursor()
		p.state = stateGround
	case '8':
		p.scr.restoreCursor()
		p.state = stateGround
	case 'c': // RIS
		p.scr.reset()
		p.state = stateGround
	case '(', ')', '#', '%':
		// Charset and alignment designators carry one more byte; swallow it.
		p.state = stateEscapeSkip
	default:
		p.state = stateGround
	}
}

func (p *parser) csi(b byte) {
	switch {
	case b >= '<' && b <= '?':
		// Private-use markers (? < = >).
		p.csiPrivate = true
	case b >= 0x30 && b <= 0x3a || b == ';':
		// Digits, ';' separators and ':' sub-parameter separators all
		// accumulate; splitting happens at dispatch.
		p.csiParams.WriteByte(b)
	case b >= 0x40 && b <= 0x7e:
		p.dispatchCSI(b)
		p.state = stateGround
	case b >= 0x20 && b <= 0x2f:
		// Intermediate bytes; the final dispatch ignores them.
	default:
		p.state = stateGround
	}
}

// csiParam is one CSI parameter with optional colon-separated
// sub-parameters (ECMA-48 5.4.2, e.g. SGR 4:3 or 38:5:196).
type csiParam struct {
	val int
	sub []int
}

func (p *parser) params(def int) []csiParam {
	raw := p.csiParams.String()
	if raw == "" {
		return []csiParam{{val: def}}
	}
	parts := strings.Split(raw, ";")
	out := make([]csiParam, len(parts))
	for i, part := range parts {
		fields := strings.Split(part, ":")
		out[i].val = atoiDefault(fields[0], def)
		for _, f := range fields[1:] {
			out[i].sub = append(out[i].sub, atoiDefault(f, 0))
		}
	}
	return out
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func (p *parser) dispatchCSI(final byte) {
	s := p.scr
	if p.csiPrivate {
		if final == 'h' || final == 'l' {
			for _, q := range p.params(0) {
				if q.val == 25 {
					s.visible = final == 'h'
				}
			}
		}
		return
	}

	ps := p.params(0)
	n := ps[0].val
	if n == 0 {
		n = 1
	}

	switch final {
	case 'A':
		s.moveCursor(-n, 0)
	case 'B':
		s.moveCursor(n, 0)
	case 'C':
		s.moveCursor(0, n)
	case 'D':
		s.moveCursor(0, -n)
	case 'E':
		s.moveCursor(n, 0)
		s.carriageReturn()
	case 'F':
		s.moveCursor(-n, 0)
		s.carriageReturn()
	case 'G':
		s.setCursor(s.cursorRow, n-1)
	case 'd':
		s.setCursor(n-1, s.cursorCol)
	case 'H', 'f':
		col := 1
		if len(ps) > 1 && ps[1].val > 0 {
			col = ps[1].val
		}
		s.setCursor(n-1, col-1)
	case 'J':
		s.eraseDisplay(ps[0].val)
	case 'K':
		s.eraseLine(ps[0].val)
	case 'L':
		s.insertLines(n)
	case 'M':
		s.deleteLines(n)
	case '@':
		s.insertChars(n)
	case 'P':
		s.deleteChars(n)
	case 'X':
		s.eraseChars(n)
	case 'S':
		s.scrollUp(n)
	case 'T':
		s.scrollDown(n)
	case 'r':
		top, bottom := 1, s.rows
		if ps[0].val > 0 {
			top = ps[0].val
		}
		if len(ps) > 1 && ps[1].val > 0 {
			bottom = ps[1].val
		}
		s.setScrollRegion(top-1, bottom-1)
	case 's':
		s.saveCursor()
	case 'u':
		s.restoreCursor()
	case 'm':
		p.applySGR(ps)
	}
}

func (p *parser) applySGR(ps []csiParam) {
	pn := &p.scr.pen
	for i := 0; i < len(ps); i++ {
		n := ps[i].val
		sub := ps[i].sub
		switch {
		case n == 0:
			*pn = pen{}
		case n == 1:
			pn.attrs |= attrBold
		case n == 2:
			pn.attrs |= attrFaint
		case n == 3:
			pn.attrs |= attrItalic
		case n == 4:
			// 4:0 clears; 4:1..4:5 are underline styles, all rendered as
			// plain underline here.
			if len(sub) > 0 && sub[0] == 0 {
				pn.attrs &^= attrUnderline
			} else {
				pn.attrs |= attrUnderline
			}
		case n == 5:
			pn.attrs |= attrBlink
		case n == 7:
			pn.attrs |= attrReverse
		case n == 9:
			pn.attrs |= attrStrike
		case n == 22:
			pn.attrs &^= attrBold | attrFaint
		case n == 23:
			pn.attrs &^= attrItalic
		case n == 24:
			pn.attrs &^= attrUnderline
		case n == 25:
			pn.attrs &^= attrBlink
		case n == 27:
			pn.attrs &^= attrReverse
		case n == 29:
			pn.attrs &^= attrStrike
		case n >= 30 && n <= 37:
			pn.fg = color{mode: colorBase16, index: uint8(n - 30)}
		case n == 39:
			pn.fg = color{}
		case n >= 40 && n <= 47:
			pn.bg = color{mode: colorBase16, index: uint8(n - 40)}
		case n == 49:
			pn.bg = color{}
		case n >= 90 && n <= 97:
			pn.fg = color{mode: colorBase16, index: uint8(n - 90 + 8)}
		case n >= 100 && n <= 107:
			pn.bg = color{mode: colorBase16, index: uint8(n - 100 + 8)}
		case n == 38 || n == 48 || n == 58:
			// Extended color, either colon sub-parameters (38:5:196) or
			// legacy semicolon arguments (38;5;196). 58 (underline color)
			// is consumed but not tracked.
			var c color
			var ok bool
			if len(sub) > 0 {
				c, ok = extendedColor(sub)
			} else {
				args := make([]int, 0, 4)
				for j := i + 1; j < len(ps) && len(args) < 4; j++ {
					args = append(args, ps[j].val)
				}
				var skip int
				c, skip = semicolonColor(args)
				if skip == 0 {
					return // malformed; stop processing this SGR
				}
				i += skip
				ok = true
			}
			if !ok || n == 58 {
				continue
			}
			if n == 38 {
				pn.fg = c
			} else {
				pn.bg = c
			}
		}
	}
}

// extendedColor decodes colon sub-parameters after SGR 38/48/58. A false
// return means an unsupported form, which the caller treats as a no-op.
func extendedColor(sub []int) (color, bool) {
	switch sub[0] {
	case 5:
		if len(sub) >= 2 {
			return color{mode: colorPalette, index: uint8(sub[1])}, true
		}
	case 2:
		// 38:2:r:g:b, or 38:2::r:g:b with a colorspace id; the channel
		// values are always the last three.
		if len(sub) >= 4 {
			v := sub[len(sub)-3:]
			return color{mode: colorRGB, r: uint8(v[0]), g: uint8(v[1]), b: uint8(v[2])}, true
		}
	}
	return color{}, false
}

// semicolonColor consumes the legacy arguments after SGR 38/48/58,
// returning the color and the number of parameters used. skip 0 means
// malformed.
func semicolonColor(args []int) (color, int) {
	if len(args) == 0 {
		return color{}, 0
	}
	switch args[0] {
	case 5:
		if len(args) < 2 {
			return color{}, 0
		}
		return color{mode: colorPalette, index: uint8(args[1])}, 2
	case 2:
		if len(args) < 4 {
			return color{}, 0
		}
		return color{mode: colorRGB, r: uint8(args[1]), g: uint8(args[2]), b: uint8(args[3])}, 4
	}
	return color{}, 0
}
