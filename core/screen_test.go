package core

import (
	"strings"
	"testing"
)

func lines(s string) []string { return strings.Split(s, "\n") }

func TestScreenDimensionsExact(t *testing.T) {
	s := newScreen(5, 10, 100)
	s.Feed([]byte("hi"))
	got := lines(s.Contents(false))
	if len(got) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(got))
	}
	for i, ln := range got {
		if len([]rune(ln)) != 10 {
			t.Fatalf("row %d: expected 10 columns, got %d (%q)", i, len([]rune(ln)), ln)
		}
	}
	if got[0] != "hi        " {
		t.Fatalf("unexpected first row %q", got[0])
	}
}

func TestScreenWrapAtColumnBoundary(t *testing.T) {
	s := newScreen(3, 4, 0)
	s.Feed([]byte("abcdef"))
	got := lines(s.Contents(false))
	if got[0] != "abcd" || got[1] != "ef  " {
		t.Fatalf("unexpected wrap: %q", got)
	}
	row, col, _ := s.Cursor()
	if row != 1 || col != 2 {
		t.Fatalf("cursor at %d,%d", row, col)
	}
}

func TestScreenCRLF(t *testing.T) {
	s := newScreen(3, 8, 0)
	s.Feed([]byte("one\r\ntwo"))
	got := lines(s.Contents(false))
	if got[0] != "one     " || got[1] != "two     " {
		t.Fatalf("unexpected rows: %q", got)
	}
}

func TestScreenScrollbackBound(t *testing.T) {
	s := newScreen(2, 8, 3)
	for _, l := range []string{"a", "b", "c", "d", "e", "f"} {
		s.Feed([]byte(l + "\r\n"))
	}
	if s.scrollbackLen() != 3 {
		t.Fatalf("scrollback holds %d lines, want 3", s.scrollbackLen())
	}
	sb := s.Scrollback(10)
	if sb != "c\nd\ne" {
		t.Fatalf("unexpected scrollback %q", sb)
	}
	if s.Scrollback(1) != "e" {
		t.Fatalf("unexpected tail %q", s.Scrollback(1))
	}
}

func TestScreenSetScrollbackMaxTrims(t *testing.T) {
	s := newScreen(2, 8, 5)
	for _, l := range []string{"a", "b", "c", "d", "e", "f"} {
		s.Feed([]byte(l + "\r\n"))
	}
	s.setScrollbackMax(2)
	if s.scrollbackLen() != 2 {
		t.Fatalf("scrollback holds %d lines after shrink, want 2", s.scrollbackLen())
	}
	if s.Scrollback(10) != "d\ne" {
		t.Fatalf("unexpected scrollback after shrink %q", s.Scrollback(10))
	}
	// Raising the limit keeps trimmed lines gone but admits new ones.
	s.setScrollbackMax(4)
	s.Feed([]byte("g\r\n"))
	if s.Scrollback(10) != "d\ne\nf" {
		t.Fatalf("unexpected scrollback after regrow %q", s.Scrollback(10))
	}
}

func TestScreenResizeShrinkRowsPushesScrollback(t *testing.T) {
	s := newScreen(4, 8, 10)
	s.Feed([]byte("a\r\nb\r\nc\r\nd"))
	s.Resize(2, 8)
	got := lines(s.Contents(false))
	if len(got) != 2 || got[0] != "c       " || got[1] != "d       " {
		t.Fatalf("unexpected grid after shrink: %q", got)
	}
	if s.Scrollback(10) != "a\nb" {
		t.Fatalf("unexpected scrollback %q", s.Scrollback(10))
	}
}

func TestScreenResizeClipsAndGrowsColumns(t *testing.T) {
	s := newScreen(2, 8, 0)
	s.Feed([]byte("abcdefgh"))
	s.Resize(2, 4)
	if lines(s.Contents(false))[0] != "abcd" {
		t.Fatalf("columns not clipped: %q", s.Contents(false))
	}
	s.Resize(2, 6)
	if lines(s.Contents(false))[0] != "abcd  " {
		t.Fatalf("columns not padded: %q", s.Contents(false))
	}
}

func TestScreenCursorReporting(t *testing.T) {
	s := newScreen(10, 20, 0)
	s.Feed([]byte("\x1b[5;7H"))
	row, col, visible := s.Cursor()
	if row != 4 || col != 6 || !visible {
		t.Fatalf("cursor %d,%d visible=%v", row, col, visible)
	}
	s.Feed([]byte("\x1b[?25l"))
	if _, _, v := s.Cursor(); v {
		t.Fatal("cursor still visible after DECTCEM reset")
	}
	s.Feed([]byte("\x1b[?25h"))
	if _, _, v := s.Cursor(); !v {
		t.Fatal("cursor not visible after DECTCEM set")
	}
}

func TestScreenScrollRegion(t *testing.T) {
	s := newScreen(4, 8, 10)
	s.Feed([]byte("\x1b[2;3r")) // region rows 2-3
	s.Feed([]byte("\x1b[2;1Ha\r\nb\r\nc"))
	got := lines(s.Contents(false))
	// Scrolling inside an inner region must not touch row 4 or scrollback.
	if got[3] != "        " {
		t.Fatalf("bottom row disturbed: %q", got)
	}
	if s.scrollbackLen() != 0 {
		t.Fatalf("inner-region scroll leaked %d lines to scrollback", s.scrollbackLen())
	}
}

func TestScreenEraseOps(t *testing.T) {
	s := newScreen(2, 6, 0)
	s.Feed([]byte("abcdef"))
	s.Feed([]byte("\x1b[1;3H\x1b[K")) // erase to end of line from col 3
	if lines(s.Contents(false))[0] != "ab    " {
		t.Fatalf("EL0 failed: %q", s.Contents(false))
	}
	s.Feed([]byte("\x1b[2J"))
	if strings.TrimSpace(s.Contents(false)) != "" {
		t.Fatalf("ED2 left content: %q", s.Contents(false))
	}
}

func TestScreenInsertDeleteChars(t *testing.T) {
	s := newScreen(1, 8, 0)
	s.Feed([]byte("abcdef\x1b[1;2H\x1b[2@"))
	if s.Contents(false) != "a  bcdef"[:8] {
		t.Fatalf("ICH failed: %q", s.Contents(false))
	}
	s.Feed([]byte("\x1b[2P"))
	if s.Contents(false) != "abcdef  " {
		t.Fatalf("DCH failed: %q", s.Contents(false))
	}
}

func TestScreenContentsStripsColorsByDefault(t *testing.T) {
	s := newScreen(1, 6, 0)
	s.Feed([]byte("\x1b[31mred\x1b[0m"))
	if s.Contents(false) != "red   " {
		t.Fatalf("plain contents %q", s.Contents(false))
	}
	colored := s.Contents(true)
	if !strings.Contains(colored, "\x1b[0;31m") {
		t.Fatalf("colored contents missing red SGR: %q", colored)
	}
	if !strings.HasSuffix(colored, "\x1b[0m") {
		t.Fatalf("colored contents missing trailing reset: %q", colored)
	}
}

func TestScreenTruecolorRoundTrip(t *testing.T) {
	s := newScreen(1, 4, 0)
	s.Feed([]byte("\x1b[38;2;10;20;30mX"))
	if !strings.Contains(s.Contents(true), "38;2;10;20;30") {
		t.Fatalf("truecolor lost: %q", s.Contents(true))
	}
	s.Feed([]byte("\x1b[48;5;42mY"))
	if !strings.Contains(s.Contents(true), "48;5;42") {
		t.Fatalf("palette background lost: %q", s.Contents(true))
	}
}

func TestScreenReverseLineFeed(t *testing.T) {
	s := newScreen(3, 4, 0)
	s.Feed([]byte("a\r\nb\x1bM\x1bMtop"))
	got := lines(s.Contents(false))
	if got[0] != " top" {
		t.Fatalf("RI scroll-down failed: %q", got)
	}
}
