package core

import (
	"strings"
	"testing"
)

// feedChunked proves parser state survives arbitrary chunk boundaries: the
// same byte stream must render identically whether fed whole or byte by byte.
func feedChunked(t *testing.T, input string, chunk int) string {
	t.Helper()
	s := newScreen(4, 16, 10)
	data := []byte(input)
	for i := 0; i < len(data); i += chunk {
		end := i + chunk
		if end > len(data) {
			end = len(data)
		}
		s.Feed(data[i:end])
	}
	return s.Contents(true)
}

func TestParserChunkBoundaryIndependence(t *testing.T) {
	inputs := []string{
		"plain text\r\nsecond line",
		"\x1b[31mred\x1b[0m normal \x1b[38;2;1;2;3mtc\x1b[m",
		"\x1b[2;5Hmoved\x1b[1;1H\x1b[2Kerased",
		"utf8: åäö\u00e9 \u4e16\u754c",
		"\x1b]0;window title\x07after bel\x1b]2;x\x1b\\after st",
	}
	for _, in := range inputs {
		whole := feedChunked(t, in, len(in))
		for _, chunk := range []int{1, 2, 3, 7} {
			if got := feedChunked(t, in, chunk); got != whole {
				t.Fatalf("chunk size %d diverged for %q:\n%q\nvs\n%q", chunk, in, got, whole)
			}
		}
	}
}

func TestParserSplitEscapeSequence(t *testing.T) {
	s := newScreen(2, 8, 0)
	s.Feed([]byte("\x1b"))
	s.Feed([]byte("[3"))
	s.Feed([]byte("1mr"))
	if s.Contents(false) != "r       \n        " {
		t.Fatalf("split CSI mishandled: %q", s.Contents(false))
	}
	if got := s.Contents(true); !strings.Contains(got, "31m") {
		t.Fatalf("split SGR lost color: %q", got)
	}
}

func TestParserSplitUTF8Rune(t *testing.T) {
	s := newScreen(1, 8, 0)
	enc := []byte("ö") // two bytes
	s.Feed(enc[:1])
	s.Feed(enc[1:])
	if s.Contents(false) != "ö       " {
		t.Fatalf("split rune mishandled: %q", s.Contents(false))
	}
}

func TestParserOSCSwallowed(t *testing.T) {
	s := newScreen(1, 8, 0)
	s.Feed([]byte("\x1b]0;title\x07ok"))
	if s.Contents(false) != "ok      " {
		t.Fatalf("BEL-terminated OSC leaked: %q", s.Contents(false))
	}
	s = newScreen(1, 8, 0)
	s.Feed([]byte("\x1b]2;title\x1b\\ok"))
	if s.Contents(false) != "ok      " {
		t.Fatalf("ST-terminated OSC leaked: %q", s.Contents(false))
	}
}

func TestParserUnknownSequencesAreNoOps(t *testing.T) {
	s := newScreen(1, 8, 0)
	s.Feed([]byte("a\x1b[99qb\x1b=c\x1b[38;9md"))
	if s.Contents(false) != "abcd    " {
		t.Fatalf("unknown sequences disturbed output: %q", s.Contents(false))
	}
}

func TestParserColonSubParameters(t *testing.T) {
	// Curly underline (SGR 4:3) must render as text with the underline
	// attribute, never leak parameter bytes into the grid.
	s := newScreen(1, 16, 0)
	s.Feed([]byte("a\x1b[4:3mb"))
	if got := s.Contents(false); got != "ab              " {
		t.Fatalf("SGR 4:3 corrupted output: %q", got)
	}
	if got := s.Contents(true); !strings.Contains(got, "4m") {
		t.Fatalf("SGR 4:3 lost underline: %q", got)
	}

	s = newScreen(1, 8, 0)
	s.Feed([]byte("\x1b[38:5:196mX"))
	if got := s.Contents(true); !strings.Contains(got, "38;5;196") {
		t.Fatalf("colon palette color lost: %q", got)
	}

	// Colon RGB with an empty colorspace slot.
	s = newScreen(1, 8, 0)
	s.Feed([]byte("\x1b[38:2::10:20:30mX"))
	if got := s.Contents(true); !strings.Contains(got, "38;2;10;20;30") {
		t.Fatalf("colon RGB color lost: %q", got)
	}

	// 4:0 clears underline set earlier in the same sequence stream.
	s = newScreen(1, 8, 0)
	s.Feed([]byte("\x1b[4mu\x1b[4:0mp"))
	if got := s.Contents(false); got != "up      " {
		t.Fatalf("SGR 4:0 corrupted output: %q", got)
	}
}

func TestParserUnderlineColorConsumed(t *testing.T) {
	// SGR 58 takes color arguments; they must not be re-read as
	// independent parameters (58;5;129 is not blink).
	s := newScreen(1, 8, 0)
	s.Feed([]byte("\x1b[58;5;129mZ"))
	if got := s.Contents(true); strings.Contains(got, "\x1b[0;5m") {
		t.Fatalf("underline-color arguments misapplied: %q", got)
	}
	if got := s.Contents(false); got != "Z       " {
		t.Fatalf("SGR 58 corrupted output: %q", got)
	}
}

func TestParserPrivateSequencesAreNoOps(t *testing.T) {
	s := newScreen(1, 8, 0)
	s.Feed([]byte("a\x1b[<1;2;3Mb\x1b[>0qc\x1b[=5nd"))
	if got := s.Contents(false); got != "abcd    " {
		t.Fatalf("private sequences disturbed output: %q", got)
	}
}

func TestParserControlCharsIgnored(t *testing.T) {
	s := newScreen(1, 8, 0)
	s.Feed([]byte("a\x00\x05b\x7fc"))
	if s.Contents(false) != "abc     " {
		t.Fatalf("stray controls disturbed output: %q", s.Contents(false))
	}
}
