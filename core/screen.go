package core

import "strings"

// screen is the in-memory emulation of one session's visible grid plus a
// bounded scrollback ring. It is not safe for concurrent use; the owning
// session serializes access with its own lock.
type screen struct {
	rows, cols int
	grid       [][]cell
	cursorRow  int
	cursorCol  int
	visible    bool

	pen      pen
	savedPos [2]int
	savedPen pen
	saved    bool

	// Scroll region, inclusive rows. Defaults to the full grid.
	scrollTop    int
	scrollBottom int

	scrollback    [][]cell
	scrollbackMax int

	parser parser
}

func newScreen(rows, cols, scrollbackMax int) *screen {
	s := &screen{visible: true, scrollbackMax: scrollbackMax}
	s.setSize(rows, cols)
	s.parser.scr = s
	return s
}

func (s *screen) setSize(rows, cols int) {
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	s.rows, s.cols = rows, cols
	s.grid = make([][]cell, rows)
	for r := range s.grid {
		s.grid[r] = s.blankRow()
	}
	s.scrollTop, s.scrollBottom = 0, rows-1
}

func (s *screen) blankRow() []cell {
	row := make([]cell, s.cols)
	for c := range row {
		row[c] = blankCell(s.pen)
	}
	return row
}

// Feed consumes raw output bytes. Partial escape sequences are retained in
// parser state and completed on the next call.
func (s *screen) Feed(data []byte) {
	s.parser.feed(data)
}

// Resize reflows the grid. Shrinking columns clips each row; shrinking rows
// pushes the topmost excess rows into scrollback.
func (s *screen) Resize(rows, cols int) {
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	if rows == s.rows && cols == s.cols {
		return
	}

	if cols != s.cols {
		for r := range s.grid {
			s.grid[r] = resizeRow(s.grid[r], cols, s.pen)
		}
		s.cols = cols
	}

	switch {
	case rows < s.rows:
		excess := s.rows - rows
		for i := 0; i < excess; i++ {
			s.pushScrollback(s.grid[i])
		}
		s.grid = s.grid[excess:]
		s.cursorRow -= excess
	case rows > s.rows:
		for i := s.rows; i < rows; i++ {
			s.grid = append(s.grid, s.blankRow())
		}
	}
	s.rows = rows
	s.scrollTop, s.scrollBottom = 0, rows-1
	s.clampCursor()
}

func resizeRow(row []cell, cols int, p pen) []cell {
	if len(row) >= cols {
		return row[:cols]
	}
	out := make([]cell, cols)
	copy(out, row)
	for c := len(row); c < cols; c++ {
		out[c] = blankCell(p)
	}
	return out
}

// Contents renders the visible grid as exactly rows lines of cols columns.
// With includeColors the per-cell rendition is re-emitted as SGR sequences;
// otherwise plain text is returned.
func (s *screen) Contents(includeColors bool) string {
	var b strings.Builder
	for r := 0; r < s.rows; r++ {
		if r > 0 {
			b.WriteByte('\n')
		}
		s.renderRow(&b, s.grid[r], includeColors)
	}
	return b.String()
}

func (s *screen) renderRow(b *strings.Builder, row []cell, includeColors bool) {
	if !includeColors {
		for _, c := range row {
			b.WriteRune(c.r)
		}
		return
	}
	current := pen{}
	b.WriteString(current.sgr())
	for _, c := range row {
		if c.p != current {
			current = c.p
			b.WriteString(current.sgr())
		}
		b.WriteRune(c.r)
	}
	b.WriteString("\x1b[0m")
}

// Cursor returns the cursor position and visibility.
func (s *screen) Cursor() (row, col int, visible bool) {
	return s.cursorRow, s.cursorCol, s.visible
}

// Scrollback renders up to n of the most recent scrollback lines as plain
// text, oldest first. Fewer lines are returned when the ring holds fewer.
func (s *screen) Scrollback(n int) string {
	if n <= 0 || len(s.scrollback) == 0 {
		return ""
	}
	if n > len(s.scrollback) {
		n = len(s.scrollback)
	}
	lines := make([]string, 0, n)
	for _, row := range s.scrollback[len(s.scrollback)-n:] {
		var b strings.Builder
		for _, c := range row {
			b.WriteRune(c.r)
		}
		lines = append(lines, strings.TrimRight(b.String(), " "))
	}
	return strings.Join(lines, "\n")
}

func (s *screen) scrollbackLen() int { return len(s.scrollback) }

// setScrollbackMax rebounds the history ring, trimming the oldest lines
// when the new limit is smaller.
func (s *screen) setScrollbackMax(n int) {
	if n < 0 {
		n = 0
	}
	s.scrollbackMax = n
	if len(s.scrollback) > n {
		s.scrollback = s.scrollback[len(s.scrollback)-n:]
	}
}

func (s *screen) pushScrollback(row []cell) {
	if s.scrollbackMax <= 0 {
		return
	}
	s.scrollback = append(s.scrollback, row)
	if len(s.scrollback) > s.scrollbackMax {
		trim := len(s.scrollback) - s.scrollbackMax
		s.scrollback = s.scrollback[trim:]
	}
}

func (s *screen) clampCursor() {
	if s.cursorRow < 0 {
		s.cursorRow = 0
	}
	if s.cursorRow >= s.rows {
		s.cursorRow = s.rows - 1
	}
	if s.cursorCol < 0 {
		s.cursorCol = 0
	}
	if s.cursorCol >= s.cols {
		s.cursorCol = s.cols - 1
	}
}

// writeRune places a printable rune at the cursor, wrapping at the column
// boundary before writing.
func (s *screen) writeRune(r rune) {
	if s.cursorCol >= s.cols {
		s.cursorCol = 0
		s.lineFeed()
	}
	s.grid[s.cursorRow][s.cursorCol] = cell{r: r, p: s.pen}
	s.cursorCol++
}

func (s *screen) lineFeed() {
	if s.cursorRow == s.scrollBottom {
		s.scrollUp(1)
		return
	}
	if s.cursorRow < s.rows-1 {
		s.cursorRow++
	}
}

func (s *screen) reverseLineFeed() {
	if s.cursorRow == s.scrollTop {
		s.scrollDown(1)
		return
	}
	if s.cursorRow > 0 {
		s.cursorRow--
	}
}

func (s *screen) carriageReturn() { s.cursorCol = 0 }

func (s *screen) backspace() {
	if s.cursorCol > 0 {
		s.cursorCol--
	}
}

func (s *screen) tab() {
	next := (s.cursorCol/8 + 1) * 8
	if next >= s.cols {
		next = s.cols - 1
	}
	s.cursorCol = next
}

// scrollUp shifts the scroll region up by n lines. Rows leaving the top of
// a full-screen region enter scrollback; rows leaving an inner region are
// discarded, matching usual terminal behavior.
func (s *screen) scrollUp(n int) {
	if n <= 0 {
		return
	}
	height := s.scrollBottom - s.scrollTop + 1
	if n > height {
		n = height
	}
	fullRegion := s.scrollTop == 0 && s.scrollBottom == s.rows-1
	for i := 0; i < n; i++ {
		if fullRegion {
			s.pushScrollback(s.grid[s.scrollTop])
		}
		copy(s.grid[s.scrollTop:s.scrollBottom+1], s.grid[s.scrollTop+1:s.scrollBottom+1])
		s.grid[s.scrollBottom] = s.blankRow()
	}
}

func (s *screen) scrollDown(n int) {
	if n <= 0 {
		return
	}
	height := s.scrollBottom - s.scrollTop + 1
	if n > height {
		n = height
	}
	for i := 0; i < n; i++ {
		copy(s.grid[s.scrollTop+1:s.scrollBottom+1], s.grid[s.scrollTop:s.scrollBottom])
		s.grid[s.scrollTop] = s.blankRow()
	}
}

func (s *screen) setCursor(row, col int) {
	s.cursorRow, s.cursorCol = row, col
	s.clampCursor()
}

func (s *screen) moveCursor(dRow, dCol int) {
	s.setCursor(s.cursorRow+dRow, s.cursorCol+dCol)
}

func (s *screen) saveCursor() {
	s.savedPos = [2]int{s.cursorRow, s.cursorCol}
	s.savedPen = s.pen
	s.saved = true
}

func (s *screen) restoreCursor() {
	if !s.saved {
		return
	}
	s.cursorRow, s.cursorCol = s.savedPos[0], s.savedPos[1]
	s.pen = s.savedPen
	s.clampCursor()
}

func (s *screen) setScrollRegion(top, bottom int) {
	if top < 0 {
		top = 0
	}
	if bottom >= s.rows || bottom <= 0 {
		bottom = s.rows - 1
	}
	if top >= bottom {
		return
	}
	s.scrollTop, s.scrollBottom = top, bottom
	s.setCursor(0, 0)
}

// Erase operations. Mode follows ED/EL parameter conventions.

func (s *screen) eraseDisplay(mode int) {
	switch mode {
	case 0: // cursor to end
		s.eraseLine(0)
		for r := s.cursorRow + 1; r < s.rows; r++ {
			s.grid[r] = s.blankRow()
		}
	case 1: // start to cursor
		s.eraseLine(1)
		for r := 0; r < s.cursorRow; r++ {
			s.grid[r] = s.blankRow()
		}
	case 2, 3: // whole display
		for r := 0; r < s.rows; r++ {
			s.grid[r] = s.blankRow()
		}
	}
}

func (s *screen) eraseLine(mode int) {
	row := s.grid[s.cursorRow]
	switch mode {
	case 0:
		for c := s.cursorCol; c < s.cols; c++ {
			row[c] = blankCell(s.pen)
		}
	case 1:
		for c := 0; c <= s.cursorCol && c < s.cols; c++ {
			row[c] = blankCell(s.pen)
		}
	case 2:
		s.grid[s.cursorRow] = s.blankRow()
	}
}

func (s *screen) insertChars(n int) {
	row := s.grid[s.cursorRow]
	if n > s.cols-s.cursorCol {
		n = s.cols - s.cursorCol
	}
	copy(row[s.cursorCol+n:], row[s.cursorCol:])
	for c := s.cursorCol; c < s.cursorCol+n; c++ {
		row[c] = blankCell(s.pen)
	}
}

func (s *screen) deleteChars(n int) {
	row := s.grid[s.cursorRow]
	if n > s.cols-s.cursorCol {
		n = s.cols - s.cursorCol
	}
	copy(row[s.cursorCol:], row[s.cursorCol+n:])
	for c := s.cols - n; c < s.cols; c++ {
		row[c] = blankCell(s.pen)
	}
}

func (s *screen) eraseChars(n int) {
	row := s.grid[s.cursorRow]
	for c := s.cursorCol; c < s.cursorCol+n && c < s.cols; c++ {
		row[c] = blankCell(s.pen)
	}
}

// insertLines/deleteLines act at the cursor row within the scroll region.

func (s *screen) insertLines(n int) {
	if s.cursorRow < s.scrollTop || s.cursorRow > s.scrollBottom {
		return
	}
	if n > s.scrollBottom-s.cursorRow+1 {
		n = s.scrollBottom - s.cursorRow + 1
	}
	for i := 0; i < n; i++ {
		copy(s.grid[s.cursorRow+1:s.scrollBottom+1], s.grid[s.cursorRow:s.scrollBottom])
		s.grid[s.cursorRow] = s.blankRow()
	}
}

func (s *screen) deleteLines(n int) {
	if s.cursorRow < s.scrollTop || s.cursorRow > s.scrollBottom {
		return
	}
	if n > s.scrollBottom-s.cursorRow+1 {
		n = s.scrollBottom - s.cursorRow + 1
	}
	for i := 0; i < n; i++ {
		copy(s.grid[s.cursorRow:s.scrollBottom+1], s.grid[s.cursorRow+1:s.scrollBottom+1])
		s.grid[s.scrollBottom] = s.blankRow()
	}
}

func (s *screen) reset() {
	s.pen = pen{}
	s.setSize(s.rows, s.cols)
	s.cursorRow, s.cursorCol = 0, 0
	s.visible = true
}
