package segment

import "strings"

// cursor walks one record's span [pos, end) of the transcript buffer.
type cursor struct {
	lines []string
	pos   int
	end   int
}

func (c *cursor) done() bool {
	return c.pos >= c.end
}

// text returns the trimmed current line.
func (c *cursor) text() string {
	return strings.TrimSpace(c.lines[c.pos])
}

func (c *cursor) skipBlank() {
	for !c.done() && c.text() == "" {
		c.pos++
	}
}
