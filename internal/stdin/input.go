package stdin

// Sentinel is the message used when nothing was piped in.
const Sentinel = "Empty"

// Input is the text collected from stdin. The line count is kept separately
// so a piped literal "Empty" can be told apart from no input at all.
type Input struct {
	text  string
	lines int
}

// Present reports whether any line was received.
func (in Input) Present() bool {
	return in.lines > 0
}

// Lines is the number of lines received.
func (in Input) Lines() int {
	return in.lines
}

// Message returns the text, or Sentinel when nothing was received.
func (in Input) Message() string {
	if !in.Present() {
		return Sentinel
	}
	return in.text
}
