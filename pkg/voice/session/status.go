package session

// Status is the single observable lifecycle value exposed to the shell.
type Status string

const (
	StatusConnecting Status = "connecting"
	StatusListening  Status = "listening"
	StatusSpeaking   Status = "speaking"
	StatusClosed     Status = "closed"
	StatusError      Status = "closed-with-error"
)

// Terminal reports whether the session can never leave this status.
func (s Status) Terminal() bool {
	return s == StatusClosed || s == StatusError
}

// StatusUpdate is one observed transition, with the error message when
// the session ended in error.
type StatusUpdate struct {
	Status Status
	Err    string
}
