package messages

const (
	// RunEvents queue carries run lifecycle events
	RunEvents string = "RunEvents"
)
