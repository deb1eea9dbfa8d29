package behaviortree

// Status is the tri-state result of one node execution.
type Status int

const (
	// StatusSuccess indicates the node completed successfully.
	StatusSuccess Status = iota
	// StatusFailure indicates the node completed unsuccessfully.
	StatusFailure
	// StatusRunning indicates the node has not finished and should be
	// invoked again.
	StatusRunning
)

// String returns the lowercase name of the status.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusRunning:
		return "running"
	default:
		return "unknown"
	}
}
