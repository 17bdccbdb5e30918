package status

//Status represents a run or job lifecycle state
type Status int

const (
	//Queued - waiting for a worker
	Queued Status = iota + 1
	//Processing - recognition in progress
	Processing
	//Succeeded - terminal success
	Succeeded
	//Failed - terminal failure
	Failed
)

var (
	statusName = map[Status]string{Queued: "QUEUED", Processing: "PROCESSING",
		Succeeded: "SUCCEEDED", Failed: "FAILED"}
	nameStatus = map[string]Status{"QUEUED": Queued, "PROCESSING": Processing,
		"SUCCEEDED": Succeeded, "FAILED": Failed}
)

//Name returns string representation of the status
func Name(st Status) string {
	return statusName[st]
}

//From parses status from string, returns 0 for unknown value
func From(st string) Status {
	return nameStatus[st]
}

//Terminal indicates no further transitions are allowed
func Terminal(st Status) bool {
	return st == Succeeded || st == Failed
}
