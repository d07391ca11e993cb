package booking

import "fmt"

type Status string

const (
	StatusPending   Status = "Pending"
	StatusApproved  Status = "Approved"
	StatusRejected  Status = "Rejected"
	StatusCancelled Status = "Cancelled"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown status: %s", s)
	}
}

// Wire codes used by the status-update endpoint.
const (
	CodePending   = 0
	CodeApproved  = 1
	CodeRejected  = 2
	CodeCancelled = 3
)

func StatusFromCode(code int) (Status, error) {
	switch code {
	case CodePending:
		return StatusPending, nil
	case CodeApproved:
		return StatusApproved, nil
	case CodeRejected:
		return StatusRejected, nil
	case CodeCancelled:
		return StatusCancelled, nil
	default:
		return "", fmt.Errorf("unknown status code: %d", code)
	}
}

var allowedTransitions = map[Status]map[Status]bool{
	StatusPending:   {StatusApproved: true, StatusRejected: true, StatusCancelled: true},
	StatusApproved:  {StatusCancelled: true},
	StatusRejected:  {},
	StatusCancelled: {},
}

func CanTransition(from, to Status) bool {
	m, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return m[to]
}

// Active statuses occupy the availability index.
func (s Status) Active() bool { return s == StatusPending || s == StatusApproved }

// Terminal statuses admit no further transitions.
func (s Status) Terminal() bool { return s == StatusRejected || s == StatusCancelled }
