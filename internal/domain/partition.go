package domain

import "strings"

// PartitionCandidate - a partition derived from an object key, not yet confirmed registered
type PartitionCandidate struct {
	Values   []string `json:"values" dynamodbav:"values"`     // Ordered partition values, catalog key order
	Location string   `json:"location" dynamodbav:"location"` // Directory-style URI with trailing slash
}

// Key returns a comparable identity for the candidate's partition values.
func (c PartitionCandidate) Key() string {
	return strings.Join(c.Values, "\x00")
}

// Outcome of a successful registration attempt
type Outcome int

const (
	OutcomeCreated Outcome = iota + 1
	OutcomeAlreadyExists
	// OutcomeSkipped is returned for keys that hold no partition data
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeAlreadyExists:
		return "already_exists"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Result is the per-candidate result of a batch registration. Err is set when
// the candidate could not be registered, in which case Outcome is zero.
type Result struct {
	Candidate PartitionCandidate
	Outcome   Outcome
	Err       error
}

// ObjectInfo is one entry of an object listing
type ObjectInfo struct {
	Key  string
	Size int64
}
