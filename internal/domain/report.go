package domain

import "time"

// ChunkReport summarizes the registration of one batch chunk
type ChunkReport struct {
	Index         int      `json:"index" dynamodbav:"index"`
	Size          int      `json:"size" dynamodbav:"size"`
	Created       int      `json:"created" dynamodbav:"created"`
	AlreadyExists int      `json:"already_exists" dynamodbav:"already_exists"`
	Failed        int      `json:"failed" dynamodbav:"failed"`
	Errors        []string `json:"errors,omitempty" dynamodbav:"errors,omitempty"`
}

// RunReport - record of one batch registration run
type RunReport struct {
	RunID      string        `json:"run_id" dynamodbav:"run_id"` // Partition Key
	Database   string        `json:"database" dynamodbav:"database"`
	Table      string        `json:"table" dynamodbav:"table"`
	Location   string        `json:"location" dynamodbav:"location"`
	StartedAt  time.Time     `json:"started_at" dynamodbav:"started_at"`
	FinishedAt time.Time     `json:"finished_at" dynamodbav:"finished_at"`
	Objects    int           `json:"objects" dynamodbav:"objects"`
	Candidates int           `json:"candidates" dynamodbav:"candidates"`
	Malformed  []string      `json:"malformed,omitempty" dynamodbav:"malformed,omitempty"`
	Chunks     []ChunkReport `json:"chunks" dynamodbav:"chunks"`
}

// Failed returns the number of candidates that could not be registered.
func (r RunReport) Failed() int {
	n := 0
	for _, c := range r.Chunks {
		n += c.Failed
	}
	return n
}
