// Package document holds the shared document vocabulary: the status
// enumeration and per-document metadata.
package document

import "fmt"

// Status is the lifecycle state a document is submitted with. It never
// changes after the document is added.
type Status string

const (
	StatusActual     Status = "ACTUAL"
	StatusIrrelevant Status = "IRRELEVANT"
	StatusBanned     Status = "BANNED"
	StatusRemoved    Status = "REMOVED"
)

// Statuses lists every valid status value.
func Statuses() []Status {
	return []Status{StatusActual, StatusIrrelevant, StatusBanned, StatusRemoved}
}

func (s Status) Valid() bool {
	switch s {
	case StatusActual, StatusIrrelevant, StatusBanned, StatusRemoved:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// ParseStatus converts a wire-level string into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown document status %q", s)
	}
	return st, nil
}

// Meta is the per-document metadata stored alongside the index.
type Meta struct {
	Rating int    `json:"rating"`
	Status Status `json:"status"`
}

// AverageRating is the integer mean of ratings, truncating toward zero.
// An empty slice averages to 0.
func AverageRating(ratings []int) int {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return sum / len(ratings)
}
