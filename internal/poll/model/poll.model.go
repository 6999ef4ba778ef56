package model

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("poll not found")
	ErrValidation    = errors.New("validation failed")
	ErrUnknownChoice = errors.New("unknown choice")
)

// IDByteSizes are the identifier sizes a data directory may hold. New polls
// use the configured size; polls of the other size stay reachable.
var IDByteSizes = []int{16, 32}

// IsID reports whether id is lowercase hex of one of IDByteSizes.
func IsID(id string) bool {
	sized := false
	for _, n := range IDByteSizes {
		if len(id) == 2*n {
			sized = true
		}
	}
	if !sized {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// Poll is the metadata persisted once per poll. The id is the directory name.
type Poll struct {
	ID        string    `json:"-"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"date"`
	Choices   []string  `json:"choices,omitempty"`
}

// IsVote reports whether the poll collects votes on predefined choices
// rather than free-form elements.
func (p Poll) IsVote() bool {
	return len(p.Choices) > 0
}

// Entry is one line of a poll's append-only log.
type Entry struct {
	Date      time.Time `json:"date"`
	Element   string    `json:"element,omitempty"`
	Responder string    `json:"responder,omitempty"`
	Choices   []string  `json:"choices,omitempty"`
}

// SortKey is the field used for alphabetical ordering.
func (e Entry) SortKey() string {
	if e.Element != "" {
		return e.Element
	}
	return e.Responder
}

type Tally struct {
	Choice string
	Count  int
}

// PollView is what the poll page renders.
type PollView struct {
	Poll
	Address string
	Entries []Entry
	Tallies []Tally
}

// Summary is one row of the index listing.
type Summary struct {
	Poll
	Address string
}

type CreatePollRequest struct {
	Title   string
	Choices []string
}

type EntryRequest struct {
	Element   string
	Responder string
	Choices   []string
}
