package match

import "errors"

// Errors surfaced to the command layer. The dispatcher decides which of these
// get announced in chat and which are silently dropped.
var (
	ErrAlreadyInMatch = errors.New("player is already in a match")
	ErrQueueFull      = errors.New("queue is full")
	ErrNoQueue        = errors.New("no match is queueing")
	ErrNotQueued      = errors.New("player is not in the queue")

	ErrNotVoting     = errors.New("match is not in its voting phase")
	ErrBadVote       = errors.New("invalid vote id")
	ErrDuplicateVote = errors.New("player already voted")

	ErrNoPickSession = errors.New("match is not drafting")
	ErrNotAvailable  = errors.New("player is not available to pick")

	ErrNoOffer        = errors.New("no open offer")
	ErrNotParticipant = errors.New("player is not in that match")
	ErrNotCaptain     = errors.New("player is not a captain")
	ErrNotPlaying     = errors.New("match is not being played")

	// ErrNotFound is returned by Store lookups that match no row.
	ErrNotFound = errors.New("not found")
)
