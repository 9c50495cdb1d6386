// internal/domain/models/vote.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Choice is a single ballot value.
type Choice string

const (
	ChoiceApprove Choice = "approve"
	ChoiceReject  Choice = "reject"
)

// Valid reports whether c is approve or reject.
func (c Choice) Valid() bool { return c == ChoiceApprove || c == ChoiceReject }

// Vote is one manager's ballot on a proposal or join request.
type Vote struct {
	VoterID primitive.ObjectID `bson:"voter_id" json:"voter_id"`
	Vote    Choice             `bson:"vote" json:"vote"`
	CastAt  time.Time          `bson:"cast_at" json:"cast_at"`
}

// Tally counts approve and reject ballots.
func Tally(votes []Vote) (approve, reject int) {
	for _, v := range votes {
		switch v.Vote {
		case ChoiceApprove:
			approve++
		case ChoiceReject:
			reject++
		}
	}
	return approve, reject
}

// HasVoted reports whether voterID already appears among votes.
func HasVoted(votes []Vote, voterID primitive.ObjectID) bool {
	for _, v := range votes {
		if v.VoterID == voterID {
			return true
		}
	}
	return false
}
