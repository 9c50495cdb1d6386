// internal/app/governance/joinrequests.go
package governance

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dalemusser/civic/internal/app/policy/governancepolicy"
	"github.com/dalemusser/civic/internal/app/system/htmlsanitize"
	"github.com/dalemusser/civic/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// CreateJoinRequest files userID's request to join groupID. In bootstrap mode
// the request waits for any one manager; otherwise it goes straight to a
// manager vote.
func (e *Engine) CreateJoinRequest(ctx context.Context, userID, groupID primitive.ObjectID, message string) (models.JoinRequest, error) {
	message = htmlsanitize.PlainText(message)

	unlock := e.lockGroup(groupID)
	defer unlock()

	counts, err := e.CountByRole(ctx, groupID)
	if err != nil {
		return models.JoinRequest{}, err
	}
	if counts.Total() == 0 {
		return models.JoinRequest{}, notFound("That group does not exist.")
	}
	existing, err := e.lookupMember(ctx, groupID, userID)
	if err != nil {
		return models.JoinRequest{}, err
	}
	if existing != nil {
		return models.JoinRequest{}, invalidOperation("You are already a member of this group.")
	}
	if _, err := e.joins.FindOpen(ctx, groupID, userID); err == nil {
		return models.JoinRequest{}, invalidOperation("You already have an open request to join this group.")
	} else if !isNoDocs(err) {
		return models.JoinRequest{}, fmt.Errorf("find join request: %w", err)
	}

	status := models.JoinRequestVoting
	if governancepolicy.IsBootstrap(counts.Total()) {
		status = models.JoinRequestPending
	}
	jr := models.JoinRequest{
		ID:            primitive.NewObjectID(),
		GroupID:       groupID,
		UserID:        userID,
		Message:       message,
		Status:        status,
		Votes:         []models.Vote{},
		RequiredVotes: governancepolicy.RequiredVotes(counts.Managers()),
		CreatedAt:     e.now(),
	}

	err = e.inTx(ctx, func(ctx context.Context, j *journal) error {
		_, err := j.record(ctx, models.AuditEntry{
			GroupID:    groupID,
			ActionType: models.AuditJoinRequestCreated,
			ActorID:    userID,
			TargetID:   oidPtr(userID),
			RefID:      oidPtr(jr.ID),
			Details:    map[string]string{"status": string(status)},
		})
		if err != nil {
			return fmt.Errorf("record join request: %w", err)
		}
		created, err := e.joins.Create(ctx, jr)
		if err != nil {
			return fmt.Errorf("create join request: %w", err)
		}
		jr = created
		return nil
	})
	if err != nil {
		return models.JoinRequest{}, err
	}
	return jr, nil
}

// HandleJoinRequest is the bootstrap fast path: any single manager approves or
// rejects a pending request outright. A pending request in a group that has
// grown past bootstrap is escalated to a vote and choice becomes the first
// ballot. Requests already in voting must go through CastJoinVote.
func (e *Engine) HandleJoinRequest(ctx context.Context, managerID, requestID primitive.ObjectID, choice models.Choice) (models.JoinRequest, error) {
	return e.decideJoin(ctx, managerID, requestID, choice, false)
}

// CastJoinVote records a manager's ballot on a join request and resolves it
// once the quorum is met or can no longer be met.
func (e *Engine) CastJoinVote(ctx context.Context, managerID, requestID primitive.ObjectID, choice models.Choice) (models.JoinRequest, error) {
	return e.decideJoin(ctx, managerID, requestID, choice, true)
}

func (e *Engine) decideJoin(ctx context.Context, managerID, requestID primitive.ObjectID, choice models.Choice, voting bool) (models.JoinRequest, error) {
	if !choice.Valid() {
		return models.JoinRequest{}, invalidOperation("A decision must be approve or reject.")
	}
	jr, err := e.loadJoinRequest(ctx, requestID)
	if err != nil {
		return models.JoinRequest{}, err
	}
	unlock := e.lockGroup(jr.GroupID)
	defer unlock()

	if jr, err = e.loadJoinRequest(ctx, requestID); err != nil {
		return models.JoinRequest{}, err
	}
	if !jr.Status.Open() {
		return models.JoinRequest{}, invalidOperation("This join request has already been %s.", jr.Status)
	}
	if _, err := e.requireManager(ctx, jr.GroupID, managerID); err != nil {
		return models.JoinRequest{}, err
	}
	if jr.Status == models.JoinRequestVoting && !voting {
		return models.JoinRequest{}, invalidOperation("This request is being decided by a manager vote.")
	}

	counts, err := e.CountByRole(ctx, jr.GroupID)
	if err != nil {
		return models.JoinRequest{}, err
	}

	expect := jr.Status
	prior := len(jr.Votes)
	vote := models.Vote{VoterID: managerID, Vote: choice, CastAt: e.now()}

	if jr.Status == models.JoinRequestPending {
		if governancepolicy.IsBootstrap(counts.Total()) {
			jr.Votes = append(jr.Votes, vote)
			return e.resolveJoin(ctx, jr, managerID, choice == models.ChoiceApprove, expect, prior)
		}
		jr.Status = models.JoinRequestVoting
		jr.RequiredVotes = governancepolicy.RequiredVotes(counts.Managers())
		e.log.Info("join request escalated to vote",
			zap.String("join_request_id", jr.ID.Hex()),
			zap.String("group_id", jr.GroupID.Hex()),
			zap.Int("required_votes", jr.RequiredVotes))
	}

	if governancepolicy.Violation(counts) {
		return models.JoinRequest{}, governanceViolation("Voting on join requests is paused until the group has at least two managers.")
	}
	if models.HasVoted(jr.Votes, managerID) {
		return models.JoinRequest{}, alreadyVoted("join request")
	}

	jr.Votes = append(jr.Votes, vote)
	approve, reject := models.Tally(jr.Votes)
	switch governancepolicy.Decide(approve, reject, counts.Managers(), jr.RequiredVotes) {
	case governancepolicy.Approved:
		return e.resolveJoin(ctx, jr, managerID, true, expect, prior)
	case governancepolicy.Rejected:
		return e.resolveJoin(ctx, jr, managerID, false, expect, prior)
	}
	if expect == models.JoinRequestPending {
		return e.escalateJoin(ctx, jr, managerID, prior)
	}
	if err := e.saveJoinRequest(ctx, jr, expect, prior); err != nil {
		return models.JoinRequest{}, err
	}
	return jr, nil
}

// escalateJoin saves a pending request that has moved to a manager vote.
func (e *Engine) escalateJoin(ctx context.Context, jr models.JoinRequest, managerID primitive.ObjectID, prior int) (models.JoinRequest, error) {
	err := e.inTx(ctx, func(ctx context.Context, j *journal) error {
		_, err := j.record(ctx, models.AuditEntry{
			GroupID:    jr.GroupID,
			ActionType: models.AuditJoinRequestEscalated,
			ActorID:    managerID,
			TargetID:   oidPtr(jr.UserID),
			RefID:      oidPtr(jr.ID),
			Details:    map[string]string{"required_votes": strconv.Itoa(jr.RequiredVotes)},
		})
		if err != nil {
			return fmt.Errorf("record join escalation: %w", err)
		}
		return e.saveJoinRequest(ctx, jr, models.JoinRequestPending, prior)
	})
	if err != nil {
		return models.JoinRequest{}, err
	}
	return jr, nil
}

// resolveJoin closes a join request. Approval adds the requester as a member
// and the join entry records both the resolution and the registry change.
func (e *Engine) resolveJoin(ctx context.Context, jr models.JoinRequest, actorID primitive.ObjectID, approved bool, expect models.JoinRequestStatus, prior int) (models.JoinRequest, error) {
	jr.ResolvedAt = timePtr(e.now())
	jr.ResolvedBy = oidPtr(actorID)
	jr.Status = models.JoinRequestRejected
	if approved {
		jr.Status = models.JoinRequestApproved
	}
	approve, reject := models.Tally(jr.Votes)
	details := map[string]string{
		"approve_votes":  fmt.Sprint(approve),
		"reject_votes":   fmt.Sprint(reject),
		"required_votes": fmt.Sprint(jr.RequiredVotes),
		"via":            string(expect),
	}

	err := e.inTx(ctx, func(ctx context.Context, j *journal) error {
		if approved {
			existing, err := e.lookupMember(ctx, jr.GroupID, jr.UserID)
			if err != nil {
				return err
			}
			if existing == nil {
				_, err = e.addMember(ctx, j, memberChange{
					groupID: jr.GroupID,
					userID:  jr.UserID,
					actorID: actorID,
					action:  models.AuditJoin,
					refID:   oidPtr(jr.ID),
					details: details,
				}, models.RoleMember)
				if err != nil {
					return err
				}
				return e.saveJoinRequest(ctx, jr, expect, prior)
			}
		}
		action := models.AuditVoteResolutionRejected
		if approved {
			action = models.AuditVoteResolutionApproved
		}
		if _, err := j.record(ctx, models.AuditEntry{
			GroupID:    jr.GroupID,
			ActionType: action,
			ActorID:    actorID,
			TargetID:   oidPtr(jr.UserID),
			RefID:      oidPtr(jr.ID),
			Details:    details,
		}); err != nil {
			return fmt.Errorf("record resolution: %w", err)
		}
		return e.saveJoinRequest(ctx, jr, expect, prior)
	})
	if err != nil {
		return models.JoinRequest{}, err
	}
	e.log.Info("join request resolved",
		zap.String("join_request_id", jr.ID.Hex()),
		zap.String("group_id", jr.GroupID.Hex()),
		zap.String("status", string(jr.Status)))
	return jr, nil
}

func (e *Engine) loadJoinRequest(ctx context.Context, id primitive.ObjectID) (models.JoinRequest, error) {
	jr, err := e.joins.GetByID(ctx, id)
	if err != nil {
		if isNoDocs(err) {
			return models.JoinRequest{}, notFound("That join request does not exist.")
		}
		return models.JoinRequest{}, fmt.Errorf("get join request: %w", err)
	}
	return jr, nil
}

func (e *Engine) saveJoinRequest(ctx context.Context, jr models.JoinRequest, expect models.JoinRequestStatus, prior int) error {
	if err := e.joins.Save(ctx, jr, expect, prior); err != nil {
		if isNoDocs(err) {
			return invalidOperation("This join request changed while you were acting on it. Reload and try again.")
		}
		return fmt.Errorf("save join request: %w", err)
	}
	return nil
}

// ListJoinRequests returns the group's join requests, newest first. Only
// managers can see them.
func (e *Engine) ListJoinRequests(ctx context.Context, managerID, groupID primitive.ObjectID, openOnly bool) ([]models.JoinRequest, error) {
	if _, err := e.requireManager(ctx, groupID, managerID); err != nil {
		return nil, err
	}
	list, err := e.joins.ListByGroup(ctx, groupID, openOnly)
	if err != nil {
		return nil, fmt.Errorf("list join requests: %w", err)
	}
	return list, nil
}
