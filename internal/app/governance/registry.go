// internal/app/governance/registry.go
package governance

import (
	"context"
	"fmt"

	"github.com/dalemusser/civic/internal/app/system/htmlsanitize"
	"github.com/dalemusser/civic/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// GetRole returns userID's role in groupID. A non-member yields a NotFound
// error.
func (e *Engine) GetRole(ctx context.Context, groupID, userID primitive.ObjectID) (models.Role, error) {
	m, err := e.members.Get(ctx, groupID, userID)
	if err != nil {
		if isNoDocs(err) {
			return "", notFound("That user is not a member of this group.")
		}
		return "", fmt.Errorf("get member: %w", err)
	}
	return m.Role, nil
}

// CountByRole returns the live role tally for groupID.
func (e *Engine) CountByRole(ctx context.Context, groupID primitive.ObjectID) (models.RoleCounts, error) {
	c, err := e.members.CountByRole(ctx, groupID)
	if err != nil {
		return models.RoleCounts{}, fmt.Errorf("count roles: %w", err)
	}
	return c, nil
}

// requireManager loads the caller's membership and fails with NotAuthorized
// unless the caller can manage the group.
func (e *Engine) requireManager(ctx context.Context, groupID, userID primitive.ObjectID) (models.Member, error) {
	m, err := e.members.Get(ctx, groupID, userID)
	if err != nil {
		if isNoDocs(err) {
			return models.Member{}, notAuthorized("Only group managers can do that.")
		}
		return models.Member{}, fmt.Errorf("get member: %w", err)
	}
	if !m.Role.CanManage() {
		return models.Member{}, notAuthorized("Only group managers can do that.")
	}
	return m, nil
}

// lookupMember returns the membership or nil when userID is not a member.
func (e *Engine) lookupMember(ctx context.Context, groupID, userID primitive.ObjectID) (*models.Member, error) {
	m, err := e.members.Get(ctx, groupID, userID)
	if err != nil {
		if isNoDocs(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get member: %w", err)
	}
	return &m, nil
}

// memberChange describes one registry mutation and the entry that records it.
type memberChange struct {
	groupID primitive.ObjectID
	userID  primitive.ObjectID
	actorID primitive.ObjectID
	action  models.AuditAction
	refID   *primitive.ObjectID
	details map[string]string
}

func (c memberChange) entry() models.AuditEntry {
	return models.AuditEntry{
		GroupID:    c.groupID,
		ActionType: c.action,
		ActorID:    c.actorID,
		TargetID:   oidPtr(c.userID),
		RefID:      c.refID,
		Details:    c.details,
	}
}

// addMember inserts the membership and records c. If the entry cannot be
// written the insert is undone and the change fails.
func (e *Engine) addMember(ctx context.Context, j *journal, c memberChange, role models.Role) (models.AuditEntry, error) {
	err := e.members.Add(ctx, models.Member{
		GroupID:  c.groupID,
		UserID:   c.userID,
		Role:     role,
		JoinedAt: e.now(),
	})
	if err != nil {
		return models.AuditEntry{}, fmt.Errorf("add member: %w", err)
	}
	return e.commit(ctx, j, c, func(ctx context.Context) error {
		return e.members.Remove(ctx, c.groupID, c.userID)
	})
}

// setRole changes the member's role and records c, restoring the prior role
// if the entry cannot be written.
func (e *Engine) setRole(ctx context.Context, j *journal, c memberChange, role models.Role) (models.AuditEntry, error) {
	prior, err := e.members.Get(ctx, c.groupID, c.userID)
	if err != nil {
		return models.AuditEntry{}, fmt.Errorf("get member: %w", err)
	}
	if err := e.members.SetRole(ctx, c.groupID, c.userID, role); err != nil {
		return models.AuditEntry{}, fmt.Errorf("set role: %w", err)
	}
	return e.commit(ctx, j, c, func(ctx context.Context) error {
		return e.members.SetRole(ctx, c.groupID, c.userID, prior.Role)
	})
}

// removeMember deletes the membership and records c, restoring the
// membership if the entry cannot be written.
func (e *Engine) removeMember(ctx context.Context, j *journal, c memberChange) (models.AuditEntry, error) {
	prior, err := e.members.Get(ctx, c.groupID, c.userID)
	if err != nil {
		return models.AuditEntry{}, fmt.Errorf("get member: %w", err)
	}
	if err := e.members.Remove(ctx, c.groupID, c.userID); err != nil {
		return models.AuditEntry{}, fmt.Errorf("remove member: %w", err)
	}
	return e.commit(ctx, j, c, func(ctx context.Context) error {
		return e.members.Add(ctx, prior)
	})
}

// transferFounder swaps the founder role in one step: the current founder
// becomes a manager and newFounder becomes founder.
func (e *Engine) transferFounder(ctx context.Context, j *journal, c memberChange, oldFounder primitive.ObjectID) (models.AuditEntry, error) {
	details := map[string]string{"previous_founder_id": oldFounder.Hex()}
	for k, v := range c.details {
		details[k] = v
	}
	c.details = details
	c.action = models.AuditFounderTransfer

	prior, err := e.members.Get(ctx, c.groupID, c.userID)
	if err != nil {
		return models.AuditEntry{}, fmt.Errorf("get member: %w", err)
	}
	restoreFounder := func(ctx context.Context) error {
		return e.members.SetRole(ctx, c.groupID, oldFounder, models.RoleFounder)
	}
	if err := e.members.SetRole(ctx, c.groupID, oldFounder, models.RoleManager); err != nil {
		return models.AuditEntry{}, fmt.Errorf("demote founder: %w", err)
	}
	if err := e.members.SetRole(ctx, c.groupID, c.userID, models.RoleFounder); err != nil {
		e.undo(ctx, c, restoreFounder)
		return models.AuditEntry{}, fmt.Errorf("assign founder: %w", err)
	}
	return e.commit(ctx, j, c, func(ctx context.Context) error {
		if err := e.members.SetRole(ctx, c.groupID, c.userID, prior.Role); err != nil {
			return err
		}
		return restoreFounder(ctx)
	})
}

// commit records the entry for an applied change. When the entry cannot be
// written the change is reverted with undo and the error returned.
func (e *Engine) commit(ctx context.Context, j *journal, c memberChange, undo func(ctx context.Context) error) (models.AuditEntry, error) {
	entry, err := j.record(ctx, c.entry())
	if err != nil {
		e.undo(ctx, c, undo)
		return models.AuditEntry{}, fmt.Errorf("record %s: %w", c.action, err)
	}
	return entry, nil
}

// undo reverts a partly applied change. A failed revert leaves the registry
// out of step with the ledger, so it is logged at error level.
func (e *Engine) undo(ctx context.Context, c memberChange, fn func(ctx context.Context) error) {
	if err := fn(context.WithoutCancel(ctx)); err != nil {
		e.log.Error("revert membership change failed",
			zap.String("group_id", c.groupID.Hex()),
			zap.String("user_id", c.userID.Hex()),
			zap.String("action", string(c.action)),
			zap.Error(err))
	}
}

// findFounder returns the group's founder.
func (e *Engine) findFounder(ctx context.Context, groupID primitive.ObjectID) (models.Member, error) {
	list, err := e.members.ListByGroup(ctx, groupID)
	if err != nil {
		return models.Member{}, fmt.Errorf("list members: %w", err)
	}
	for _, m := range list {
		if m.Role == models.RoleFounder {
			return m, nil
		}
	}
	return models.Member{}, notFound("This group has no founder.")
}

// SetRole changes a member's role between manager and member outside of a
// vote. Only the founder may do this; the founder role itself moves only via
// TransferFounder.
func (e *Engine) SetRole(ctx context.Context, actorID, groupID, userID primitive.ObjectID, role models.Role) error {
	if role != models.RoleManager && role != models.RoleMember {
		return invalidOperation("Use a founder transfer to change the founder.")
	}
	unlock := e.lockGroup(groupID)
	defer unlock()

	actor, err := e.requireManager(ctx, groupID, actorID)
	if err != nil {
		return err
	}
	if actor.Role != models.RoleFounder {
		return notAuthorized("Only the founder can change roles directly.")
	}
	target, err := e.lookupMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if target == nil {
		return notFound("That user is not a member of this group.")
	}
	if target.Role == models.RoleFounder {
		return invalidTarget("The founder's role cannot be changed.")
	}
	if target.Role == role {
		return invalidOperation("That member already has the %s role.", role)
	}

	action := models.AuditPromotion
	if role == models.RoleMember {
		action = models.AuditDemotion
	}
	return e.inTx(ctx, func(ctx context.Context, j *journal) error {
		_, err := e.setRole(ctx, j, memberChange{groupID: groupID, userID: userID, actorID: actorID, action: action}, role)
		return err
	})
}

// AddMember adds userID to the group with role. The caller must be a manager.
func (e *Engine) AddMember(ctx context.Context, actorID, groupID, userID primitive.ObjectID, role models.Role) error {
	if role != models.RoleManager && role != models.RoleMember {
		return invalidOperation("New members join as a member or manager.")
	}
	unlock := e.lockGroup(groupID)
	defer unlock()

	if _, err := e.requireManager(ctx, groupID, actorID); err != nil {
		return err
	}
	existing, err := e.lookupMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if existing != nil {
		return invalidOperation("That user is already a member of this group.")
	}
	return e.inTx(ctx, func(ctx context.Context, j *journal) error {
		_, err := e.addMember(ctx, j, memberChange{
			groupID: groupID, userID: userID, actorID: actorID,
			action:  models.AuditJoin,
			details: map[string]string{"role": string(role)},
		}, role)
		return err
	})
}

// RemoveMember removes userID from the group. The founder can never be
// removed.
func (e *Engine) RemoveMember(ctx context.Context, actorID, groupID, userID primitive.ObjectID) error {
	unlock := e.lockGroup(groupID)
	defer unlock()

	if _, err := e.requireManager(ctx, groupID, actorID); err != nil {
		return err
	}
	target, err := e.lookupMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if target == nil {
		return notFound("That user is not a member of this group.")
	}
	if target.Role == models.RoleFounder {
		return invalidOperation("The founder cannot be removed from the group.")
	}
	return e.inTx(ctx, func(ctx context.Context, j *journal) error {
		_, err := e.removeMember(ctx, j, memberChange{groupID: groupID, userID: userID, actorID: actorID, action: models.AuditRemoval})
		return err
	})
}

// TransferFounder hands the founder role to another member. Only the current
// founder may call it; the previous founder stays on as a manager.
func (e *Engine) TransferFounder(ctx context.Context, actorID, groupID, newFounderID primitive.ObjectID) error {
	if actorID == newFounderID {
		return invalidTarget("You are already the founder.")
	}
	unlock := e.lockGroup(groupID)
	defer unlock()

	actor, err := e.requireManager(ctx, groupID, actorID)
	if err != nil {
		return err
	}
	if actor.Role != models.RoleFounder {
		return notAuthorized("Only the founder can transfer the founder role.")
	}
	target, err := e.lookupMember(ctx, groupID, newFounderID)
	if err != nil {
		return err
	}
	if target == nil {
		return notFound("That user is not a member of this group.")
	}
	return e.inTx(ctx, func(ctx context.Context, j *journal) error {
		_, err := e.transferFounder(ctx, j, memberChange{groupID: groupID, userID: newFounderID, actorID: actorID}, actorID)
		return err
	})
}

// GroupInput is the data needed to create a group.
type GroupInput struct {
	Name        string
	Description string
	IsPublic    bool
}

// CreateGroup creates a group with founderID as its founder.
func (e *Engine) CreateGroup(ctx context.Context, founderID primitive.ObjectID, in GroupInput) (models.Group, error) {
	if e.groups == nil {
		return models.Group{}, invalidOperation("Group creation is not available.")
	}
	name := htmlsanitize.PlainText(in.Name)
	if name == "" {
		return models.Group{}, invalidOperation("A group needs a name.")
	}
	now := e.now()
	g := models.Group{
		ID:          primitive.NewObjectID(),
		Name:        name,
		Description: htmlsanitize.PlainText(in.Description),
		IsPublic:    in.IsPublic,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	unlock := e.lockGroup(g.ID)
	defer unlock()

	var created models.Group
	err := e.inTx(ctx, func(ctx context.Context, j *journal) error {
		var err error
		created, err = e.groups.Create(ctx, g)
		if err != nil {
			return fmt.Errorf("create group: %w", err)
		}
		_, err = e.addMember(ctx, j, memberChange{
			groupID: created.ID, userID: founderID, actorID: founderID,
			action:  models.AuditGroupCreated,
			details: map[string]string{"group_name": created.Name},
		}, models.RoleFounder)
		return err
	})
	if err != nil {
		return models.Group{}, err
	}
	return created, nil
}

// LeaveGroup removes the caller from the group. The founder must transfer the
// founder role first.
func (e *Engine) LeaveGroup(ctx context.Context, userID, groupID primitive.ObjectID) error {
	unlock := e.lockGroup(groupID)
	defer unlock()

	m, err := e.lookupMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if m == nil {
		return notFound("You are not a member of this group.")
	}
	if m.Role == models.RoleFounder {
		return invalidOperation("The founder must transfer the founder role before leaving.")
	}
	return e.inTx(ctx, func(ctx context.Context, j *journal) error {
		_, err := e.removeMember(ctx, j, memberChange{groupID: groupID, userID: userID, actorID: userID, action: models.AuditLeave})
		return err
	})
}
