package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/malinmalliyawadu/volunteer-portal-sub005/pkg/core/ledger"
	"github.com/malinmalliyawadu/volunteer-portal-sub005/pkg/core/model"
	"github.com/malinmalliyawadu/volunteer-portal-sub005/pkg/db"
)

// GroupBookingStore defines the database operations needed for group
// booking coordination
type GroupBookingStore interface {
	InTx(ctx context.Context, fn func(tx db.Tx) error) error
}

// CreateGroupBookingResult contains the new group and its leader signup
type CreateGroupBookingResult struct {
	Group        model.GroupBooking
	LeaderSignup model.Signup
}

// CreateGroupBooking creates a leader-led group booking for a shift along
// with the leader's own member signup, as one atomic unit. It fails when
// the leader already holds an active signup or group on that shift.
func CreateGroupBooking(ctx context.Context, store GroupBookingStore, logger *zap.Logger, leaderID, shiftID string, maxMembers int, notes string, now time.Time) (*CreateGroupBookingResult, error) {
	if maxMembers < 1 {
		return nil, fmt.Errorf("maxMembers must be at least 1, got %d", maxMembers)
	}

	result := &CreateGroupBookingResult{}

	err := store.InTx(ctx, func(tx db.Tx) error {
		shift, err := tx.GetShiftForUpdate(ctx, shiftID)
		if err != nil {
			return fmt.Errorf("failed to fetch shift: %w", err)
		}

		existing, err := tx.FindActiveSignup(ctx, leaderID, shiftID)
		if err != nil {
			return fmt.Errorf("failed to check for existing signup: %w", err)
		}
		if existing != nil {
			return &model.InvalidStateError{
				Entity:    "signup",
				ID:        existing.ID,
				Current:   string(existing.Status),
				Attempted: "lead a group while already signed up for the shift",
			}
		}

		existingGroup, err := tx.FindActiveGroupByLeader(ctx, leaderID, shiftID)
		if err != nil {
			return fmt.Errorf("failed to check for existing group: %w", err)
		}
		if existingGroup != nil {
			return &model.InvalidStateError{
				Entity:    "group booking",
				ID:        existingGroup.ID,
				Current:   string(existingGroup.Status),
				Attempted: "lead a second group for the same shift",
			}
		}

		group := model.GroupBooking{
			ID:         uuid.NewString(),
			LeaderID:   leaderID,
			ShiftID:    shift.ID,
			MaxMembers: maxMembers,
			Status:     model.GroupPending,
			Notes:      notes,
			CreatedAt:  now,
		}
		if err := tx.InsertGroup(ctx, &group); err != nil {
			return fmt.Errorf("failed to insert group booking: %w", err)
		}

		leaderSignup := model.Signup{
			ID:              uuid.NewString(),
			VolunteerID:     leaderID,
			ShiftID:         shift.ID,
			Status:          model.SignupPending,
			GroupBookingID:  group.ID,
			OriginalShiftID: shift.ID,
			CreatedAt:       now,
		}
		if err := tx.InsertSignup(ctx, &leaderSignup); err != nil {
			return fmt.Errorf("failed to insert leader signup: %w", err)
		}

		result.Group = group
		result.LeaderSignup = leaderSignup
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Group booking created",
		zap.String("group_id", result.Group.ID),
		zap.String("leader_id", leaderID),
		zap.Int("max_members", maxMembers))
	return result, nil
}

// InviteToGroupParams describes an invitation batch
type InviteToGroupParams struct {
	GroupID   string
	Emails    []string
	InvitedBy string // must be the group leader
	TTL       time.Duration
	BaseURL   string
	Now       time.Time
}

// InviteToGroupResult contains the invitations actually created
type InviteToGroupResult struct {
	Invitations []model.GroupInvitation

	// SkippedEmails were dropped before creation: duplicates of each
	// other, of the inviter's own address, or of an existing pending or
	// accepted invitation.
	SkippedEmails []string

	// Notifications carry one invitation payload per invitee holding a
	// volunteer account; addresses without an account only get the token
	// out of band.
	Notifications []model.Notification
}

// InviteToGroup creates one invitation per new email address, enforcing
// the group capacity invariant: current members + pending invitations +
// new invitations never exceed maxMembers.
func InviteToGroup(ctx context.Context, store GroupBookingStore, logger *zap.Logger, params InviteToGroupParams) (*InviteToGroupResult, error) {
	result := &InviteToGroupResult{}

	err := store.InTx(ctx, func(tx db.Tx) error {
		group, err := tx.GetGroupForUpdate(ctx, params.GroupID)
		if err != nil {
			return fmt.Errorf("failed to fetch group booking: %w", err)
		}

		if params.InvitedBy != group.LeaderID {
			return fmt.Errorf("only the group leader may invite: %w", model.ErrUnauthorized)
		}
		if group.Status == model.GroupCanceled {
			return &model.InvalidStateError{
				Entity:    "group booking",
				ID:        group.ID,
				Current:   string(group.Status),
				Attempted: "invite",
			}
		}

		shift, err := tx.GetShift(ctx, group.ShiftID)
		if err != nil {
			return fmt.Errorf("failed to fetch shift: %w", err)
		}
		if shift.HasStarted(params.Now) {
			return &model.InvalidStateError{
				Entity:    "group booking",
				ID:        group.ID,
				Current:   string(group.Status),
				Attempted: "invite after the shift has started",
			}
		}

		inviterEmail, err := tx.GetVolunteerEmail(ctx, params.InvitedBy)
		if err != nil {
			return fmt.Errorf("failed to fetch inviter email: %w", err)
		}

		invitations, err := tx.ListGroupInvitations(ctx, group.ID)
		if err != nil {
			return fmt.Errorf("failed to list group invitations: %w", err)
		}

		// Lazily expire pending invitations past their deadline so they
		// stop counting against group capacity.
		pendingInvites := 0
		invitedEmails := make(map[string]bool)
		for i := range invitations {
			inv := &invitations[i]
			if inv.Status == model.InvitationPending && inv.IsExpired(params.Now) {
				inv.Status = model.InvitationExpired
				if err := tx.UpdateInvitation(ctx, inv); err != nil {
					return fmt.Errorf("failed to expire invitation: %w", err)
				}
			}
			if inv.Status == model.InvitationPending {
				pendingInvites++
			}
			if inv.Status == model.InvitationPending || inv.Status == model.InvitationAccepted {
				invitedEmails[strings.ToLower(inv.Email)] = true
			}
		}

		// De-duplicate the batch, drop the inviter's own address and
		// addresses already invited.
		seen := make(map[string]bool)
		var newEmails []string
		for _, email := range params.Emails {
			normalized := strings.ToLower(strings.TrimSpace(email))
			if normalized == "" || seen[normalized] {
				continue
			}
			seen[normalized] = true
			if normalized == strings.ToLower(inviterEmail) || invitedEmails[normalized] {
				result.SkippedEmails = append(result.SkippedEmails, normalized)
				continue
			}
			newEmails = append(newEmails, normalized)
		}

		if len(newEmails) == 0 {
			return nil
		}

		memberSignups, err := tx.ListGroupSignups(ctx, group.ID)
		if err != nil {
			return fmt.Errorf("failed to list group signups: %w", err)
		}
		members := activeMemberCount(memberSignups)

		if members+pendingInvites+len(newEmails) > group.MaxMembers {
			return &model.CapacityError{
				Resource:  "group",
				ID:        group.ID,
				Capacity:  group.MaxMembers,
				Requested: len(newEmails),
			}
		}

		for _, email := range newEmails {
			token, err := newInvitationToken()
			if err != nil {
				return err
			}
			inv := model.GroupInvitation{
				ID:             uuid.NewString(),
				GroupBookingID: group.ID,
				Email:          email,
				Token:          token,
				Status:         model.InvitationPending,
				InvitedBy:      params.InvitedBy,
				ExpiresAt:      params.Now.Add(params.TTL),
				CreatedAt:      params.Now,
			}
			if err := tx.InsertInvitation(ctx, &inv); err != nil {
				return fmt.Errorf("failed to insert invitation: %w", err)
			}
			result.Invitations = append(result.Invitations, inv)

			recipientID, err := tx.FindVolunteerIDByEmail(ctx, email)
			if err != nil {
				return fmt.Errorf("failed to look up invitee: %w", err)
			}
			if recipientID != "" {
				result.Notifications = append(result.Notifications,
					*groupInvitationNotification(&inv, shift, recipientID, params.BaseURL))
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Group invitations created",
		zap.String("group_id", params.GroupID),
		zap.Int("created", len(result.Invitations)),
		zap.Int("skipped", len(result.SkippedEmails)))
	return result, nil
}

// AcceptInvitationResult contains the accepted invitation and the new
// member signup
type AcceptInvitationResult struct {
	Invitation   model.GroupInvitation
	MemberSignup model.Signup
	Shift        model.Shift
	Notification *model.Notification
}

// AcceptGroupInvitation validates an invitation token on behalf of the
// accepting volunteer and, atomically, marks the invitation accepted and
// creates the member's pending signup. Expired invitations are lazily
// transitioned to EXPIRED on read.
func AcceptGroupInvitation(ctx context.Context, store GroupBookingStore, logger *zap.Logger, token, volunteerID, baseURL string, now time.Time) (*AcceptInvitationResult, error) {
	result := &AcceptInvitationResult{}

	err := store.InTx(ctx, func(tx db.Tx) error {
		inv, err := tx.GetInvitationByToken(ctx, token)
		if err != nil {
			return fmt.Errorf("failed to fetch invitation: %w", err)
		}

		if inv.Status == model.InvitationPending && inv.IsExpired(now) {
			inv.Status = model.InvitationExpired
			if err := tx.UpdateInvitation(ctx, inv); err != nil {
				return fmt.Errorf("failed to expire invitation: %w", err)
			}
			return fmt.Errorf("invitation %s: %w", inv.ID, model.ErrExpired)
		}
		if inv.Status != model.InvitationPending {
			return &model.InvalidStateError{
				Entity:    "invitation",
				ID:        inv.ID,
				Current:   string(inv.Status),
				Attempted: "accept",
			}
		}

		email, err := tx.GetVolunteerEmail(ctx, volunteerID)
		if err != nil {
			return fmt.Errorf("failed to fetch volunteer email: %w", err)
		}
		if !strings.EqualFold(email, inv.Email) {
			return fmt.Errorf("invitation was sent to a different address: %w", model.ErrUnauthorized)
		}

		group, err := tx.GetGroupForUpdate(ctx, inv.GroupBookingID)
		if err != nil {
			return fmt.Errorf("failed to fetch group booking: %w", err)
		}
		if group.Status == model.GroupCanceled {
			return &model.InvalidStateError{
				Entity:    "group booking",
				ID:        group.ID,
				Current:   string(group.Status),
				Attempted: "accept an invitation",
			}
		}

		shift, err := tx.GetShift(ctx, group.ShiftID)
		if err != nil {
			return fmt.Errorf("failed to fetch shift: %w", err)
		}
		if shift.HasStarted(now) {
			return &model.InvalidStateError{
				Entity:    "invitation",
				ID:        inv.ID,
				Current:   string(inv.Status),
				Attempted: "accept after the shift has started",
			}
		}

		memberSignups, err := tx.ListGroupSignups(ctx, group.ID)
		if err != nil {
			return fmt.Errorf("failed to list group signups: %w", err)
		}
		if activeMemberCount(memberSignups) >= group.MaxMembers {
			return &model.CapacityError{
				Resource:  "group",
				ID:        group.ID,
				Capacity:  group.MaxMembers,
				Requested: 1,
			}
		}

		dup, err := tx.FindActiveSignup(ctx, volunteerID, group.ShiftID)
		if err != nil {
			return fmt.Errorf("failed to check for existing signup: %w", err)
		}
		if dup != nil {
			return &model.InvalidStateError{
				Entity:    "signup",
				ID:        dup.ID,
				Current:   string(dup.Status),
				Attempted: "join a group while already signed up for the shift",
			}
		}

		inv.Status = model.InvitationAccepted
		if err := tx.UpdateInvitation(ctx, inv); err != nil {
			return fmt.Errorf("failed to update invitation: %w", err)
		}

		memberSignup := model.Signup{
			ID:              uuid.NewString(),
			VolunteerID:     volunteerID,
			ShiftID:         group.ShiftID,
			Status:          model.SignupPending,
			GroupBookingID:  group.ID,
			OriginalShiftID: group.ShiftID,
			CreatedAt:       now,
		}
		if err := tx.InsertSignup(ctx, &memberSignup); err != nil {
			return fmt.Errorf("failed to insert member signup: %w", err)
		}

		result.Invitation = *inv
		result.MemberSignup = memberSignup
		result.Shift = *shift
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Notification = signupStatusNotification(&result.MemberSignup, &result.Shift, baseURL)

	logger.Info("Group invitation accepted",
		zap.String("invitation_id", result.Invitation.ID),
		zap.String("volunteer_id", volunteerID))
	return result, nil
}

// SetGroupStatusResult contains the updated group and member signups
type SetGroupStatusResult struct {
	Group         model.GroupBooking
	MemberSignups []model.Signup

	// Notifications carry one outcome payload per member whose signup
	// was transitioned by the decision.
	Notifications []model.Notification
}

// SetGroupStatus applies an administrator decision to a whole group.
//
// The new status propagates to every non-terminal member signup, with one
// exception: PARTIAL leaves member signups untouched for individual
// review. CANCELED additionally cancels any still-pending invitations.
// Confirming a group re-validates shift capacity and each member's daily
// conflicts; the group is admitted as a unit or not at all.
func SetGroupStatus(ctx context.Context, store GroupBookingStore, logger *zap.Logger, actor Actor, groupID string, newStatus model.GroupStatus, notes, baseURL string, now time.Time) (*SetGroupStatusResult, error) {
	if !actor.IsAdmin {
		return nil, fmt.Errorf("only administrators may set group status: %w", model.ErrUnauthorized)
	}
	if !newStatus.IsValid() {
		return nil, fmt.Errorf("invalid group status %q", newStatus)
	}

	result := &SetGroupStatusResult{}

	err := store.InTx(ctx, func(tx db.Tx) error {
		group, err := tx.GetGroupForUpdate(ctx, groupID)
		if err != nil {
			return fmt.Errorf("failed to fetch group booking: %w", err)
		}

		memberSignups, err := tx.ListGroupSignups(ctx, group.ID)
		if err != nil {
			return fmt.Errorf("failed to list group signups: %w", err)
		}

		if newStatus == model.GroupConfirmed {
			if err := validateGroupConfirmation(ctx, tx, group, memberSignups); err != nil {
				return err
			}
		}

		group.Status = newStatus
		if notes != "" {
			group.Notes = notes
		}
		if err := tx.UpdateGroup(ctx, group); err != nil {
			return fmt.Errorf("failed to update group booking: %w", err)
		}

		if newStatus != model.GroupPartial {
			shift, err := tx.GetShift(ctx, group.ShiftID)
			if err != nil {
				return fmt.Errorf("failed to fetch shift: %w", err)
			}

			memberStatus := memberStatusFor(newStatus)
			for i := range memberSignups {
				signup := &memberSignups[i]
				if signup.Status.IsTerminal() {
					continue
				}
				signup.Status = memberStatus
				if memberStatus == model.SignupCanceled {
					signup.CancellationReason = notes
					signup.CanceledAt = &now
				}
				if err := tx.UpdateSignup(ctx, signup); err != nil {
					return fmt.Errorf("failed to update member signup: %w", err)
				}
				result.Notifications = append(result.Notifications,
					*signupStatusNotification(signup, shift, baseURL))
			}
		}

		if newStatus == model.GroupCanceled {
			invitations, err := tx.ListGroupInvitations(ctx, group.ID)
			if err != nil {
				return fmt.Errorf("failed to list group invitations: %w", err)
			}
			for i := range invitations {
				inv := &invitations[i]
				if inv.Status != model.InvitationPending {
					continue
				}
				inv.Status = model.InvitationCanceled
				if err := tx.UpdateInvitation(ctx, inv); err != nil {
					return fmt.Errorf("failed to cancel invitation: %w", err)
				}
			}
		}

		result.Group = *group
		result.MemberSignups = memberSignups
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Group status updated",
		zap.String("group_id", groupID),
		zap.String("status", string(newStatus)))
	return result, nil
}

// validateGroupConfirmation checks shift capacity for the members being
// confirmed and each member's daily conflicts. The group must succeed or
// fail together.
func validateGroupConfirmation(ctx context.Context, tx db.Tx, group *model.GroupBooking, memberSignups []model.Signup) error {
	shift, err := tx.GetShiftForUpdate(ctx, group.ShiftID)
	if err != nil {
		return fmt.Errorf("failed to fetch shift: %w", err)
	}

	toConfirm := 0
	for _, s := range memberSignups {
		if !s.Status.IsTerminal() && s.Status != model.SignupConfirmed {
			toConfirm++
		}
	}
	if toConfirm == 0 {
		return nil
	}

	signups, err := tx.ListShiftSignups(ctx, shift.ID)
	if err != nil {
		return fmt.Errorf("failed to list shift signups: %w", err)
	}
	if !ledger.HasRoom(shift, signups, toConfirm) {
		return &model.CapacityError{
			Resource:  "shift",
			ID:        shift.ID,
			Capacity:  shift.Capacity,
			Requested: toConfirm,
		}
	}

	for _, s := range memberSignups {
		if s.Status.IsTerminal() || s.Status == model.SignupConfirmed {
			continue
		}
		confirmed, err := tx.ListConfirmedWithShifts(ctx, s.VolunteerID)
		if err != nil {
			return fmt.Errorf("failed to check daily conflicts: %w", err)
		}
		if conflict := ledger.DailyConflict(confirmed, s.VolunteerID, shift.Day(), s.ID); conflict != nil {
			return &model.DailyConflictError{
				VolunteerID:     s.VolunteerID,
				ConflictShiftID: conflict.Shift.ID,
				Day:             dayString(shift.Day()),
			}
		}
	}

	return nil
}

// memberStatusFor maps a group decision onto member signup statuses.
func memberStatusFor(groupStatus model.GroupStatus) model.SignupStatus {
	switch groupStatus {
	case model.GroupConfirmed:
		return model.SignupConfirmed
	case model.GroupWaitlisted:
		return model.SignupWaitlisted
	case model.GroupCanceled:
		return model.SignupCanceled
	default:
		return model.SignupPending
	}
}
