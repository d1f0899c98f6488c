package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/malinmalliyawadu/volunteer-portal-sub005/pkg/core/model"
)

// Notifier delivers notification payloads out of band. Implementations
// live outside this package (email, webhooks); the services only build
// payloads.
type Notifier interface {
	Send(ctx context.Context, n model.Notification) error
}

// DeliverQuietly sends a notification and swallows any delivery failure,
// logging it instead. Delivery must never unwind an admission decision,
// so callers invoke this only after their transaction has committed.
func DeliverQuietly(ctx context.Context, notifier Notifier, logger *zap.Logger, n *model.Notification) {
	if notifier == nil || n == nil {
		return
	}
	if err := notifier.Send(ctx, *n); err != nil {
		logger.Warn("Failed to deliver notification",
			zap.String("recipient_id", n.RecipientID),
			zap.String("type", string(n.Type)),
			zap.Error(err))
	}
}

// signupStatusNotification builds the payload describing a signup's
// admission outcome.
func signupStatusNotification(signup *model.Signup, shift *model.Shift, baseURL string) *model.Notification {
	var notifType model.NotificationType
	var title, message string

	switch signup.Status {
	case model.SignupConfirmed:
		notifType = model.NotificationSignupConfirmed
		title = "Shift confirmed"
		message = fmt.Sprintf("You're confirmed for the %s shift at %s on %s.",
			shift.ShiftTypeID, shift.Location, shift.Start.Format("Monday 2 January"))
	case model.SignupWaitlisted:
		notifType = model.NotificationSignupWaitlisted
		title = "Added to waitlist"
		message = fmt.Sprintf("The %s shift at %s on %s is full; you've been waitlisted.",
			shift.ShiftTypeID, shift.Location, shift.Start.Format("Monday 2 January"))
	case model.SignupCanceled:
		notifType = model.NotificationSignupCanceled
		title = "Signup canceled"
		message = fmt.Sprintf("Your signup for the %s shift at %s on %s has been canceled.",
			shift.ShiftTypeID, shift.Location, shift.Start.Format("Monday 2 January"))
	default:
		notifType = model.NotificationSignupPending
		title = "Signup received"
		message = fmt.Sprintf("Your signup for the %s shift at %s on %s is awaiting review.",
			shift.ShiftTypeID, shift.Location, shift.Start.Format("Monday 2 January"))
	}

	return &model.Notification{
		RecipientID: signup.VolunteerID,
		Type:        notifType,
		Title:       title,
		Message:     message,
		ActionURL:   baseURL + "/signups/" + signup.ID,
		RelatedID:   signup.ID,
	}
}

// groupInvitationNotification builds the payload inviting an existing
// volunteer account to join a group booking. The action URL carries the
// invitation token.
func groupInvitationNotification(inv *model.GroupInvitation, shift *model.Shift, recipientID, baseURL string) *model.Notification {
	return &model.Notification{
		RecipientID: recipientID,
		Type:        model.NotificationGroupInvitation,
		Title:       "Group booking invitation",
		Message: fmt.Sprintf("You've been invited to join a group for the %s shift at %s on %s.",
			shift.ShiftTypeID, shift.Location, shift.Start.Format("Monday 2 January")),
		ActionURL: baseURL + "/invitations/" + inv.Token,
		RelatedID: inv.ID,
	}
}

// assignmentNotification builds the payload describing a new shift
// assignment after a flexible placement or a move.
func assignmentNotification(signup *model.Signup, shift *model.Shift, baseURL string) *model.Notification {
	return &model.Notification{
		RecipientID: signup.VolunteerID,
		Type:        model.NotificationShiftAssigned,
		Title:       "Shift assignment updated",
		Message: fmt.Sprintf("You've been assigned to the %s shift at %s on %s.",
			shift.ShiftTypeID, shift.Location, shift.Start.Format("Monday 2 January")),
		ActionURL: baseURL + "/signups/" + signup.ID,
		RelatedID: signup.ID,
	}
}
