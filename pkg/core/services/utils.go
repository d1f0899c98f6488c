package services

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/malinmalliyawadu/volunteer-portal-sub005/pkg/core/model"
)

// Actor is the caller's identity and role as resolved by the external
// identity collaborator. This core trusts the asserted role.
type Actor struct {
	VolunteerID string
	IsAdmin     bool
}

// invitationTokenBytes gives 32 hex characters, enough that tokens are
// not guessable.
const invitationTokenBytes = 16

// newInvitationToken generates a random token for a group invitation.
func newInvitationToken() (string, error) {
	buf := make([]byte, invitationTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate invitation token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// dayString formats a calendar day for error messages.
func dayString(t time.Time) string {
	return t.Format("2006-01-02")
}

// activeMemberCount counts a group's signups that still occupy a member
// slot (anything not canceled or no-show).
func activeMemberCount(signups []model.Signup) int {
	count := 0
	for _, s := range signups {
		if s.Status.IsActive() {
			count++
		}
	}
	return count
}
