package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/malinmalliyawadu/volunteer-portal-sub005/pkg/core/ledger"
	"github.com/malinmalliyawadu/volunteer-portal-sub005/pkg/core/model"
)

const signupColumns = `id, volunteer_id, shift_id, status, group_booking_id,
	is_flexible_placement, placed_at, original_shift_id, placement_notes,
	cancellation_reason, canceled_at, matched_rule_id, created_at`

const shiftColumns = `id, shift_type_id, location, start_at, end_at, capacity`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShift(row rowScanner) (*model.Shift, error) {
	var s model.Shift
	err := row.Scan(&s.ID, &s.ShiftTypeID, &s.Location, &s.Start, &s.End, &s.Capacity)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func scanSignup(row rowScanner) (*model.Signup, error) {
	var s model.Signup
	var groupBookingID, originalShiftID, matchedRuleID *string
	err := row.Scan(&s.ID, &s.VolunteerID, &s.ShiftID, &s.Status, &groupBookingID,
		&s.IsFlexiblePlacement, &s.PlacedAt, &originalShiftID, &s.PlacementNotes,
		&s.CancellationReason, &s.CanceledAt, &matchedRuleID, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	if groupBookingID != nil {
		s.GroupBookingID = *groupBookingID
	}
	if originalShiftID != nil {
		s.OriginalShiftID = *originalShiftID
	}
	if matchedRuleID != nil {
		s.MatchedRuleID = *matchedRuleID
	}
	return &s, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (t *txn) GetShiftForUpdate(ctx context.Context, id string) (*model.Shift, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT `+shiftColumns+`
		FROM shift
		WHERE id = $1
		FOR UPDATE
	`, id)
	shift, err := scanShift(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("shift %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan shift: %w", err)
	}
	return shift, nil
}

func (t *txn) GetShift(ctx context.Context, id string) (*model.Shift, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT `+shiftColumns+`
		FROM shift
		WHERE id = $1
	`, id)
	shift, err := scanShift(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("shift %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan shift: %w", err)
	}
	return shift, nil
}

func (t *txn) InsertShift(ctx context.Context, shift *model.Shift) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO shift (`+shiftColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, shift.ID, shift.ShiftTypeID, shift.Location, shift.Start, shift.End, shift.Capacity)
	if err != nil {
		return fmt.Errorf("failed to insert shift: %w", err)
	}
	return nil
}

func (t *txn) GetShiftType(ctx context.Context, id string) (*model.ShiftType, error) {
	var st model.ShiftType
	err := t.tx.QueryRow(ctx, `SELECT id, name FROM shift_type WHERE id = $1`, id).Scan(&st.ID, &st.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("shift type %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan shift type: %w", err)
	}
	return &st, nil
}

func (t *txn) ListShiftSignups(ctx context.Context, shiftID string) ([]model.Signup, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT `+signupColumns+`
		FROM signup
		WHERE shift_id = $1 AND status <> 'CANCELED'
	`, shiftID)
	if err != nil {
		return nil, fmt.Errorf("failed to query shift signups: %w", err)
	}
	defer rows.Close()

	var signups []model.Signup
	for rows.Next() {
		s, err := scanSignup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signup: %w", err)
		}
		signups = append(signups, *s)
	}
	return signups, rows.Err()
}

func (t *txn) FindActiveSignup(ctx context.Context, volunteerID, shiftID string) (*model.Signup, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT `+signupColumns+`
		FROM signup
		WHERE volunteer_id = $1 AND shift_id = $2
		  AND status NOT IN ('CANCELED', 'NO_SHOW')
	`, volunteerID, shiftID)
	signup, err := scanSignup(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan signup: %w", err)
	}
	return signup, nil
}

func (t *txn) GetSignup(ctx context.Context, id string) (*model.Signup, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT `+signupColumns+`
		FROM signup
		WHERE id = $1
	`, id)
	signup, err := scanSignup(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("signup %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan signup: %w", err)
	}
	return signup, nil
}

func (t *txn) InsertSignup(ctx context.Context, signup *model.Signup) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO signup (`+signupColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, signup.ID, signup.VolunteerID, signup.ShiftID, signup.Status,
		nullable(signup.GroupBookingID), signup.IsFlexiblePlacement,
		signup.PlacedAt, nullable(signup.OriginalShiftID), signup.PlacementNotes,
		signup.CancellationReason, signup.CanceledAt,
		nullable(signup.MatchedRuleID), signup.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert signup: %w", err)
	}
	return nil
}

func (t *txn) UpdateSignup(ctx context.Context, signup *model.Signup) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE signup
		SET shift_id = $2, status = $3, is_flexible_placement = $4,
		    placed_at = $5, original_shift_id = $6, placement_notes = $7,
		    cancellation_reason = $8, canceled_at = $9, matched_rule_id = $10
		WHERE id = $1
	`, signup.ID, signup.ShiftID, signup.Status, signup.IsFlexiblePlacement,
		signup.PlacedAt, nullable(signup.OriginalShiftID), signup.PlacementNotes,
		signup.CancellationReason, signup.CanceledAt, nullable(signup.MatchedRuleID))
	if err != nil {
		return fmt.Errorf("failed to update signup: %w", err)
	}
	return nil
}

func (t *txn) ListConfirmedWithShifts(ctx context.Context, volunteerID string) ([]ledger.ConfirmedSignupWithShift, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT su.id, su.volunteer_id, su.shift_id, su.status,
		       sh.id, sh.shift_type_id, sh.location, sh.start_at, sh.end_at, sh.capacity
		FROM signup su
		JOIN shift sh ON sh.id = su.shift_id
		WHERE su.volunteer_id = $1 AND su.status = 'CONFIRMED'
	`, volunteerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query confirmed signups: %w", err)
	}
	defer rows.Close()

	var result []ledger.ConfirmedSignupWithShift
	for rows.Next() {
		var c ledger.ConfirmedSignupWithShift
		err := rows.Scan(&c.Signup.ID, &c.Signup.VolunteerID, &c.Signup.ShiftID, &c.Signup.Status,
			&c.Shift.ID, &c.Shift.ShiftTypeID, &c.Shift.Location, &c.Shift.Start, &c.Shift.End, &c.Shift.Capacity)
		if err != nil {
			return nil, fmt.Errorf("failed to scan confirmed signup: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (t *txn) ListRegularPendingSignups(ctx context.Context, volunteerID, shiftTypeID, location string) ([]model.Signup, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT `+signupColumns+`
		FROM signup
		WHERE volunteer_id = $1 AND status = 'REGULAR_PENDING'
		  AND shift_id IN (
		      SELECT id FROM shift
		      WHERE shift_type_id = $2 AND ($3 = '' OR location = $3)
		  )
	`, volunteerID, shiftTypeID, location)
	if err != nil {
		return nil, fmt.Errorf("failed to query generated signups: %w", err)
	}
	defer rows.Close()

	var signups []model.Signup
	for rows.Next() {
		s, err := scanSignup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signup: %w", err)
		}
		signups = append(signups, *s)
	}
	return signups, rows.Err()
}

func (t *txn) GetVolunteerEmail(ctx context.Context, volunteerID string) (string, error) {
	var email string
	err := t.tx.QueryRow(ctx, `SELECT email FROM volunteer WHERE id = $1`, volunteerID).Scan(&email)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("volunteer %s: %w", volunteerID, model.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to query volunteer email: %w", err)
	}
	return email, nil
}

func (t *txn) FindVolunteerIDByEmail(ctx context.Context, email string) (string, error) {
	var id string
	err := t.tx.QueryRow(ctx, `SELECT id FROM volunteer WHERE lower(email) = lower($1)`, email).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query volunteer by email: %w", err)
	}
	return id, nil
}

func scanGroup(row rowScanner) (*model.GroupBooking, error) {
	var g model.GroupBooking
	err := row.Scan(&g.ID, &g.LeaderID, &g.ShiftID, &g.MaxMembers, &g.Status, &g.Notes, &g.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

const groupColumns = `id, leader_id, shift_id, max_members, status, notes, created_at`

func (t *txn) GetGroupForUpdate(ctx context.Context, id string) (*model.GroupBooking, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT `+groupColumns+`
		FROM group_booking
		WHERE id = $1
		FOR UPDATE
	`, id)
	group, err := scanGroup(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("group booking %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan group booking: %w", err)
	}
	return group, nil
}

func (t *txn) InsertGroup(ctx context.Context, group *model.GroupBooking) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO group_booking (`+groupColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, group.ID, group.LeaderID, group.ShiftID, group.MaxMembers,
		group.Status, group.Notes, group.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert group booking: %w", err)
	}
	return nil
}

func (t *txn) UpdateGroup(ctx context.Context, group *model.GroupBooking) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE group_booking
		SET max_members = $2, status = $3, notes = $4
		WHERE id = $1
	`, group.ID, group.MaxMembers, group.Status, group.Notes)
	if err != nil {
		return fmt.Errorf("failed to update group booking: %w", err)
	}
	return nil
}

func (t *txn) FindActiveGroupByLeader(ctx context.Context, leaderID, shiftID string) (*model.GroupBooking, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT `+groupColumns+`
		FROM group_booking
		WHERE leader_id = $1 AND shift_id = $2 AND status <> 'CANCELED'
	`, leaderID, shiftID)
	group, err := scanGroup(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan group booking: %w", err)
	}
	return group, nil
}

func (t *txn) ListGroupSignups(ctx context.Context, groupID string) ([]model.Signup, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT `+signupColumns+`
		FROM signup
		WHERE group_booking_id = $1
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query group signups: %w", err)
	}
	defer rows.Close()

	var signups []model.Signup
	for rows.Next() {
		s, err := scanSignup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signup: %w", err)
		}
		signups = append(signups, *s)
	}
	return signups, rows.Err()
}

const invitationColumns = `id, group_booking_id, email, token, status, invited_by, expires_at, created_at`

func scanInvitation(row rowScanner) (*model.GroupInvitation, error) {
	var inv model.GroupInvitation
	err := row.Scan(&inv.ID, &inv.GroupBookingID, &inv.Email, &inv.Token,
		&inv.Status, &inv.InvitedBy, &inv.ExpiresAt, &inv.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (t *txn) ListGroupInvitations(ctx context.Context, groupID string) ([]model.GroupInvitation, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT `+invitationColumns+`
		FROM group_invitation
		WHERE group_booking_id = $1
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query group invitations: %w", err)
	}
	defer rows.Close()

	var invitations []model.GroupInvitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, *inv)
	}
	return invitations, rows.Err()
}

func (t *txn) InsertInvitation(ctx context.Context, inv *model.GroupInvitation) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO group_invitation (`+invitationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, inv.ID, inv.GroupBookingID, inv.Email, inv.Token,
		inv.Status, inv.InvitedBy, inv.ExpiresAt, inv.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert invitation: %w", err)
	}
	return nil
}

func (t *txn) UpdateInvitation(ctx context.Context, inv *model.GroupInvitation) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE group_invitation
		SET status = $2
		WHERE id = $1
	`, inv.ID, inv.Status)
	if err != nil {
		return fmt.Errorf("failed to update invitation: %w", err)
	}
	return nil
}

func (t *txn) GetInvitationByToken(ctx context.Context, token string) (*model.GroupInvitation, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT `+invitationColumns+`
		FROM group_invitation
		WHERE token = $1
	`, token)
	inv, err := scanInvitation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("invitation token: %w", model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan invitation: %w", err)
	}
	return inv, nil
}

func (t *txn) ListEnabledRules(ctx context.Context) ([]model.AutoAcceptRule, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, name, enabled, priority, is_global, shift_type_id,
		       location_filter, min_volunteer_grade, min_completed_shifts,
		       min_attendance_rate, min_account_age_days, max_days_in_advance,
		       require_shift_type_experience, criteria_logic, stop_on_match,
		       created_at
		FROM auto_accept_rule
		WHERE enabled = TRUE
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query auto-accept rules: %w", err)
	}
	defer rows.Close()

	var ruleSet []model.AutoAcceptRule
	for rows.Next() {
		var r model.AutoAcceptRule
		var shiftTypeID, locationFilter, minGrade *string
		err := rows.Scan(&r.ID, &r.Name, &r.Enabled, &r.Priority, &r.Global,
			&shiftTypeID, &locationFilter, &minGrade, &r.MinCompletedShifts,
			&r.MinAttendanceRate, &r.MinAccountAgeDays, &r.MaxDaysInAdvance,
			&r.RequireShiftTypeExperience, &r.CriteriaLogic, &r.StopOnMatch,
			&r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auto-accept rule: %w", err)
		}
		if shiftTypeID != nil {
			r.ShiftTypeID = *shiftTypeID
		}
		if locationFilter != nil {
			r.LocationFilter = *locationFilter
		}
		if minGrade != nil {
			grade := model.Grade(*minGrade)
			r.MinVolunteerGrade = &grade
		}
		ruleSet = append(ruleSet, r)
	}
	return ruleSet, rows.Err()
}

func (t *txn) InsertRuleGrant(ctx context.Context, grant *model.RuleGrant) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO rule_grant (id, rule_id, signup_id, volunteer_id, granted_at)
		VALUES ($1, $2, $3, $4, $5)
	`, grant.ID, grant.RuleID, grant.SignupID, grant.VolunteerID, grant.GrantedAt)
	if err != nil {
		return fmt.Errorf("failed to insert rule grant: %w", err)
	}
	return nil
}

func (t *txn) GetRegularForUpdate(ctx context.Context, id string) (*model.RegularVolunteer, error) {
	var r model.RegularVolunteer
	var days []int32
	err := t.tx.QueryRow(ctx, `
		SELECT id, volunteer_id, shift_type_id, location, frequency,
		       available_days, is_active, is_paused_by_user, paused_until,
		       pause_reason
		FROM regular_volunteer
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&r.ID, &r.VolunteerID, &r.ShiftTypeID, &r.Location, &r.Frequency,
		&days, &r.IsActive, &r.IsPausedByUser, &r.PausedUntil, &r.PauseReason)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("regular volunteer %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan regular volunteer: %w", err)
	}
	for _, d := range days {
		r.AvailableDays = append(r.AvailableDays, time.Weekday(d))
	}
	return &r, nil
}

func (t *txn) UpdateRegular(ctx context.Context, regular *model.RegularVolunteer) error {
	days := make([]int32, len(regular.AvailableDays))
	for i, d := range regular.AvailableDays {
		days[i] = int32(d)
	}
	_, err := t.tx.Exec(ctx, `
		UPDATE regular_volunteer
		SET frequency = $2, available_days = $3, is_active = $4,
		    is_paused_by_user = $5, paused_until = $6, pause_reason = $7
		WHERE id = $1
	`, regular.ID, regular.Frequency, days, regular.IsActive,
		regular.IsPausedByUser, regular.PausedUntil, regular.PauseReason)
	if err != nil {
		return fmt.Errorf("failed to update regular volunteer: %w", err)
	}
	return nil
}
