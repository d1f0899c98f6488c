package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/malinmalliyawadu/volunteer-portal-sub005/pkg/core/model"
	"github.com/malinmalliyawadu/volunteer-portal-sub005/pkg/db"
)

var _ db.Store = (*Store)(nil)

// GetShift fetches a shift outside any transaction.
func (s *Store) GetShift(ctx context.Context, id string) (*model.Shift, error) {
	row := s.pool.QueryRow(ctx, `
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

// VolunteerFacts aggregates the profile facts the rule engine consumes.
// Completed shifts are CONFIRMED signups whose shift has already ended;
// attendance rate is completed / (completed + no-shows), or 100 for a
// volunteer with no history yet.
func (s *Store) VolunteerFacts(ctx context.Context, volunteerID, shiftTypeID string, now time.Time) (*model.VolunteerFacts, error) {
	facts := &model.VolunteerFacts{VolunteerID: volunteerID}

	var createdAt time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT grade, email, created_at
		FROM volunteer
		WHERE id = $1
	`, volunteerID).Scan(&facts.Grade, &facts.Email, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("volunteer %s: %w", volunteerID, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query volunteer: %w", err)
	}
	facts.AccountAgeDays = int(now.Sub(createdAt).Hours() / 24)

	var completed, noShows int
	err = s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE su.status = 'CONFIRMED' AND sh.end_at <= $2),
			COUNT(*) FILTER (WHERE su.status = 'NO_SHOW')
		FROM signup su
		JOIN shift sh ON sh.id = su.shift_id
		WHERE su.volunteer_id = $1
	`, volunteerID, now).Scan(&completed, &noShows)
	if err != nil {
		return nil, fmt.Errorf("failed to query signup history: %w", err)
	}
	facts.CompletedShifts = completed
	if completed+noShows == 0 {
		facts.AttendanceRate = 100
	} else {
		facts.AttendanceRate = float64(completed) / float64(completed+noShows) * 100
	}

	err = s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM signup su
			JOIN shift sh ON sh.id = su.shift_id
			WHERE su.volunteer_id = $1
			  AND sh.shift_type_id = $2
			  AND su.status = 'CONFIRMED'
			  AND sh.end_at <= $3
		)
	`, volunteerID, shiftTypeID, now).Scan(&facts.HasShiftTypeExperience)
	if err != nil {
		return nil, fmt.Errorf("failed to query shift type experience: %w", err)
	}

	return facts, nil
}

// ListPendingSignups returns all signups awaiting admin review, oldest
// first.
func (s *Store) ListPendingSignups(ctx context.Context) ([]model.Signup, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+signupColumns+`
		FROM signup
		WHERE status IN ('PENDING', 'REGULAR_PENDING')
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending signups: %w", err)
	}
	defer rows.Close()

	var signups []model.Signup
	for rows.Next() {
		signup, err := scanSignup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signup: %w", err)
		}
		signups = append(signups, *signup)
	}
	return signups, rows.Err()
}
