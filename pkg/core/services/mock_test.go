package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/malinmalliyawadu/volunteer-portal-sub005/pkg/core/ledger"
	"github.com/malinmalliyawadu/volunteer-portal-sub005/pkg/core/model"
	"github.com/malinmalliyawadu/volunteer-portal-sub005/pkg/db"
)

// mockStore is an in-memory store for service tests. It implements db.Tx
// directly and runs InTx callbacks against itself; transactional
// atomicity is not simulated, only the operation contract.
type mockStore struct {
	shifts      map[string]*model.Shift
	shiftTypes  map[string]*model.ShiftType
	signups     map[string]*model.Signup
	groups      map[string]*model.GroupBooking
	invitations map[string]*model.GroupInvitation
	regulars    map[string]*model.RegularVolunteer
	emails      map[string]string
	ruleSet     []model.AutoAcceptRule
	facts       map[string]*model.VolunteerFacts
	grants      []model.RuleGrant

	inTxErr         error
	insertSignupErr error
	updateSignupErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		shifts:      make(map[string]*model.Shift),
		shiftTypes:  make(map[string]*model.ShiftType),
		signups:     make(map[string]*model.Signup),
		groups:      make(map[string]*model.GroupBooking),
		invitations: make(map[string]*model.GroupInvitation),
		regulars:    make(map[string]*model.RegularVolunteer),
		emails:      make(map[string]string),
		facts:       make(map[string]*model.VolunteerFacts),
	}
}

func (m *mockStore) InTx(ctx context.Context, fn func(tx db.Tx) error) error {
	if m.inTxErr != nil {
		return m.inTxErr
	}
	return fn(m)
}

func (m *mockStore) GetShiftForUpdate(ctx context.Context, id string) (*model.Shift, error) {
	return m.GetShift(ctx, id)
}

func (m *mockStore) GetShift(ctx context.Context, id string) (*model.Shift, error) {
	shift, ok := m.shifts[id]
	if !ok {
		return nil, fmt.Errorf("shift %s: %w", id, model.ErrNotFound)
	}
	clone := *shift
	return &clone, nil
}

func (m *mockStore) InsertShift(ctx context.Context, shift *model.Shift) error {
	clone := *shift
	m.shifts[shift.ID] = &clone
	return nil
}

func (m *mockStore) GetShiftType(ctx context.Context, id string) (*model.ShiftType, error) {
	st, ok := m.shiftTypes[id]
	if !ok {
		return nil, fmt.Errorf("shift type %s: %w", id, model.ErrNotFound)
	}
	clone := *st
	return &clone, nil
}

func (m *mockStore) ListShiftSignups(ctx context.Context, shiftID string) ([]model.Signup, error) {
	var result []model.Signup
	for _, s := range m.signups {
		if s.ShiftID == shiftID && s.Status != model.SignupCanceled {
			result = append(result, *s)
		}
	}
	return result, nil
}

func (m *mockStore) FindActiveSignup(ctx context.Context, volunteerID, shiftID string) (*model.Signup, error) {
	for _, s := range m.signups {
		if s.VolunteerID == volunteerID && s.ShiftID == shiftID && s.Status.IsActive() {
			clone := *s
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *mockStore) GetSignup(ctx context.Context, id string) (*model.Signup, error) {
	s, ok := m.signups[id]
	if !ok {
		return nil, fmt.Errorf("signup %s: %w", id, model.ErrNotFound)
	}
	clone := *s
	return &clone, nil
}

func (m *mockStore) InsertSignup(ctx context.Context, signup *model.Signup) error {
	if m.insertSignupErr != nil {
		return m.insertSignupErr
	}
	clone := *signup
	m.signups[signup.ID] = &clone
	return nil
}

func (m *mockStore) UpdateSignup(ctx context.Context, signup *model.Signup) error {
	if m.updateSignupErr != nil {
		return m.updateSignupErr
	}
	clone := *signup
	m.signups[signup.ID] = &clone
	return nil
}

func (m *mockStore) ListConfirmedWithShifts(ctx context.Context, volunteerID string) ([]ledger.ConfirmedSignupWithShift, error) {
	var result []ledger.ConfirmedSignupWithShift
	for _, s := range m.signups {
		if s.VolunteerID != volunteerID || s.Status != model.SignupConfirmed {
			continue
		}
		shift, ok := m.shifts[s.ShiftID]
		if !ok {
			continue
		}
		result = append(result, ledger.ConfirmedSignupWithShift{Signup: *s, Shift: *shift})
	}
	return result, nil
}

func (m *mockStore) ListRegularPendingSignups(ctx context.Context, volunteerID, shiftTypeID, location string) ([]model.Signup, error) {
	var result []model.Signup
	for _, s := range m.signups {
		if s.VolunteerID != volunteerID || s.Status != model.SignupRegularPending {
			continue
		}
		shift, ok := m.shifts[s.ShiftID]
		if !ok || shift.ShiftTypeID != shiftTypeID {
			continue
		}
		if location != "" && shift.Location != location {
			continue
		}
		result = append(result, *s)
	}
	return result, nil
}

func (m *mockStore) GetVolunteerEmail(ctx context.Context, volunteerID string) (string, error) {
	email, ok := m.emails[volunteerID]
	if !ok {
		return "", fmt.Errorf("volunteer %s: %w", volunteerID, model.ErrNotFound)
	}
	return email, nil
}

func (m *mockStore) FindVolunteerIDByEmail(ctx context.Context, email string) (string, error) {
	for id, e := range m.emails {
		if strings.EqualFold(e, email) {
			return id, nil
		}
	}
	return "", nil
}

func (m *mockStore) GetGroupForUpdate(ctx context.Context, id string) (*model.GroupBooking, error) {
	g, ok := m.groups[id]
	if !ok {
		return nil, fmt.Errorf("group booking %s: %w", id, model.ErrNotFound)
	}
	clone := *g
	return &clone, nil
}

func (m *mockStore) InsertGroup(ctx context.Context, group *model.GroupBooking) error {
	clone := *group
	m.groups[group.ID] = &clone
	return nil
}

func (m *mockStore) UpdateGroup(ctx context.Context, group *model.GroupBooking) error {
	clone := *group
	m.groups[group.ID] = &clone
	return nil
}

func (m *mockStore) FindActiveGroupByLeader(ctx context.Context, leaderID, shiftID string) (*model.GroupBooking, error) {
	for _, g := range m.groups {
		if g.LeaderID == leaderID && g.ShiftID == shiftID && g.Status != model.GroupCanceled {
			clone := *g
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *mockStore) ListGroupSignups(ctx context.Context, groupID string) ([]model.Signup, error) {
	var result []model.Signup
	for _, s := range m.signups {
		if s.GroupBookingID == groupID {
			result = append(result, *s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockStore) ListGroupInvitations(ctx context.Context, groupID string) ([]model.GroupInvitation, error) {
	var result []model.GroupInvitation
	for _, inv := range m.invitations {
		if inv.GroupBookingID == groupID {
			result = append(result, *inv)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockStore) InsertInvitation(ctx context.Context, inv *model.GroupInvitation) error {
	clone := *inv
	m.invitations[inv.ID] = &clone
	return nil
}

func (m *mockStore) UpdateInvitation(ctx context.Context, inv *model.GroupInvitation) error {
	clone := *inv
	m.invitations[inv.ID] = &clone
	return nil
}

func (m *mockStore) GetInvitationByToken(ctx context.Context, token string) (*model.GroupInvitation, error) {
	for _, inv := range m.invitations {
		if inv.Token == token {
			clone := *inv
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("invitation token: %w", model.ErrNotFound)
}

func (m *mockStore) ListEnabledRules(ctx context.Context) ([]model.AutoAcceptRule, error) {
	var result []model.AutoAcceptRule
	for _, r := range m.ruleSet {
		if r.Enabled {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *mockStore) InsertRuleGrant(ctx context.Context, grant *model.RuleGrant) error {
	m.grants = append(m.grants, *grant)
	return nil
}

func (m *mockStore) GetRegularForUpdate(ctx context.Context, id string) (*model.RegularVolunteer, error) {
	r, ok := m.regulars[id]
	if !ok {
		return nil, fmt.Errorf("regular volunteer %s: %w", id, model.ErrNotFound)
	}
	clone := *r
	return &clone, nil
}

func (m *mockStore) UpdateRegular(ctx context.Context, regular *model.RegularVolunteer) error {
	clone := *regular
	m.regulars[regular.ID] = &clone
	return nil
}

func (m *mockStore) VolunteerFacts(ctx context.Context, volunteerID, shiftTypeID string, now time.Time) (*model.VolunteerFacts, error) {
	f, ok := m.facts[volunteerID]
	if !ok {
		return nil, fmt.Errorf("volunteer %s: %w", volunteerID, model.ErrNotFound)
	}
	clone := *f
	return &clone, nil
}

var _ db.Tx = (*mockStore)(nil)
