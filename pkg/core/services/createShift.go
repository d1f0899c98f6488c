package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/malinmalliyawadu/volunteer-portal-sub005/pkg/core/model"
	"github.com/malinmalliyawadu/volunteer-portal-sub005/pkg/db"
)

// CreateShiftStore defines the database operations needed to create a
// shift
type CreateShiftStore interface {
	InTx(ctx context.Context, fn func(tx db.Tx) error) error
}

// CreateShiftParams describes the shift to create
type CreateShiftParams struct {
	ShiftTypeID string
	Location    string
	Start       time.Time
	End         time.Time
	Capacity    int
}

// CreateShift creates a shift of an existing shift type. The shift's
// window and capacity are validated before anything is written.
func CreateShift(ctx context.Context, store CreateShiftStore, logger *zap.Logger, params CreateShiftParams) (*model.Shift, error) {
	shift := model.Shift{
		ID:          uuid.NewString(),
		ShiftTypeID: params.ShiftTypeID,
		Location:    params.Location,
		Start:       params.Start,
		End:         params.End,
		Capacity:    params.Capacity,
	}
	if err := shift.Validate(); err != nil {
		return nil, err
	}

	err := store.InTx(ctx, func(tx db.Tx) error {
		shiftType, err := tx.GetShiftType(ctx, params.ShiftTypeID)
		if err != nil {
			return fmt.Errorf("failed to fetch shift type: %w", err)
		}

		if err := tx.InsertShift(ctx, &shift); err != nil {
			return fmt.Errorf("failed to insert shift: %w", err)
		}

		logger.Debug("Shift validated against type", zap.String("shift_type", shiftType.Name))
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Shift created",
		zap.String("shift_id", shift.ID),
		zap.String("shift_type_id", shift.ShiftTypeID),
		zap.Int("capacity", shift.Capacity))
	return &shift, nil
}
