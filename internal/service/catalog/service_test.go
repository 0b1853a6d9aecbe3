package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository/memory"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
	"github.com/jwalitptl/booking-api/pkg/logger"
)

func ptr[T any](v T) *T { return &v }

func TestCreateService(t *testing.T) {
	svc := NewService(memory.NewServiceRepository(), logger.Nop())
	ctx := context.Background()

	created, err := svc.CreateService(ctx, &model.CreateServiceRequest{
		Name:            " Haircut ",
		DurationMinutes: 30,
		Price:           25,
		StaffIDs:        []string{"staff-1", "staff-1", "staff-2"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Haircut", created.Name)
	assert.True(t, created.Active)
	assert.Equal(t, []string{"staff-1", "staff-2"}, []string(created.StaffIDs))

	got, err := svc.GetService(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, got.Name)

	_, err = svc.GetService(ctx, "missing")
	assert.True(t, errors.Is(err, apperrors.NotFoundError))
}

func TestCreateServiceValidation(t *testing.T) {
	svc := NewService(memory.NewServiceRepository(), logger.Nop())

	tests := []struct {
		name string
		req  model.CreateServiceRequest
	}{
		{"empty name", model.CreateServiceRequest{Name: " ", DurationMinutes: 30}},
		{"too short", model.CreateServiceRequest{Name: "Quick", DurationMinutes: 10}},
		{"negative price", model.CreateServiceRequest{Name: "Refund", DurationMinutes: 30, Price: -1}},
		{"blank staff", model.CreateServiceRequest{Name: "Cut", DurationMinutes: 30, StaffIDs: []string{""}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateService(context.Background(), &tt.req)
			var appErr *apperrors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
		})
	}
}

func TestUpdateAndListServices(t *testing.T) {
	svc := NewService(memory.NewServiceRepository(), logger.Nop())
	ctx := context.Background()

	a, err := svc.CreateService(ctx, &model.CreateServiceRequest{Name: "Beta", DurationMinutes: 30, StaffIDs: []string{"staff-1"}})
	require.NoError(t, err)
	_, err = svc.CreateService(ctx, &model.CreateServiceRequest{Name: "Alpha", DurationMinutes: 45, StaffIDs: []string{"staff-2"}})
	require.NoError(t, err)

	updated, err := svc.UpdateService(ctx, a.ID, &model.UpdateServiceRequest{DurationMinutes: ptr(60), Active: ptr(false)})
	require.NoError(t, err)
	assert.Equal(t, 60, updated.DurationMinutes)
	assert.False(t, updated.Active)
	assert.Equal(t, "Beta", updated.Name)

	_, err = svc.UpdateService(ctx, a.ID, &model.UpdateServiceRequest{DurationMinutes: ptr(5)})
	assert.Error(t, err)

	all, err := svc.ListServices(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Alpha", all[0].Name)

	active, err := svc.ListServices(ctx, &model.ServiceFilters{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Alpha", active[0].Name)

	byStaff, err := svc.ListServices(ctx, &model.ServiceFilters{StaffID: "staff-1"})
	require.NoError(t, err)
	require.Len(t, byStaff, 1)
	assert.Equal(t, a.ID, byStaff[0].ID)

	none, err := svc.ListServices(ctx, &model.ServiceFilters{StaffID: "nobody"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
