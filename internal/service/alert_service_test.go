package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenderspro/backend/internal/apperror"
	"github.com/tenderspro/backend/internal/model"
	"github.com/tenderspro/backend/internal/repository"
)

type fakeAlertStore struct {
	alerts map[uuid.UUID]model.Alert
}

func newFakeAlertStore() *fakeAlertStore {
	return &fakeAlertStore{alerts: map[uuid.UUID]model.Alert{}}
}

func (f *fakeAlertStore) Create(_ context.Context, alert *model.Alert) error {
	alert.ID = uuid.New()
	f.alerts[alert.ID] = *alert
	return nil
}

func (f *fakeAlertStore) GetByID(_ context.Context, id uuid.UUID) (*model.Alert, error) {
	a, ok := f.alerts[id]
	if !ok {
		return nil, repository.ErrAlertNotFound
	}
	return &a, nil
}

func (f *fakeAlertStore) ListByUserID(_ context.Context, userID uuid.UUID) ([]model.Alert, error) {
	var out []model.Alert
	for _, a := range f.alerts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAlertStore) Update(_ context.Context, alert *model.Alert) error {
	existing, ok := f.alerts[alert.ID]
	if !ok || existing.UserID != alert.UserID {
		return repository.ErrAlertNotFound
	}
	f.alerts[alert.ID] = *alert
	return nil
}

func (f *fakeAlertStore) Delete(_ context.Context, id, userID uuid.UUID) error {
	existing, ok := f.alerts[id]
	if !ok || existing.UserID != userID {
		return repository.ErrAlertNotFound
	}
	delete(f.alerts, id)
	return nil
}

func TestAlertService_Create(t *testing.T) {
	t.Parallel()

	svc := NewAlertService(newFakeAlertStore())
	userID := uuid.New()

	alert, err := svc.Create(context.Background(), userID, AlertInput{
		Name:        "Roads in Alger",
		Wilayas:     []string{"Alger"},
		Categories:  []string{"Travaux publics, routes"},
		Preferences: model.NotificationPreferences{Email: true, InApp: true},
	})

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, alert.ID)

	filters, err := alert.DecodeFilters()
	require.NoError(t, err)
	assert.Equal(t, []string{"Alger"}, filters.Wilayas)
	assert.Equal(t, []string{"Travaux publics, routes"}, filters.Categories)
	assert.True(t, filters.Preferences.Email)
}

func TestAlertService_Create_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input AlertInput
	}{
		{name: "empty name", input: AlertInput{Name: "   "}},
		{name: "reserved sequence in category", input: AlertInput{
			Name:       "Bad",
			Categories: []string{"a|||b"},
		}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := NewAlertService(newFakeAlertStore())
			_, err := svc.Create(context.Background(), uuid.New(), tt.input)

			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
		})
	}
}

func TestAlertService_Create_LimitReached(t *testing.T) {
	t.Parallel()

	store := newFakeAlertStore()
	svc := NewAlertService(store)
	userID := uuid.New()

	for i := 0; i < maxAlertsPerUser; i++ {
		_, err := svc.Create(context.Background(), userID, AlertInput{Name: "Alert"})
		require.NoError(t, err)
	}

	_, err := svc.Create(context.Background(), userID, AlertInput{Name: "One too many"})
	assert.Error(t, err)
}

func TestAlertService_Delete_OtherUsersAlert(t *testing.T) {
	t.Parallel()

	store := newFakeAlertStore()
	svc := NewAlertService(store)

	owner := uuid.New()
	alert, err := svc.Create(context.Background(), owner, AlertInput{Name: "Mine"})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), uuid.New(), alert.ID)
	assert.ErrorIs(t, err, repository.ErrAlertNotFound)
}
