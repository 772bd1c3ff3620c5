package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenderspro/backend/internal/model"
	"github.com/tenderspro/backend/internal/repository"
	"github.com/tenderspro/backend/internal/service"
)

type fakeAlertService struct {
	alerts  []model.Alert
	created *model.Alert
	err     error
}

func (f *fakeAlertService) Create(_ context.Context, userID uuid.UUID, input service.AlertInput) (*model.Alert, error) {
	if f.err != nil {
		return nil, f.err
	}
	alert := &model.Alert{ID: uuid.New(), UserID: userID, Name: input.Name}
	_ = alert.EncodeFilters(model.AlertFilters{
		Wilayas:     input.Wilayas,
		TenderTypes: input.TenderTypes,
		Categories:  input.Categories,
		Preferences: input.Preferences,
	})
	f.created = alert
	return alert, nil
}

func (f *fakeAlertService) List(context.Context, uuid.UUID) ([]model.Alert, error) {
	return f.alerts, f.err
}

func (f *fakeAlertService) Update(_ context.Context, userID, alertID uuid.UUID, input service.AlertInput) (*model.Alert, error) {
	if f.err != nil {
		return nil, f.err
	}
	alert := &model.Alert{ID: alertID, UserID: userID, Name: input.Name}
	_ = alert.EncodeFilters(model.AlertFilters{Preferences: input.Preferences})
	return alert, nil
}

func (f *fakeAlertService) Delete(context.Context, uuid.UUID, uuid.UUID) error {
	return f.err
}

func authedRequest(method, target string, body *bytes.Buffer) *http.Request {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, body)
	}
	ctx := context.WithValue(req.Context(), UserIDKey, uuid.New())
	return req.WithContext(ctx)
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestAlertHandler_Create(t *testing.T) {
	t.Parallel()

	svc := &fakeAlertService{}
	h := NewAlertHandler(svc)

	body := bytes.NewBufferString(`{
		"name": "Roads",
		"wilayas": ["Alger"],
		"categories": ["Travaux publics, routes"],
		"notificationPreferences": {"email": true, "in_app": true}
	}`)
	req := authedRequest(http.MethodPost, "/api/alerts", body)
	w := httptest.NewRecorder()

	h.Create(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var view struct {
		Name       string   `json:"name"`
		Wilayas    []string `json:"wilayas"`
		Categories []string `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "Roads", view.Name)
	assert.Equal(t, []string{"Alger"}, view.Wilayas)
	assert.Equal(t, []string{"Travaux publics, routes"}, view.Categories)
}

func TestAlertHandler_Create_Unauthorized(t *testing.T) {
	t.Parallel()

	h := NewAlertHandler(&fakeAlertService{})
	req := httptest.NewRequest(http.MethodPost, "/api/alerts", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()

	h.Create(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAlertHandler_List(t *testing.T) {
	t.Parallel()

	alert := model.Alert{ID: uuid.New(), Name: "Everything"}
	require.NoError(t, alert.EncodeFilters(model.AlertFilters{
		Preferences: model.NotificationPreferences{InApp: true},
	}))
	svc := &fakeAlertService{alerts: []model.Alert{alert}}
	h := NewAlertHandler(svc)

	req := authedRequest(http.MethodGet, "/api/alerts", nil)
	w := httptest.NewRecorder()

	h.List(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var views []alertView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "Everything", views[0].Name)
	assert.True(t, views[0].NotificationPreferences.InApp)
}

func TestAlertHandler_Update_BadID(t *testing.T) {
	t.Parallel()

	h := NewAlertHandler(&fakeAlertService{})
	req := authedRequest(http.MethodPut, "/api/alerts/nope", bytes.NewBufferString(`{}`))
	req = withURLParam(req, "id", "nope")
	w := httptest.NewRecorder()

	h.Update(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAlertHandler_Delete(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		h := NewAlertHandler(&fakeAlertService{})
		req := authedRequest(http.MethodDelete, "/api/alerts/x", nil)
		req = withURLParam(req, "id", uuid.NewString())
		w := httptest.NewRecorder()

		h.Delete(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()

		h := NewAlertHandler(&fakeAlertService{err: repository.ErrAlertNotFound})
		req := authedRequest(http.MethodDelete, "/api/alerts/x", nil)
		req = withURLParam(req, "id", uuid.NewString())
		w := httptest.NewRecorder()

		h.Delete(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
