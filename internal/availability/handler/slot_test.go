package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"

	"fieldslots/internal/availability/grid"
	"fieldslots/internal/availability/selection"
	"fieldslots/internal/availability/service"
	"fieldslots/internal/availability/validator"
	apperrors "fieldslots/pkg/errors"
	"fieldslots/pkg/logger"
	"fieldslots/pkg/model"
)

type mockSlotService struct {
	setScopeFunc func(ctx context.Context, branchID int64, date string) error
	refreshFunc  func(ctx context.Context) error
	clickFunc    func(ctx context.Context, field model.Field, hour int) (*service.ClickResult, error)
	g            *grid.Grid
	resets       int
}

func (m *mockSlotService) SetScope(ctx context.Context, branchID int64, date string) error {
	if m.setScopeFunc != nil {
		return m.setScopeFunc(ctx, branchID, date)
	}
	return nil
}

func (m *mockSlotService) Scope() (grid.Scope, bool) {
	return m.g.Scope(), !m.g.Scope().IsZero()
}

func (m *mockSlotService) Grid() *grid.Grid { return m.g }

func (m *mockSlotService) Refresh(ctx context.Context) error {
	if m.refreshFunc != nil {
		return m.refreshFunc(ctx)
	}
	return nil
}

func (m *mockSlotService) Click(ctx context.Context, field model.Field, hour int) (*service.ClickResult, error) {
	if m.clickFunc != nil {
		return m.clickFunc(ctx, field, hour)
	}
	return &service.ClickResult{Result: selection.Result{Outcome: selection.OutcomeStarted}}, nil
}

func (m *mockSlotService) Selection() selection.State {
	return selection.State{Mode: selection.AwaitingStart}
}

func (m *mockSlotService) ResetSelection() { m.resets++ }

func (m *mockSlotService) Close() error { return nil }

func newRouter(svc service.SlotService) *httprouter.Router {
	router := httprouter.New()
	NewSlotHandler(svc, validator.NewPayloadValidator(time.UTC), logger.Discard()).RegisterRoutes(router)
	return router
}

func serve(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSetScope(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCalled bool
	}{
		{"valid", `{"branchId":2,"date":"2024-06-01"}`, http.StatusOK, true},
		{"all branches", `{"branchId":0,"date":"2024-06-01"}`, http.StatusOK, true},
		{"bad date", `{"branchId":2,"date":"06/01/2024"}`, http.StatusUnprocessableEntity, false},
		{"negative branch", `{"branchId":-1,"date":"2024-06-01"}`, http.StatusUnprocessableEntity, false},
		{"unknown field", `{"branch":2,"date":"2024-06-01"}`, http.StatusBadRequest, false},
		{"empty body", ``, http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			svc := &mockSlotService{
				g: grid.Empty(grid.Scope{}, 0, nil),
				setScopeFunc: func(ctx context.Context, branchID int64, date string) error {
					called = true
					return nil
				},
			}

			rec := serve(newRouter(svc), http.MethodPut, "/api/v1/scope", tt.body)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if called != tt.wantCalled {
				t.Errorf("expected service called=%v, got %v", tt.wantCalled, called)
			}
		})
	}
}

func TestGetGrid(t *testing.T) {
	scope := grid.Scope{BranchID: 1, Date: "2024-06-01"}
	svc := &mockSlotService{g: grid.New(scope, 7, grid.SourceLive, grid.CandidateHours(8, 24), map[int64][]int{5: {8, 9}})}

	rec := serve(newRouter(svc), http.MethodGet, "/api/v1/grid", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Data grid.View `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Data.Version != 7 || body.Data.Source != grid.SourceLive {
		t.Errorf("unexpected grid header %+v", body.Data)
	}
	if len(body.Data.Fields) != 1 || len(body.Data.Fields[0].BookedHours) != 2 {
		t.Errorf("unexpected fields %+v", body.Data.Fields)
	}
}

func TestRefresh(t *testing.T) {
	svc := &mockSlotService{g: grid.Empty(grid.Scope{}, 0, nil)}
	router := newRouter(svc)

	if rec := serve(router, http.MethodPost, "/api/v1/grid/refresh", ""); rec.Code != http.StatusAccepted {
		t.Errorf("expected 202, got %d", rec.Code)
	}

	svc.refreshFunc = func(ctx context.Context) error {
		return apperrors.Conflict("No branch and date selected")
	}
	if rec := serve(router, http.MethodPost, "/api/v1/grid/refresh", ""); rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
}

func TestClick(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		result     *service.ClickResult
		err        error
		wantStatus int
	}{
		{
			name:       "started",
			body:       `{"fieldId":3,"hour":10}`,
			result:     &service.ClickResult{Result: selection.Result{Outcome: selection.OutcomeStarted}},
			wantStatus: http.StatusOK,
		},
		{
			name: "completed with reservation",
			body: `{"fieldId":3,"fieldStatus":"available","hour":12}`,
			result: &service.ClickResult{
				Result:      selection.Result{Outcome: selection.OutcomeCompleted},
				Reservation: &model.Reservation{ID: "r-1", FieldID: 3},
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "rejected by booking service",
			body:       `{"fieldId":3,"hour":12}`,
			err:        apperrors.Rejected("Slot taken", http.StatusConflict),
			wantStatus: http.StatusConflict,
		},
		{
			name:       "missing hour",
			body:       `{"fieldId":3}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "hour out of range",
			body:       `{"fieldId":3,"hour":24}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "bad status",
			body:       `{"fieldId":3,"fieldStatus":"broken","hour":10}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockSlotService{
				g: grid.Empty(grid.Scope{}, 0, nil),
				clickFunc: func(ctx context.Context, field model.Field, hour int) (*service.ClickResult, error) {
					return tt.result, tt.err
				},
			}

			rec := serve(newRouter(svc), http.MethodPost, "/api/v1/selection/click", tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestClick_DefaultsFieldStatus(t *testing.T) {
	var got model.Field
	svc := &mockSlotService{
		g: grid.Empty(grid.Scope{}, 0, nil),
		clickFunc: func(ctx context.Context, field model.Field, hour int) (*service.ClickResult, error) {
			got = field
			return &service.ClickResult{Result: selection.Result{Outcome: selection.OutcomeStarted}}, nil
		},
	}

	serve(newRouter(svc), http.MethodPost, "/api/v1/selection/click", `{"fieldId":3,"hour":10}`)

	if got.ID != 3 || got.Status != model.FieldStatusAvailable {
		t.Errorf("unexpected field passed to service: %+v", got)
	}
}

func TestSelection(t *testing.T) {
	svc := &mockSlotService{g: grid.Empty(grid.Scope{}, 0, nil)}
	router := newRouter(svc)

	rec := serve(router, http.MethodGet, "/api/v1/selection", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"awaiting_start"`) {
		t.Errorf("unexpected selection response %d %s", rec.Code, rec.Body.String())
	}

	rec = serve(router, http.MethodDelete, "/api/v1/selection", "")
	if rec.Code != http.StatusNoContent || svc.resets != 1 {
		t.Errorf("expected reset with 204, got %d and %d resets", rec.Code, svc.resets)
	}
}
