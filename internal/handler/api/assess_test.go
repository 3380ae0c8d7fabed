package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"SepsisWatch/internal/domain/models"
	xlogger "SepsisWatch/pkg/logger"

	"github.com/labstack/echo/v4"
)

type stubResults struct {
	latest    *models.RiskResult
	history   []models.RiskResult
	lastLimit int
}

func (s *stubResults) Latest(_ context.Context, _ string) (*models.RiskResult, error) {
	if s.latest == nil {
		return nil, sql.ErrNoRows
	}
	return s.latest, nil
}

func (s *stubResults) History(_ context.Context, _, _ string, _, _ time.Time, limit int) ([]models.RiskResult, error) {
	s.lastLimit = limit
	if limit < len(s.history) {
		return s.history[:limit], nil
	}
	return s.history, nil
}

func testLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func latestContext(target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/api/v1/patients/:patient_id/latest")
	c.SetParamNames("patient_id")
	c.SetParamValues("P001")
	return c, rec
}

type apiEnvelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func TestLatestReturnsSingleAssessment(t *testing.T) {
	results := &stubResults{latest: &models.RiskResult{PatientID: "P001", RiskScore: 0.3214, RiskLevel: models.RiskMedium}}
	h := NewAssessEchoHandler(testLogger(t), nil, results, nil)

	c, rec := latestContext("/api/v1/patients/P001/latest")
	if err := h.Latest(c); err != nil {
		t.Fatalf("latest: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}

	var env apiEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	var got models.RiskResult
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if got.PatientID != "P001" || got.RiskScore != 0.3214 {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestLatestHonorsN(t *testing.T) {
	results := &stubResults{history: []models.RiskResult{
		{PatientID: "P001", RiskScore: 0.5},
		{PatientID: "P001", RiskScore: 0.4},
		{PatientID: "P001", RiskScore: 0.3},
	}}
	h := NewAssessEchoHandler(testLogger(t), nil, results, nil)

	c, rec := latestContext("/api/v1/patients/P001/latest?n=2")
	if err := h.Latest(c); err != nil {
		t.Fatalf("latest: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	if results.lastLimit != 2 {
		t.Fatalf("store queried with limit %d, want 2", results.lastLimit)
	}

	var env apiEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	var list struct {
		Rows  []models.RiskResult `json:"rows"`
		Total int64               `json:"total"`
	}
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Rows) != 2 || list.Total != 2 {
		t.Fatalf("got %d rows total %d, want 2", len(list.Rows), list.Total)
	}
	if list.Rows[0].RiskScore != 0.5 {
		t.Fatalf("rows must come back newest first: %+v", list.Rows)
	}
}

func TestLatestNotFound(t *testing.T) {
	h := NewAssessEchoHandler(testLogger(t), nil, &stubResults{}, nil)

	c, rec := latestContext("/api/v1/patients/P001/latest")
	if err := h.Latest(c); err != nil {
		t.Fatalf("latest: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", rec.Code)
	}
}
