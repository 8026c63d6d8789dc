package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clinisafe/patientvault/internal/export"
	"github.com/clinisafe/patientvault/internal/model"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	UserID      int64     `json:"user_id"`
	Username    string    `json:"username"`
	Role        string    `json:"role"`
}

func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed body")
	}
	id, tokens, err := s.auth.Authenticate(c.Request().Context(), req.Username, req.Password, c.RealIP())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loginResponse{
		AccessToken: tokens.AccessToken,
		ExpiresAt:   tokens.ExpiresAt,
		UserID:      id.UserID,
		Username:    id.Username,
		Role:        string(id.Role),
	})
}

func (s *Server) handleLogout(c echo.Context) error {
	actor, ok := identityFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "no identity")
	}
	if err := s.auth.Logout(c.Request().Context(), actor); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type patientRequest struct {
	Name      string `json:"name"`
	Contact   string `json:"contact"`
	Diagnosis string `json:"diagnosis"`
	Consent   bool   `json:"consent"`
}

type patientResponse struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Contact      string    `json:"contact"`
	Diagnosis    string    `json:"diagnosis"`
	CreatedAt    time.Time `json:"created_at"`
	IsObscured   bool      `json:"is_obscured"`
	ConsentGiven bool      `json:"consent_given"`
}

func toPatientResponse(p model.ProjectedPatient) patientResponse {
	return patientResponse{
		ID:           p.ID,
		Name:         p.Name,
		Contact:      p.Contact,
		Diagnosis:    p.Diagnosis,
		CreatedAt:    p.CreatedAt,
		IsObscured:   p.IsObscured,
		ConsentGiven: p.ConsentGiven,
	}
}

func (s *Server) handleListPatients(c echo.Context) error {
	actor, ok := identityFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "no identity")
	}
	obscuredView := c.QueryParam("view") == "obscured"
	patients, err := s.patients.List(c.Request().Context(), actor, obscuredView)
	if err != nil {
		return httpError(err)
	}
	out := make([]patientResponse, 0, len(patients))
	for _, p := range patients {
		out = append(out, toPatientResponse(p))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleAddPatient(c echo.Context) error {
	actor, ok := identityFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "no identity")
	}
	var req patientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed body")
	}
	id, err := s.patients.Add(c.Request().Context(), actor, req.Name, req.Contact, req.Diagnosis, req.Consent)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) handleEditPatient(c echo.Context) error {
	actor, ok := identityFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "no identity")
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "bad patient id")
	}
	var req patientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed body")
	}
	if err := s.patients.Edit(c.Request().Context(), actor, id, req.Name, req.Contact, req.Diagnosis); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleDeletePatient(c echo.Context) error {
	actor, ok := identityFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "no identity")
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "bad patient id")
	}
	if err := s.patients.Delete(c.Request().Context(), actor, id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleObscureAll(c echo.Context) error {
	actor, ok := identityFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "no identity")
	}
	count, err := s.patients.ObscureAll(c.Request().Context(), actor)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"obscured": count})
}

func (s *Server) handleRestoreAll(c echo.Context) error {
	actor, ok := identityFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "no identity")
	}
	restored, failed, err := s.patients.RestoreAll(c.Request().Context(), actor)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"restored": restored, "failed": failed})
}

func (s *Server) handleSweep(c echo.Context) error {
	count, err := s.patients.SweepExpired(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"deleted": count})
}

type auditResponse struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	Details   string    `json:"details"`
}

func (s *Server) handleLogs(c echo.Context) error {
	var roles []model.Role
	for _, r := range c.QueryParams()["role"] {
		roles = append(roles, model.Role(r))
	}
	actions := c.QueryParams()["action"]
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "bad limit")
		}
		limit = n
	}
	entries, err := s.audit.Filter(c.Request().Context(), roles, actions, limit)
	if err != nil {
		return httpError(err)
	}
	out := make([]auditResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditResponse{
			ID: e.ID, UserID: e.UserID, Username: e.Username,
			Role: string(e.Role), Action: e.Action, Timestamp: e.Timestamp, Details: e.Details,
		})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleLogStats(c echo.Context) error {
	days := 7
	if raw := c.QueryParam("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "bad days")
		}
		days = n
	}
	daily, actions, err := s.audit.RangeStats(c.Request().Context(), days)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"daily_counts":  daily,
		"action_counts": actions,
	})
}

type consentRequest struct {
	PatientID int64  `json:"patient_id"`
	Type      string `json:"type"`
	Given     bool   `json:"given"`
}

func (s *Server) handleRecordConsent(c echo.Context) error {
	actor, ok := identityFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "no identity")
	}
	var req consentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed body")
	}
	if err := s.consent.Record(c.Request().Context(), actor, req.PatientID, req.Type, req.Given); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusCreated)
}

func (s *Server) handleConsentSummary(c echo.Context) error {
	sum, rate, err := s.consent.Summary(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"given": sum.Given,
		"total": sum.Total,
		"rate":  rate,
	})
}

func (s *Server) handleConsentHistory(c echo.Context) error {
	patientID, err := strconv.ParseInt(c.Param("patientId"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "bad patient id")
	}
	entries, err := s.consent.ForPatient(c.Request().Context(), patientID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, entries)
}

func (s *Server) handleExportPatients(c echo.Context) error {
	actor, ok := identityFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "no identity")
	}
	patients, err := s.patients.List(c.Request().Context(), actor, false)
	if err != nil {
		return httpError(err)
	}
	csvData, err := export.PatientsCSV(patients)
	if err != nil {
		return httpError(err)
	}
	if err := s.audit.RecordExport(c.Request().Context(), actor, model.ActionExportPatients); err != nil {
		return httpError(err)
	}
	return c.Blob(http.StatusOK, "text/csv", []byte(csvData))
}

func (s *Server) handleExportLogs(c echo.Context) error {
	actor, ok := identityFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "no identity")
	}
	entries, err := s.audit.All(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	csvData, err := export.LogsCSV(entries)
	if err != nil {
		return httpError(err)
	}
	if err := s.audit.RecordExport(c.Request().Context(), actor, model.ActionExportLogs); err != nil {
		return httpError(err)
	}
	return c.Blob(http.StatusOK, "text/csv", []byte(csvData))
}
