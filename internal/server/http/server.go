// Package httpserver exposes the data-protection access layer over a thin
// HTTP JSON boundary. It renders nothing and keeps no session state; callers
// hold a bearer token issued at login.
package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/clinisafe/patientvault/internal/errs"
	"github.com/clinisafe/patientvault/internal/service"
)

// Server wires services into HTTP handlers.
type Server struct {
	auth     service.AuthService
	patients service.PatientService
	audit    service.AuditService
	consent  service.ConsentService
}

// New constructs a Server with injected services.
func New(auth service.AuthService, patients service.PatientService, audit service.AuditService, consent service.ConsentService) *Server {
	return &Server{auth: auth, patients: patients, audit: audit, consent: consent}
}

// Echo builds the echo instance with middleware and all routes registered.
func (s *Server) Echo(log *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(Recover(log), RequestLogger(log))

	e.POST("/api/login", s.handleLogin)

	api := e.Group("/api", RequireIdentity(s.auth))
	api.POST("/logout", s.handleLogout)

	api.GET("/patients", s.handleListPatients)
	api.POST("/patients", s.handleAddPatient)
	api.PUT("/patients/:id", s.handleEditPatient)
	api.DELETE("/patients/:id", s.handleDeletePatient)
	api.POST("/patients/obscure", s.handleObscureAll)
	api.POST("/patients/restore", s.handleRestoreAll)
	api.POST("/retention/sweep", s.handleSweep)

	api.GET("/logs", s.handleLogs)
	api.GET("/logs/stats", s.handleLogStats)

	api.POST("/consent", s.handleRecordConsent)
	api.GET("/consent/summary", s.handleConsentSummary)
	api.GET("/consent/:patientId", s.handleConsentHistory)

	api.GET("/export/patients", s.handleExportPatients)
	api.GET("/export/logs", s.handleExportLogs)

	return e
}

// httpError maps service errors onto HTTP status codes.
func httpError(err error) error {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, errs.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, errs.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, errs.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, errs.ErrRateLimited):
		return echo.NewHTTPError(http.StatusTooManyRequests, "too many attempts, try again later")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal")
	}
}
