package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"suctracker/backend/services/checkin-service/internal/auth"
	"suctracker/backend/services/checkin-service/internal/http/middleware"
	"suctracker/backend/services/checkin-service/internal/models"
	"suctracker/backend/services/checkin-service/internal/service"
)

const maxImportBytes = 16 << 20

// AdminLogin exchanges the admin password for a token.
type AdminLogin interface {
	Login(password string) (string, error)
}

// BulkImporter ingests the bulk feed.
type BulkImporter interface {
	Import(ctx context.Context, text string) (models.ImportResult, error)
}

// DirectoryRefresher rebuilds the station directory.
type DirectoryRefresher interface {
	Refresh(ctx context.Context) (service.RefreshResult, error)
}

// AdminHandlers serves /admin/*.
type AdminHandlers struct {
	login     AdminLogin
	importer  BulkImporter
	directory DirectoryRefresher
	logger    *zap.Logger
}

// NewAdminHandlers returns handler.
func NewAdminHandlers(login AdminLogin, importer BulkImporter, directory DirectoryRefresher, logger *zap.Logger) *AdminHandlers {
	return &AdminHandlers{login: login, importer: importer, directory: directory, logger: logger}
}

// Login handles POST /admin/login.
func (h *AdminHandlers) Login(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Password string `json:"password"`
	}
	type response struct {
		Token     string `json:"token"`
		TokenType string `json:"token_type"`
	}

	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "password is required")
		return
	}

	token, err := h.login.Login(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.logger.Error("admin login failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to login")
		return
	}

	writeJSON(w, http.StatusOK, response{Token: token, TokenType: "Bearer"})
}

// Import handles POST /admin/import with the feed as plain text body.
func (h *AdminHandlers) Import(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "import body too large")
		return
	}

	result, err := h.importer.Import(r.Context(), string(body))
	if err != nil {
		writeFailure(w, h.logger, "bulk import failed", err)
		return
	}
	h.logger.Info("bulk import requested",
		zap.String("subject", subject(r)),
		zap.Int("imported", result.Imported),
		zap.Int("failed", result.Failed),
	)
	writeJSON(w, http.StatusOK, result)
}

// Refresh handles POST /admin/stations/refresh.
func (h *AdminHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	result, err := h.directory.Refresh(r.Context())
	if errors.Is(err, service.ErrRefreshInProgress) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeFailure(w, h.logger, "directory refresh failed", err)
		return
	}
	h.logger.Info("directory refresh requested", zap.String("subject", subject(r)))
	writeJSON(w, http.StatusOK, result)
}

func subject(r *http.Request) string {
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		return claims.Subject
	}
	return ""
}
