// internal/app/features/governance/handler.go
package governance

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - callerID: the signed-in user making the request

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	uierrors "github.com/dalemusser/civic/internal/app/features/errors"
	"github.com/dalemusser/civic/internal/app/governance"
	"github.com/dalemusser/civic/internal/app/system/authz"
	"github.com/dalemusser/civic/internal/app/system/limits"
	"github.com/dalemusser/civic/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the governance JSON API.
type Handler struct {
	Engine *governance.Engine
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger

	// Limiter caps state-changing requests per user. Nil disables it.
	Limiter *ratelimit.Limiter
}

// NewHandler constructs a governance Handler.
func NewHandler(engine *governance.Engine, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Engine: engine,
		Log:    logger,
		ErrLog: uierrors.NewErrorLogger(logger),
	}
}

// callerID returns the signed-in user's id. RequireSignedIn runs first, so a
// failure here only happens when the handler is used without it.
func callerID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	_, id, ok := authz.UserCtx(r)
	if !ok {
		uierrors.Unauthorized(w)
		return primitive.NilObjectID, false
	}
	return id, true
}

// idParam parses a hex ObjectID URL parameter.
func idParam(w http.ResponseWriter, r *http.Request, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		uierrors.BadRequest(w, "Invalid "+name+".")
		return primitive.NilObjectID, false
	}
	return id, true
}

// parseID parses an optional hex ObjectID from a request body field.
func parseID(s string) (*primitive.ObjectID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// decode reads a JSON body into dst. An empty body leaves dst unchanged.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limits.MaxGovernanceBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		uierrors.BadRequest(w, "Malformed request body.")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps governance codes to HTTP statuses.
func statusFor(code governance.Code) int {
	switch code {
	case governance.CodeNotFound:
		return http.StatusNotFound
	case governance.CodeNotAuthorized:
		return http.StatusForbidden
	case governance.CodeAlreadyVoted, governance.CodeInvalidOperation, governance.CodeGovernanceViolation:
		return http.StatusConflict
	case governance.CodeInvalidTarget:
		return http.StatusUnprocessableEntity
	case governance.CodeExecutionFailed:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// fail renders err. Governance errors keep their code, reason, and hint;
// anything else is logged and reported as a 500.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	var ge *governance.Error
	if errors.As(err, &ge) {
		uierrors.JSON(w, statusFor(ge.Code), uierrors.Body{
			Code:      string(ge.Code),
			Reason:    ge.Error(),
			Hint:      ge.Hint,
			RequestID: RequestIDFrom(r.Context()),
		})
		return
	}
	h.ErrLog.ServerError(w, r, op+" failed", err)
}
