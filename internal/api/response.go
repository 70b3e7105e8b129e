package api

import (
	"encoding/json"
	"net/http"

	"github.com/koustreak/dsneditor/internal/errs"
)

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

type dataResponse struct {
	Data any `json:"data"`
}

const (
	errCodeBadRequest       = "BAD_REQUEST"
	errCodeValidationFailed = "VALIDATION_FAILED"
	errCodeNotFound         = "NOT_FOUND"
	errCodeConflict         = "CONFLICT"
	errCodeForbidden        = "FORBIDDEN"
	errCodeTimeout          = "TIMEOUT"
	errCodeInternalError    = "INTERNAL_ERROR"
)

func jsonError(w http.ResponseWriter, status int, code, message string, details ...string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message, Details: details}})
}

func jsonOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, dataResponse{Data: data})
}

func jsonCreated(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, dataResponse{Data: data})
}

func jsonNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// jsonErr answers with the status that matches the kind of err. Backend
// failures are logged and reported without detail.
func (s *Server) jsonErr(w http.ResponseWriter, err error, op string) {
	switch errs.KindOf(err) {
	case errs.ErrKindNotFound:
		jsonError(w, http.StatusNotFound, errCodeNotFound, errs.Message(err))
	case errs.ErrKindAlreadyExists:
		jsonError(w, http.StatusConflict, errCodeConflict, errs.Message(err))
	case errs.ErrKindParseFailed, errs.ErrKindInvalidInput:
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, errs.Message(err))
	case errs.ErrKindPermissionDenied:
		jsonError(w, http.StatusForbidden, errCodeForbidden, errs.Message(err))
	case errs.ErrKindTimeout:
		jsonError(w, http.StatusGatewayTimeout, errCodeTimeout, errs.Message(err))
	default:
		if errs.IsValidation(err) {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, errs.Message(err))
			return
		}
		s.log.ErrorWith(op+" failed", err, nil)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
	}
}
