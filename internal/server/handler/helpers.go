package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/predicthub/predicthub/internal/domain"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 16

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps a domain error to the HTTP status the API reports for it.
// Unknown errors are internal.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidAmount):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInsufficientAllowance),
		errors.Is(err, domain.ErrMarketClosed),
		errors.Is(err, domain.ErrMarketOpen),
		errors.Is(err, domain.ErrNothingToWithdraw):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNoWallet), errors.Is(err, domain.ErrSnapshotLoading):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError reports err to the client. Only internal failures are
// logged; everything else is the caller's problem and is echoed back.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "handler: "+op+" failed",
			slog.String("error", err.Error()),
		)
		writeError(w, status, op+" failed")
		return
	}
	writeError(w, status, rootMessage(err))
}

// rootMessage returns the sentinel text of a domain error without the
// package prefixes added while wrapping.
func rootMessage(err error) string {
	for _, sentinel := range []error{
		domain.ErrNotFound,
		domain.ErrInvalidAmount,
		domain.ErrInsufficientAllowance,
		domain.ErrMarketClosed,
		domain.ErrMarketOpen,
		domain.ErrNothingToWithdraw,
		domain.ErrUnauthorized,
		domain.ErrNoWallet,
		domain.ErrSnapshotLoading,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

// marketID parses the {id} path parameter.
func marketID(r *http.Request) (uint64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid market id %q", raw)
	}
	return id, nil
}

// parseSide accepts "yes" or "no" in any case.
func parseSide(s string) (domain.Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes":
		return domain.SideYes, nil
	case "no":
		return domain.SideNo, nil
	default:
		return domain.SideNo, fmt.Errorf("invalid side %q", s)
	}
}

// newValidator returns a validator that reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeBody reads a JSON body into dst and validates it. The returned
// status is 400 for malformed JSON and 422 for failed validation.
func decodeBody(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any) (int, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err)
	}
	if err := v.Struct(dst); err != nil {
		return http.StatusUnprocessableEntity, validationError(err)
	}
	return 0, nil
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "oneof":
			msgs = append(msgs, fe.Field()+" must be one of: "+fe.Param())
		default:
			msgs = append(msgs, fe.Field()+" failed "+fe.Tag()+" validation")
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
