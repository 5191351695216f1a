package http

import (
	"errors"
	"net/http"

	"github.com/studylane/assessment-engine/internal/errs"
)

// writeErr maps the engine's error taxonomy onto HTTP status codes so the
// frontend can render rule-specific UX.
func writeErr(w http.ResponseWriter, err error) {
	var (
		validation *errs.ValidationError
		notFound   *errs.NotFoundError
		denied     *errs.AccessDeniedError
		notPub     *errs.NotPublishedError
		deadline   *errs.DeadlinePassedError
		timeLimit  *errs.TimeLimitExceededError
		conflict   *errs.ConflictError
	)
	switch {
	case errors.As(err, &validation):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &notFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &denied):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.As(err, &notPub), errors.As(err, &deadline),
		errors.As(err, &timeLimit), errors.As(err, &conflict):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
