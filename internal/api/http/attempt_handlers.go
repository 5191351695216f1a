package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/studylane/assessment-engine/internal/attempt"
	"github.com/studylane/assessment-engine/internal/rbac"
)

// POST /attempts  { "activity_id": "..." }
// Idempotent: an attempt already in progress comes back with created=false.
func StartAttemptHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ActivityID string `json:"activity_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.ActivityID == "" {
			http.Error(w, "activity_id required", http.StatusBadRequest)
			return
		}
		sub := rbac.SubjectFromContext(r.Context())
		res, err := svc.Start(r.Context(), req.ActivityID, sub)
		if err != nil {
			writeErr(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(res)
	}
}

// POST /attempts/{attemptID}/submit  { "answers": [ ... ] }
func SubmitAttemptHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "attemptID"))
		var req struct {
			Answers []attempt.AnswerInput `json:"answers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := validate.Var(req.Answers, "dive,required"); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		sub := rbac.SubjectFromContext(r.Context())
		v, err := svc.Submit(r.Context(), id, sub, req.Answers)
		if err != nil {
			writeErr(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(v)
	}
}

// POST /attempts/{attemptID}/grades  { "grades": [ ... ] }
func GradeAttemptHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "attemptID"))
		var req struct {
			Grades []attempt.GradeInput `json:"grades"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := validate.Var(req.Grades, "dive,required"); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		sub := rbac.SubjectFromContext(r.Context())
		v, err := svc.Grade(r.Context(), id, sub, req.Grades)
		if err != nil {
			writeErr(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(v)
	}
}

// GET /attempts/{attemptID}
func GetAttemptHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "attemptID"))
		sub := rbac.SubjectFromContext(r.Context())
		v, err := svc.GetAttempt(r.Context(), id, sub)
		if err != nil {
			writeErr(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(v)
	}
}

// GET /attempts?activity_id=...&student_id=...&status=...&limit=50&offset=0&sort=started_at
// Callers without attempt:view-all only ever see their own attempts.
func ListAttemptsHandler(svc *attempt.Service) http.HandlerFunc {
	checker := rbac.NewChecker(nil)
	return func(w http.ResponseWriter, r *http.Request) {
		role := rbac.RoleFromContext(r.Context())
		sub := rbac.SubjectFromContext(r.Context())

		q := r.URL.Query()
		studentID := strings.TrimSpace(q.Get("student_id"))
		if !checker.Has(role, "attempt:view-all") {
			studentID = sub
		}
		list, err := svc.ListAttempts(r.Context(), attempt.ListOpts{
			ActivityID: strings.TrimSpace(q.Get("activity_id")),
			StudentID:  studentID,
			Status:     attempt.Status(strings.TrimSpace(q.Get("status"))),
			Limit:      parseIntDefault(q.Get("limit"), 50),
			Offset:     parseIntDefault(q.Get("offset"), 0),
			Sort:       strings.TrimSpace(q.Get("sort")),
		})
		if err != nil {
			writeErr(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(list)
	}
}
