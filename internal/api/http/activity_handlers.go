package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/studylane/assessment-engine/internal/activity"
	"github.com/studylane/assessment-engine/internal/rbac"
)

var validate = validator.New()

type questionReq struct {
	ID                string   `json:"id"`
	OrderIndex        int      `json:"order_index"`
	Type              string   `json:"type" validate:"required,oneof=single_choice text open"`
	Prompt            string   `json:"prompt" validate:"required"`
	Points            int      `json:"points" validate:"min=1"`
	Options           []string `json:"options,omitempty"`
	CorrectOption     int      `json:"correct_option,omitempty"`
	CorrectTextAnswer string   `json:"correct_text_answer,omitempty"`
}

type createActivityReq struct {
	Title            string        `json:"title" validate:"required"`
	CourseID         string        `json:"course_id" validate:"required"`
	Topic            string        `json:"topic"`
	Type             string        `json:"type" validate:"required,oneof=homework_test control_work weekly_star remedial_task"`
	WeightMultiplier int           `json:"weight_multiplier"`
	TimeLimitSec     int           `json:"time_limit_sec"`
	Deadline         int64         `json:"deadline"`
	AssignedWeek     int           `json:"assigned_week"`
	Questions        []questionReq `json:"questions" validate:"dive"`
}

// POST /activities creates a DRAFT activity (or rewrites one still in DRAFT).
func CreateActivityHandler(store activity.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createActivityReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		a := activity.Activity{
			ID:               uuid.NewString(),
			CourseID:         req.CourseID,
			Title:            req.Title,
			Topic:            req.Topic,
			Type:             activity.Type(req.Type),
			Status:           activity.StatusDraft,
			WeightMultiplier: activity.ClampWeight(req.WeightMultiplier),
			TimeLimitSec:     req.TimeLimitSec,
			Deadline:         req.Deadline,
			AssignedWeek:     req.AssignedWeek,
			CreatedAt:        time.Now().Unix(),
		}
		for _, q := range req.Questions {
			id := q.ID
			if id == "" {
				id = uuid.NewString()
			}
			a.Questions = append(a.Questions, activity.Question{
				ID:                id,
				OrderIndex:        q.OrderIndex,
				Type:              activity.QuestionType(q.Type),
				Prompt:            q.Prompt,
				Points:            q.Points,
				Options:           q.Options,
				CorrectOption:     q.CorrectOption,
				CorrectTextAnswer: q.CorrectTextAnswer,
			})
		}
		if err := activity.Validate(a); err != nil {
			writeErr(w, err)
			return
		}
		if err := store.Put(r.Context(), a); err != nil {
			writeErr(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(a)
	}
}

// POST /activities/{activityID}/publish
func PublishActivityHandler(store activity.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "activityID")
		a, err := store.Publish(r.Context(), id, time.Now().Unix())
		if err != nil {
			writeErr(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(a)
	}
}

// GET /activities/{activityID}. DRAFT activities are invisible to students;
// answer keys are stripped unless the viewer can author activities.
func GetActivityHandler(store activity.Store) http.HandlerFunc {
	checker := rbac.NewChecker(nil)
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "activityID")
		a, err := store.Get(r.Context(), id)
		if err != nil {
			writeErr(w, err)
			return
		}
		role := rbac.RoleFromContext(r.Context())
		if !checker.Has(role, "activity:create") {
			if a.Status != activity.StatusReady {
				http.Error(w, "activity not found: "+id, http.StatusNotFound)
				return
			}
			a = a.StripAnswerKeys()
		}
		_ = json.NewEncoder(w).Encode(a)
	}
}

// GET /activities?course_id=...&topic=...&type=...&status=...&limit=&offset=
func ListActivitiesHandler(store activity.Store) http.HandlerFunc {
	checker := rbac.NewChecker(nil)
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		opts := activity.ListOpts{
			CourseID: strings.TrimSpace(q.Get("course_id")),
			Topic:    strings.TrimSpace(q.Get("topic")),
			Type:     activity.Type(strings.TrimSpace(q.Get("type"))),
			Status:   activity.Status(strings.TrimSpace(q.Get("status"))),
			Limit:    parseIntDefault(q.Get("limit"), 50),
			Offset:   parseIntDefault(q.Get("offset"), 0),
		}
		role := rbac.RoleFromContext(r.Context())
		author := checker.Has(role, "activity:create")
		if !author {
			opts.Status = activity.StatusReady
		}
		list, err := store.List(r.Context(), opts)
		if err != nil {
			writeErr(w, err)
			return
		}
		if !author {
			for i := range list {
				list[i] = list[i].StripAnswerKeys()
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(list)
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}
