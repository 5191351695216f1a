package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/studylane/assessment-engine/internal/activity"
	enginehttp "github.com/studylane/assessment-engine/internal/api/http"
	"github.com/studylane/assessment-engine/internal/attempt"
	"github.com/studylane/assessment-engine/internal/grading"
	"github.com/studylane/assessment-engine/internal/rbac"
)

// identity injects subject and role from test headers, standing in for the
// JWT middleware.
func identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := rbac.WithSubject(r.Context(), r.Header.Get("X-Test-Sub"))
		ctx = rbac.WithRole(ctx, r.Header.Get("X-Test-Role"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	acts := activity.NewInMemoryStore()
	gate := rbac.NewGate(rbac.RoleMap{
		"s1": "student",
		"s2": "student",
		"t1": "teacher",
	})
	svc := attempt.NewService(attempt.NewInMemoryStore(), acts, gate, grading.NewDefaultGrader())

	r := chi.NewRouter()
	r.Use(identity)
	r.Route("/activities", func(r chi.Router) {
		r.With(rbac.Require("activity:create")).Post("/", enginehttp.CreateActivityHandler(acts))
		r.With(rbac.Require("activity:publish")).Post("/{activityID}/publish", enginehttp.PublishActivityHandler(acts))
		r.With(rbac.Require("activity:view")).Get("/{activityID}", enginehttp.GetActivityHandler(acts))
		r.With(rbac.Require("activity:view")).Get("/", enginehttp.ListActivitiesHandler(acts))
	})
	r.Route("/attempts", func(r chi.Router) {
		r.With(rbac.Require("attempt:start")).Post("/", enginehttp.StartAttemptHandler(svc))
		r.With(rbac.Require("attempt:submit")).Post("/{attemptID}/submit", enginehttp.SubmitAttemptHandler(svc))
		r.With(rbac.Require("attempt:grade")).Post("/{attemptID}/grades", enginehttp.GradeAttemptHandler(svc))
		r.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).Get("/{attemptID}", enginehttp.GetAttemptHandler(svc))
		r.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).Get("/", enginehttp.ListAttemptsHandler(svc))
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, sub, role string, body any, out any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("X-Test-Sub", sub)
	req.Header.Set("X-Test-Role", role)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp
}

func createReq() map[string]any {
	return map[string]any{
		"title":     "Fractions homework",
		"course_id": "c1",
		"topic":     "Fractions",
		"type":      "homework_test",
		"questions": []map[string]any{
			{
				"id": "q1", "order_index": 1, "type": "single_choice", "prompt": "pick",
				"points": 3, "options": []string{"a", "b", "c", "d"}, "correct_option": 2,
			},
			{
				"id": "q2", "order_index": 2, "type": "text", "prompt": "capital",
				"points": 2, "correct_text_answer": "paris",
			},
		},
	}
}

func TestActivityLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	var created activity.Activity
	resp := do(t, srv, http.MethodPost, "/activities", "t1", "teacher", createReq(), &created)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	if created.Status != activity.StatusDraft {
		t.Errorf("created status = %s, want draft", created.Status)
	}

	// drafts are invisible to students
	resp = do(t, srv, http.MethodGet, "/activities/"+created.ID, "s1", "student", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("student draft read status = %d, want 404", resp.StatusCode)
	}

	// students cannot author
	resp = do(t, srv, http.MethodPost, "/activities", "s1", "student", createReq(), nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("student create status = %d, want 403", resp.StatusCode)
	}

	var published activity.Activity
	resp = do(t, srv, http.MethodPost, "/activities/"+created.ID+"/publish", "t1", "teacher", nil, &published)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("publish status = %d", resp.StatusCode)
	}
	if published.Status != activity.StatusReady {
		t.Errorf("published status = %s, want ready", published.Status)
	}

	// publish is not repeatable
	resp = do(t, srv, http.MethodPost, "/activities/"+created.ID+"/publish", "t1", "teacher", nil, nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("double publish status = %d, want 422", resp.StatusCode)
	}

	// student view has the answer keys stripped
	var studentView activity.Activity
	resp = do(t, srv, http.MethodGet, "/activities/"+created.ID, "s1", "student", nil, &studentView)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("student read status = %d", resp.StatusCode)
	}
	for _, q := range studentView.Questions {
		if q.CorrectOption != 0 || q.CorrectTextAnswer != "" {
			t.Errorf("question %s leaked its answer key", q.ID)
		}
	}
}

func TestAttemptFlowOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	var act activity.Activity
	do(t, srv, http.MethodPost, "/activities", "t1", "teacher", createReq(), &act)
	do(t, srv, http.MethodPost, "/activities/"+act.ID+"/publish", "t1", "teacher", nil, nil)

	var started attempt.StartResult
	resp := do(t, srv, http.MethodPost, "/attempts", "s1", "student",
		map[string]string{"activity_id": act.ID}, &started)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start status = %d", resp.StatusCode)
	}
	if !started.Created || started.Attempt.Number != 1 {
		t.Errorf("start = created=%v #%d", started.Created, started.Attempt.Number)
	}

	// missing answers fail validation
	resp = do(t, srv, http.MethodPost, "/attempts/"+started.Attempt.ID+"/submit", "s1", "student",
		map[string]any{"answers": []map[string]any{{"question_id": "q1", "selected_option": 2}}}, nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("incomplete submit status = %d, want 422", resp.StatusCode)
	}

	var v attempt.View
	resp = do(t, srv, http.MethodPost, "/attempts/"+started.Attempt.ID+"/submit", "s1", "student",
		map[string]any{"answers": []map[string]any{
			{"question_id": "q1", "selected_option": 2},
			{"question_id": "q2", "text_answer": "Paris"},
		}}, &v)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit status = %d", resp.StatusCode)
	}
	if v.Status != attempt.StatusGraded || v.Score != 5 {
		t.Errorf("submit result = %s %d, want graded 5", v.Status, v.Score)
	}

	// another student cannot read the attempt
	resp = do(t, srv, http.MethodGet, "/attempts/"+started.Attempt.ID, "s2", "student", nil, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("stranger read status = %d, want 403", resp.StatusCode)
	}

	// teachers can
	resp = do(t, srv, http.MethodGet, "/attempts/"+started.Attempt.ID, "t1", "teacher", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("teacher read status = %d, want 200", resp.StatusCode)
	}

	// a student listing attempts only ever sees their own
	var mine []attempt.View
	resp = do(t, srv, http.MethodGet, "/attempts?student_id=s1", "s2", "student", nil, &mine)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	if len(mine) != 0 {
		t.Errorf("s2 sees %d of s1's attempts", len(mine))
	}
}

func TestUnauthenticatedRequestRejected(t *testing.T) {
	srv := newTestServer(t)
	resp := do(t, srv, http.MethodGet, "/activities", "", "", nil, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("anonymous list status = %d, want 403", resp.StatusCode)
	}
}
