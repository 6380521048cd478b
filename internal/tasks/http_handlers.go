package tasks

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"viraflow-api/internal/ai"
	"viraflow-api/internal/analytics"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}

// decodeBody reports (status, detail) for anything that is the caller's fault.
func decodeBody(r *http.Request, v any) (int, string, bool) {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return http.StatusRequestEntityTooLarge, "request body too large", false
		}
		return http.StatusBadRequest, "invalid json", false
	}
	return 0, "", true
}

// fail logs err and answers according to policy. degraded builds the 200
// payload for Degrade endpoints.
func (h *TaskHandler) fail(w http.ResponseWriter, r *http.Request, endpoint string, policy FailurePolicy, err error, degraded func(msg string) any) {
	env := analytics.FromRequest(r)
	h.Log.ErrorContext(r.Context(), "completion failed",
		"endpoint", endpoint,
		"request_id", env.RequestID,
		"platform", env.Platform,
		"app_version", env.AppVersion,
		"device_locale", env.DeviceLocale,
		"err", err,
	)

	if policy == Degrade {
		h.Metrics.Log(env, endpoint, analytics.OutcomeDegraded)
		writeJSON(w, http.StatusOK, degraded(err.Error()))
		return
	}

	h.Metrics.Log(env, endpoint, analytics.OutcomeFailed)
	writeError(w, http.StatusInternalServerError, err.Error())
}

func (h *TaskHandler) reject(w http.ResponseWriter, r *http.Request, endpoint string, status int, detail string) {
	h.Metrics.Log(analytics.FromRequest(r), endpoint, analytics.OutcomeBadRequest)
	writeError(w, status, detail)
}

// POST /analyze-mixed
func AnalyzeMixedHandler(h *TaskHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body TaskRequest
		if status, detail, ok := decodeBody(r, &body); !ok {
			h.reject(w, r, PathAnalyzeMixed, status, detail)
			return
		}

		if strings.TrimSpace(body.Text) == "" && strings.TrimSpace(body.ImageBase64) == "" {
			h.reject(w, r, PathAnalyzeMixed, http.StatusBadRequest, ErrNothingToAnalyze.Error())
			return
		}

		resp, err := h.Extract(r.Context(), body)
		if errors.Is(err, ErrNothingToAnalyze) {
			h.reject(w, r, PathAnalyzeMixed, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			h.fail(w, r, PathAnalyzeMixed, ExtractPolicy, err, func(string) any {
				return TaskResponse{ExtractedTasks: []TaskItem{}}
			})
			return
		}

		h.Metrics.Log(analytics.FromRequest(r), PathAnalyzeMixed, analytics.OutcomeOK)
		writeJSON(w, http.StatusOK, resp)
	}
}

// POST /coach-me
func CoachMeHandler(h *TaskHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body CoachRequest
		if status, detail, ok := decodeBody(r, &body); !ok {
			h.reject(w, r, PathCoachMe, status, detail)
			return
		}

		for _, task := range body.Tasks {
			if !ai.IsJSONObject(task) {
				h.reject(w, r, PathCoachMe, http.StatusBadRequest, "tasks must be a list of objects")
				return
			}
		}

		advice, err := h.Coach(r.Context(), body)
		if err != nil {
			h.fail(w, r, PathCoachMe, CoachPolicy, err, func(msg string) any {
				return CoachResponse{Advice: FallbackAdvice, Error: msg}
			})
			return
		}

		h.Metrics.Log(analytics.FromRequest(r), PathCoachMe, analytics.OutcomeOK)
		writeJSON(w, http.StatusOK, CoachResponse{Advice: advice})
	}
}

// POST /decompose-task
func DecomposeTaskHandler(h *TaskHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body SplitRequest
		if status, detail, ok := decodeBody(r, &body); !ok {
			h.reject(w, r, PathDecomposeTask, status, detail)
			return
		}

		if strings.TrimSpace(body.MainTask) == "" {
			h.reject(w, r, PathDecomposeTask, http.StatusBadRequest, "main_task is required")
			return
		}

		resp, err := h.Decompose(r.Context(), body)
		if err != nil {
			h.fail(w, r, PathDecomposeTask, DecomposePolicy, err, func(msg string) any {
				return TaskResponse{ExtractedTasks: []TaskItem{}, Error: msg}
			})
			return
		}

		h.Metrics.Log(analytics.FromRequest(r), PathDecomposeTask, analytics.OutcomeOK)
		writeJSON(w, http.StatusOK, resp)
	}
}

// GET /
func StatusHandler(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, StatusResponse{Status: StatusText, Version: version})
	}
}
