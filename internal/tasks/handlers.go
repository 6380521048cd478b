package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"viraflow-api/internal/ai"
	"viraflow-api/internal/analytics"
	"viraflow-api/internal/logging"
	"viraflow-api/internal/privacy"
)

var ErrNothingToAnalyze = errors.New("text or image_base64 is required")

// TaskHandler owns the shared, read-only dependencies of every endpoint.
type TaskHandler struct {
	AI      ai.Completer
	Prompts *ai.Registry
	Masker  privacy.Masker
	Metrics *analytics.Metrics
	Log     *slog.Logger
}

func New(completer ai.Completer, prompts *ai.Registry, masker privacy.Masker, metrics *analytics.Metrics, log *slog.Logger) *TaskHandler {
	if log == nil {
		log = logging.Nop()
	}
	return &TaskHandler{
		AI:      completer,
		Prompts: prompts,
		Masker:  masker,
		Metrics: metrics,
		Log:     log,
	}
}

// Extract masks the text, attaches the image when it decodes and asks the
// model for a task list. A broken image is dropped, not fatal.
func (h *TaskHandler) Extract(ctx context.Context, req TaskRequest) (TaskResponse, error) {
	text := h.Masker.Apply(req.Text)

	var img *ai.Image
	if strings.TrimSpace(req.ImageBase64) != "" {
		decoded, err := ai.DecodeImage(req.ImageBase64)
		if err != nil {
			h.Log.WarnContext(ctx, "image decode failed, continuing text-only", "err", err)
			h.Metrics.ImageDropped()
		} else {
			img = decoded
		}
	}

	if strings.TrimSpace(text) == "" && img == nil {
		return TaskResponse{}, ErrNothingToAnalyze
	}

	areq, err := h.Prompts.ExtractionRequest(text, img)
	if err != nil {
		return TaskResponse{}, err
	}

	return h.completeTasks(ctx, areq)
}

// Coach returns the model's advice paragraph, trimmed.
func (h *TaskHandler) Coach(ctx context.Context, req CoachRequest) (string, error) {
	areq, err := h.Prompts.CoachingRequest(req.Tasks)
	if err != nil {
		return "", err
	}

	raw, err := h.AI.Complete(ctx, areq)
	if err != nil {
		return "", err
	}

	advice := strings.TrimSpace(raw)
	if advice == "" {
		return "", ai.ErrEmptyReply
	}
	return advice, nil
}

// Decompose asks for 3-5 sub-tasks of one task.
func (h *TaskHandler) Decompose(ctx context.Context, req SplitRequest) (TaskResponse, error) {
	areq, err := h.Prompts.DecompositionRequest(req.MainTask, req.Category)
	if err != nil {
		return TaskResponse{}, err
	}

	return h.completeTasks(ctx, areq)
}

func (h *TaskHandler) completeTasks(ctx context.Context, areq ai.Request) (TaskResponse, error) {
	raw, err := h.AI.Complete(ctx, areq)
	if err != nil {
		return TaskResponse{}, err
	}

	var parsed TaskResponse
	if err := ai.DecodeReply(raw, &parsed); err != nil {
		return TaskResponse{}, fmt.Errorf("%s reply: %w", areq.Purpose, err)
	}

	// the model does not get to set our error field
	parsed.Error = ""
	if parsed.ExtractedTasks == nil {
		parsed.ExtractedTasks = []TaskItem{}
	}
	return parsed, nil
}
