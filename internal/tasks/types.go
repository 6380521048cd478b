package tasks

import "encoding/json"

type TaskRequest struct {
	Text        string `json:"text"`
	ImageBase64 string `json:"image_base64,omitempty"`
}

type TaskItem struct {
	Task     string `json:"task"`
	Category string `json:"category"`
	Date     string `json:"date"`
}

type TaskResponse struct {
	ExtractedTasks []TaskItem `json:"extracted_tasks"`
	Error          string     `json:"error,omitempty"`
}

// CoachRequest.Tasks is opaque: whatever the client stores per task is
// forwarded to the model as-is. Every element must be an object.
type CoachRequest struct {
	Tasks []json.RawMessage `json:"tasks"`
}

type CoachResponse struct {
	Advice string `json:"advice"`
	Error  string `json:"error,omitempty"`
}

type SplitRequest struct {
	MainTask string `json:"main_task"`
	Category string `json:"category"`
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}

type StatusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
