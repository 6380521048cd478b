package ai

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/gabriel-vasile/mimetype"
)

const (
	dataURIMarker    = "base64,"
	defaultImageMIME = "image/jpeg"
)

var (
	ErrEmptyImage    = errors.New("image payload is empty")
	ErrTaskNotObject = errors.New("task must be a JSON object")
)

// Image is a decoded attachment ready to be inlined into a request.
type Image struct {
	MIMEType string
	Data     []byte
}

// DecodeImage accepts either a bare base64 string or a data URI. The media
// type comes from the data URI header when it names an image, otherwise it
// is sniffed from the bytes.
func DecodeImage(encoded string) (*Image, error) {
	s := strings.TrimSpace(encoded)
	if s == "" {
		return nil, ErrEmptyImage
	}

	declared := ""
	if i := strings.Index(s, dataURIMarker); i >= 0 {
		declared = mimeFromDataURIHeader(s[:i])
		s = s[i+len(dataURIMarker):]
	}

	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return nil, ErrEmptyImage
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		// some clients drop the padding
		var rawErr error
		data, rawErr = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
		if rawErr != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}
	}
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}

	mime := declared
	if !strings.HasPrefix(mime, "image/") {
		mime = defaultImageMIME
		if detected := mimetype.Detect(data); strings.HasPrefix(detected.String(), "image/") {
			mime = detected.String()
		}
	}

	return &Image{MIMEType: mime, Data: data}, nil
}

// "data:image/png;" -> "image/png"
func mimeFromDataURIHeader(header string) string {
	header = strings.TrimSpace(header)
	if len(header) >= 5 && strings.EqualFold(header[:5], "data:") {
		header = header[5:]
	}
	mime, _, _ := strings.Cut(header, ";")
	return strings.ToLower(strings.TrimSpace(mime))
}

// ExtractionRequest builds [instruction, text, image?]. text is expected to
// be masked already.
func (r *Registry) ExtractionRequest(text string, img *Image) (Request, error) {
	instruction, err := r.Render(PurposeExtract, nil)
	if err != nil {
		return Request{}, err
	}

	parts := []Part{{Text: instruction}}
	if strings.TrimSpace(text) != "" {
		parts = append(parts, Part{Text: text})
	}
	if img != nil {
		parts = append(parts, Part{MIMEType: img.MIMEType, Data: img.Data})
	}

	return Request{
		Purpose: PurposeExtract,
		Model:   r.Model(PurposeExtract),
		Parts:   parts,
	}, nil
}

// CoachingRequest inlines the task list as JSON. Each record is only
// compacted, so key order, numbers and non-ASCII text reach the model as
// the client sent them.
func (r *Registry) CoachingRequest(tasks []json.RawMessage) (Request, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, task := range tasks {
		if !IsJSONObject(task) {
			return Request{}, fmt.Errorf("task %d: %w", i, ErrTaskNotObject)
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := json.Compact(&buf, task); err != nil {
			return Request{}, fmt.Errorf("task %d: %w", i, err)
		}
	}
	buf.WriteByte(']')

	prompt, err := r.Render(PurposeCoach, struct{ Tasks string }{
		Tasks: buf.String(),
	})
	if err != nil {
		return Request{}, err
	}

	return Request{
		Purpose: PurposeCoach,
		Model:   r.Model(PurposeCoach),
		Parts:   []Part{{Text: prompt}},
	}, nil
}

func (r *Registry) DecompositionRequest(mainTask, category string) (Request, error) {
	prompt, err := r.Render(PurposeDecompose, struct {
		MainTask string
		Category string
	}{
		MainTask: mainTask,
		Category: category,
	})
	if err != nil {
		return Request{}, err
	}

	return Request{
		Purpose: PurposeDecompose,
		Model:   r.Model(PurposeDecompose),
		Parts:   []Part{{Text: prompt}},
	}, nil
}

// IsJSONObject reports whether raw holds a JSON object, ignoring leading
// whitespace.
func IsJSONObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '{'
}
