package ai

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Purpose selects an instruction template and the model it is sent to.
type Purpose string

const (
	PurposeExtract   Purpose = "extract"
	PurposeCoach     Purpose = "coach"
	PurposeDecompose Purpose = "decompose"
)

var purposes = []Purpose{PurposeExtract, PurposeCoach, PurposeDecompose}

//go:embed templates.yaml
var defaultTemplates []byte

type templateFile struct {
	Templates map[string]string `yaml:"templates"`
}

// Registry holds one parsed instruction template and one model id per
// purpose. It is built once at startup and only read afterwards.
type Registry struct {
	templates map[Purpose]*template.Template
	models    map[Purpose]string
}

// LoadRegistry parses the embedded templates, overlays the YAML file at
// overridePath (if any) and attaches the configured models.
func LoadRegistry(overridePath string, models map[Purpose]string) (*Registry, error) {
	texts, err := parseTemplateFile(defaultTemplates)
	if err != nil {
		return nil, fmt.Errorf("embedded templates: %w", err)
	}

	if overridePath != "" {
		raw, err := os.ReadFile(overridePath)
		if err != nil {
			return nil, fmt.Errorf("read prompts file: %w", err)
		}
		override, err := parseTemplateFile(raw)
		if err != nil {
			return nil, fmt.Errorf("prompts file %s: %w", overridePath, err)
		}
		for p, text := range override {
			texts[p] = text
		}
	}

	r := &Registry{
		templates: make(map[Purpose]*template.Template, len(purposes)),
		models:    make(map[Purpose]string, len(purposes)),
	}

	for _, p := range purposes {
		text, ok := texts[p]
		if !ok || text == "" {
			return nil, fmt.Errorf("template %q is missing", p)
		}
		tmpl, err := template.New(string(p)).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("parse template %q: %w", p, err)
		}
		r.templates[p] = tmpl

		model := models[p]
		if model == "" {
			return nil, fmt.Errorf("no model configured for %q", p)
		}
		r.models[p] = model
	}

	return r, nil
}

func parseTemplateFile(raw []byte) (map[Purpose]string, error) {
	var f templateFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	out := make(map[Purpose]string, len(f.Templates))
	for k, v := range f.Templates {
		out[Purpose(k)] = v
	}
	return out, nil
}

func (r *Registry) Model(p Purpose) string {
	return r.models[p]
}

// Render executes the template for p with data.
func (r *Registry) Render(p Purpose, data any) (string, error) {
	tmpl, ok := r.templates[p]
	if !ok {
		return "", fmt.Errorf("unknown purpose %q", p)
	}
	var b bytes.Buffer
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", p, err)
	}
	return b.String(), nil
}
