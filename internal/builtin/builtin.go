// Package builtin provides the compiled-in component renderers, registered
// like any other extension unit so a bare host can render meaningful pages.
package builtin

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/zot/modhost/api"
)

// Registration returns the builtin extension points.
func Registration() api.Registration {
	return api.Registration{
		Renderers: []api.ComponentRenderer{
			&headingRenderer{},
			&htmlRenderer{},
			&inputRenderer{},
			&selectRenderer{},
		},
	}
}

// headingRenderer renders an h1-h6 element.
type headingRenderer struct{}

type headingConfig struct {
	Text  string `json:"text"`
	Level int    `json:"level"`
}

func (r *headingRenderer) Type() string        { return "heading" }
func (r *headingRenderer) DisplayName() string { return "Heading" }

func (r *headingRenderer) DefaultConfig() json.RawMessage {
	return json.RawMessage(`{"text":"Heading","level":2}`)
}

func (r *headingRenderer) RenderHTML(config json.RawMessage) (string, error) {
	var cfg headingConfig
	if err := unmarshalConfig(config, &cfg); err != nil {
		return "", err
	}
	if cfg.Level < 1 || cfg.Level > 6 {
		cfg.Level = 2
	}
	return fmt.Sprintf("<h%d class=\"mh-heading\">%s</h%d>",
		cfg.Level, html.EscapeString(cfg.Text), cfg.Level), nil
}

// htmlRenderer passes authored markup through unchanged. Pages are authored
// by trusted admins; this is the escape hatch for arbitrary content.
type htmlRenderer struct{}

type htmlConfig struct {
	Content string `json:"content"`
}

func (r *htmlRenderer) Type() string        { return "html" }
func (r *htmlRenderer) DisplayName() string { return "HTML" }

func (r *htmlRenderer) DefaultConfig() json.RawMessage {
	return json.RawMessage(`{"content":""}`)
}

func (r *htmlRenderer) RenderHTML(config json.RawMessage) (string, error) {
	var cfg htmlConfig
	if err := unmarshalConfig(config, &cfg); err != nil {
		return "", err
	}
	return cfg.Content, nil
}

// inputRenderer renders a labeled text input.
type inputRenderer struct{}

type inputConfig struct {
	Label       string `json:"label"`
	Name        string `json:"name"`
	Placeholder string `json:"placeholder"`
	InputType   string `json:"input_type"`
}

func (r *inputRenderer) Type() string        { return "input" }
func (r *inputRenderer) DisplayName() string { return "Input" }

func (r *inputRenderer) DefaultConfig() json.RawMessage {
	return json.RawMessage(`{"label":"","name":"field","placeholder":"","input_type":"text"}`)
}

func (r *inputRenderer) RenderHTML(config json.RawMessage) (string, error) {
	var cfg inputConfig
	if err := unmarshalConfig(config, &cfg); err != nil {
		return "", err
	}
	if cfg.InputType == "" {
		cfg.InputType = "text"
	}

	var b strings.Builder
	b.WriteString("<div class=\"mh-input\">")
	if cfg.Label != "" {
		fmt.Fprintf(&b, "<label for=%q>%s</label>", cfg.Name, html.EscapeString(cfg.Label))
	}
	fmt.Fprintf(&b, "<input type=%q id=%q name=%q placeholder=%q/>",
		cfg.InputType, cfg.Name, cfg.Name, cfg.Placeholder)
	b.WriteString("</div>")
	return b.String(), nil
}

// selectRenderer renders a labeled select element.
type selectRenderer struct{}

type selectConfig struct {
	Label   string   `json:"label"`
	Name    string   `json:"name"`
	Options []string `json:"options"`
}

func (r *selectRenderer) Type() string        { return "select" }
func (r *selectRenderer) DisplayName() string { return "Select" }

func (r *selectRenderer) DefaultConfig() json.RawMessage {
	return json.RawMessage(`{"label":"","name":"choice","options":[]}`)
}

func (r *selectRenderer) RenderHTML(config json.RawMessage) (string, error) {
	var cfg selectConfig
	if err := unmarshalConfig(config, &cfg); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("<div class=\"mh-select\">")
	if cfg.Label != "" {
		fmt.Fprintf(&b, "<label for=%q>%s</label>", cfg.Name, html.EscapeString(cfg.Label))
	}
	fmt.Fprintf(&b, "<select id=%q name=%q>", cfg.Name, cfg.Name)
	for _, option := range cfg.Options {
		fmt.Fprintf(&b, "<option>%s</option>", html.EscapeString(option))
	}
	b.WriteString("</select></div>")
	return b.String(), nil
}

// unmarshalConfig decodes a component configuration, treating an empty blob
// as an empty object.
func unmarshalConfig(config json.RawMessage, target any) error {
	if len(config) == 0 {
		return nil
	}
	if err := json.Unmarshal(config, target); err != nil {
		return fmt.Errorf("bad component config: %w", err)
	}
	return nil
}
