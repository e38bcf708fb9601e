package builtin

import (
	"encoding/json"
	"strings"
	"testing"
)

func find(t *testing.T, componentType string) interface {
	RenderHTML(json.RawMessage) (string, error)
} {
	t.Helper()
	for _, r := range Registration().Renderers {
		if r.Type() == componentType {
			return r
		}
	}
	t.Fatalf("No builtin renderer for type %s", componentType)
	return nil
}

// TestHeadingEscapesAndClampsLevel verifies heading output is escaped and
// out-of-range levels fall back to h2
func TestHeadingEscapesAndClampsLevel(t *testing.T) {
	r := find(t, "heading")

	html, err := r.RenderHTML(json.RawMessage(`{"text":"<b>Hi</b>","level":3}`))
	if err != nil {
		t.Fatalf("RenderHTML failed: %v", err)
	}
	if !strings.HasPrefix(html, "<h3") || !strings.Contains(html, "&lt;b&gt;Hi&lt;/b&gt;") {
		t.Errorf("Expected escaped h3, got %q", html)
	}

	html, _ = r.RenderHTML(json.RawMessage(`{"text":"x","level":9}`))
	if !strings.HasPrefix(html, "<h2") {
		t.Errorf("Expected level clamp to h2, got %q", html)
	}
}

// TestHTMLPassthrough verifies authored markup is not escaped
func TestHTMLPassthrough(t *testing.T) {
	r := find(t, "html")
	html, err := r.RenderHTML(json.RawMessage(`{"content":"<marquee>raw</marquee>"}`))
	if err != nil {
		t.Fatalf("RenderHTML failed: %v", err)
	}
	if html != "<marquee>raw</marquee>" {
		t.Errorf("Expected passthrough, got %q", html)
	}
}

// TestInputDefaultsType verifies an omitted input type falls back to text
func TestInputDefaultsType(t *testing.T) {
	r := find(t, "input")
	html, err := r.RenderHTML(json.RawMessage(`{"label":"Name","name":"name"}`))
	if err != nil {
		t.Fatalf("RenderHTML failed: %v", err)
	}
	if !strings.Contains(html, `type="text"`) {
		t.Errorf("Expected default text type, got %q", html)
	}
	if !strings.Contains(html, "<label") {
		t.Errorf("Expected label, got %q", html)
	}
}

// TestSelectEscapesOptions verifies option text is escaped
func TestSelectEscapesOptions(t *testing.T) {
	r := find(t, "select")
	html, err := r.RenderHTML(json.RawMessage(`{"name":"c","options":["a","<x>"]}`))
	if err != nil {
		t.Fatalf("RenderHTML failed: %v", err)
	}
	if !strings.Contains(html, "<option>&lt;x&gt;</option>") {
		t.Errorf("Expected escaped option, got %q", html)
	}
}

// TestEmptyConfigTolerated verifies every builtin accepts an empty blob
func TestEmptyConfigTolerated(t *testing.T) {
	for _, r := range Registration().Renderers {
		if _, err := r.RenderHTML(nil); err != nil {
			t.Errorf("Renderer %s rejected empty config: %v", r.Type(), err)
		}
	}
}

// TestBadConfigIsError verifies malformed JSON is rejected
func TestBadConfigIsError(t *testing.T) {
	r := find(t, "heading")
	if _, err := r.RenderHTML(json.RawMessage(`{not json`)); err == nil {
		t.Fatal("Expected error for malformed config")
	}
}
