package runner

import (
	"bufio"
	"bytes"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"sync"
	"text/template"

	"github.com/google/uuid"
)

// TemplateEngine expands per-session target URLs.
type TemplateEngine struct {
	fileCache map[string][]string
	mu        sync.RWMutex
	funcMap   template.FuncMap
}

// TemplateData is passed to the execution context
type TemplateData struct {
	SessionID int
	UUID      string
}

func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{
		fileCache: make(map[string][]string),
	}

	e.funcMap = template.FuncMap{
		"randomInt":    e.randomInt,
		"randomUUID":   e.randomUUID,
		"randomChoice": e.randomChoice,
		"randomLine":   e.randomLine,
	}

	return e
}

// Preprocess converts simple variables {{sessionID}} to Go template syntax {{.SessionID}}
func (e *TemplateEngine) Preprocess(input string) string {
	s := input
	s = strings.ReplaceAll(s, "{{sessionID}}", "{{.SessionID}}")
	s = strings.ReplaceAll(s, "{{requestID}}", "{{.SessionID}}")
	s = strings.ReplaceAll(s, "{{uuid}}", "{{.UUID}}")
	return s
}

func (e *TemplateEngine) Parse(name, text string) (*template.Template, error) {
	return template.New(name).Funcs(e.funcMap).Parse(e.Preprocess(text))
}

func (e *TemplateEngine) Execute(t *template.Template, data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// URLTemplate renders the target URL for each session. Plain URLs are
// returned verbatim without touching the template engine.
type URLTemplate struct {
	raw    string
	engine *TemplateEngine
	tmpl   *template.Template
}

func NewURLTemplate(raw string) (*URLTemplate, error) {
	u := &URLTemplate{raw: raw}
	if !strings.Contains(raw, "{{") {
		return u, nil
	}
	u.engine = NewTemplateEngine()
	t, err := u.engine.Parse("url", raw)
	if err != nil {
		return nil, fmt.Errorf("%w: url template: %v", ErrInvalidConfig, err)
	}
	u.tmpl = t
	return u, nil
}

func (u *URLTemplate) Render(sessionID int) (string, error) {
	if u.tmpl == nil {
		return u.raw, nil
	}
	return u.engine.Execute(u.tmpl, TemplateData{
		SessionID: sessionID,
		UUID:      uuid.NewString(),
	})
}

// --- Functions ---

func (e *TemplateEngine) randomInt(min, max int) int {
	if max <= min {
		return min
	}
	return rand.IntN(max-min) + min
}

func (e *TemplateEngine) randomUUID() string {
	return uuid.NewString()
}

func (e *TemplateEngine) randomChoice(choices ...string) string {
	if len(choices) == 0 {
		return ""
	}
	return choices[rand.IntN(len(choices))]
}

func (e *TemplateEngine) randomLine(filename string) (string, error) {
	e.mu.RLock()
	lines, ok := e.fileCache[filename]
	e.mu.RUnlock()

	if !ok {
		var err error
		if lines, err = e.loadLines(filename); err != nil {
			return "", err
		}
	}
	if len(lines) == 0 {
		return "", nil
	}
	return lines[rand.IntN(len(lines))], nil
}

func (e *TemplateEngine) loadLines(filename string) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Double check
	if lines, ok := e.fileCache[filename]; ok {
		return lines, nil
	}

	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file '%s': %w", filename, err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(content))
	var loaded []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			loaded = append(loaded, line)
		}
	}

	e.fileCache[filename] = loaded
	return loaded, nil
}
