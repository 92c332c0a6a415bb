package prompts

import (
	_ "embed"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"
	"github.com/nikolalohinski/gonja"
)

// Format is the template syntax
type Format string

const (
	// FormatGoTemplate is text/template with sprig functions
	FormatGoTemplate Format = "go-template"
	// FormatJinja2 is Jinja2 syntax
	FormatJinja2 Format = "jinja2"
)

//go:embed system_prompt.tmpl
var defaultSystemPrompt string

// DefaultSystemPrompt returns the built-in system prompt template
func DefaultSystemPrompt() *Template {
	return &Template{
		Text:   defaultSystemPrompt,
		Format: FormatGoTemplate,
	}
}

// Tool describes a tool in the prompt
type Tool struct {
	Name        string
	Description string
	// Signature is the call form, e.g. getWeather(city: string)
	Signature string
}

// SystemPromptData is the input of the system prompt template
type SystemPromptData struct {
	Tools []Tool
	// Schema is the optional JSON schema of the response object
	Schema string
}

// NewTool returns the prompt description of a tool,
// with the signature built from its parameters schema.
func NewTool(name, description string, params *jsonschema.Schema) Tool {
	return Tool{
		Name:        name,
		Description: description,
		Signature:   Signature(name, params),
	}
}

// Signature returns name(param: type, ...) for the parameters schema
func Signature(name string, params *jsonschema.Schema) string {
	var args []string
	if params != nil && params.Properties != nil {
		for pair := params.Properties.Oldest(); pair != nil; pair = pair.Next() {
			typ := "any"
			if pair.Value != nil && pair.Value.Type != "" {
				typ = pair.Value.Type
			}
			args = append(args, pair.Key+": "+typ)
		}
	}
	return name + "(" + strings.Join(args, ", ") + ")"
}

// Template is a prompt template
type Template struct {
	Text   string
	Format Format
}

// FormatForFile returns the template format by the file extension
func FormatForFile(file string) Format {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".j2", ".jinja", ".jinja2":
		return FormatJinja2
	}
	return FormatGoTemplate
}

// Load returns the template from file
func Load(file string) (*Template, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &Template{
		Text:   string(b),
		Format: FormatForFile(file),
	}, nil
}

// Render executes the template
func (t *Template) Render(data *SystemPromptData) (string, error) {
	var (
		res string
		err error
	)
	switch t.Format {
	case FormatJinja2:
		res, err = renderJinja(t.Text, data)
	case FormatGoTemplate, "":
		res, err = renderGoTemplate(t.Text, data)
	default:
		return "", errors.Newf("unsupported template format: %s", t.Format)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res) + "\n", nil
}

func renderGoTemplate(text string, data *SystemPromptData) (string, error) {
	tmpl, err := template.New("prompt").
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(text)
	if err != nil {
		return "", errors.Wrap(err, "failed to parse template")
	}
	var b strings.Builder
	if err = tmpl.Execute(&b, data); err != nil {
		return "", errors.Wrap(err, "failed to render template")
	}
	return b.String(), nil
}

func renderJinja(text string, data *SystemPromptData) (string, error) {
	tpl, err := gonja.FromString(text)
	if err != nil {
		return "", errors.Wrap(err, "failed to parse template")
	}

	tools := make([]map[string]any, len(data.Tools))
	for i, t := range data.Tools {
		tools[i] = map[string]any{
			"name":        t.Name,
			"description": t.Description,
			"signature":   t.Signature,
		}
	}
	res, err := tpl.Execute(map[string]any{
		"tools":  tools,
		"schema": data.Schema,
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to render template")
	}
	return res, nil
}
