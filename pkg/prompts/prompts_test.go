package prompts_test

import (
	"strings"
	"testing"

	"github.com/effective-security/toolagent/pkg/prompts"
	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

func weatherParams() *jsonschema.Schema {
	props := orderedmap.New[string, *jsonschema.Schema]()
	props.Set("city", &jsonschema.Schema{Type: "string"})
	return &jsonschema.Schema{Type: "object", Properties: props}
}

func TestSignature(t *testing.T) {
	assert.Equal(t, "getWeather(city: string)", prompts.Signature("getWeather", weatherParams()))
	assert.Equal(t, "now()", prompts.Signature("now", nil))

	props := orderedmap.New[string, *jsonschema.Schema]()
	props.Set("a", &jsonschema.Schema{Type: "integer"})
	props.Set("b", &jsonschema.Schema{})
	assert.Equal(t, "f(a: integer, b: any)", prompts.Signature("f", &jsonschema.Schema{Properties: props}))
}

func TestDefaultSystemPrompt(t *testing.T) {
	data := &prompts.SystemPromptData{
		Tools: []prompts.Tool{
			prompts.NewTool("getWeather", "returns weather info.", weatherParams()),
		},
	}
	res, err := prompts.DefaultSystemPrompt().Render(data)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res, "You are a helpful AI assistant that can use tools to answer user questions."))
	assert.Contains(t, res, "START → PLAN → ACTION → OBSERVATION → OUTPUT")
	assert.Contains(t, res, "Available Tool:\n- getWeather(city: string): returns weather info.\n")
	assert.Contains(t, res, `"type": "plan" | "action" | "observation" | "output",`)
	assert.Contains(t, res, "Output only JSON, never plain text.")
	assert.NotContains(t, res, "conform to this schema")
	assert.True(t, strings.HasSuffix(res, "Example:\n"+
		`{"type":"plan","plan":"I will get the weather for Delhi"}`+"\n"+
		`{"type":"action","function":"getWeather","input":"Delhi"}`+"\n"+
		`{"type":"observation","observation":"25°C, Clear and Sunny"}`+"\n"+
		`{"type":"output","output":"The weather in Delhi is 25°C and clear."}`+"\n"))

	data.Tools = append(data.Tools, prompts.NewTool("now", "returns the time.", nil))
	data.Schema = `{"type":"object"}`
	res, err = prompts.DefaultSystemPrompt().Render(data)
	require.NoError(t, err)
	assert.Contains(t, res, "Available Tools:\n- getWeather(city: string): returns weather info.\n- now(): returns the time.\n")
	assert.Contains(t, res, "The JSON object must conform to this schema:\n{\"type\":\"object\"}\n")
}

func TestLoad(t *testing.T) {
	data := &prompts.SystemPromptData{
		Tools: []prompts.Tool{
			prompts.NewTool("getWeather", "returns weather info.", weatherParams()),
			prompts.NewTool("now", "returns the time.", nil),
		},
	}

	tmpl, err := prompts.Load("testdata/custom.tmpl")
	require.NoError(t, err)
	assert.Equal(t, prompts.FormatGoTemplate, tmpl.Format)
	res, err := tmpl.Render(data)
	require.NoError(t, err)
	assert.Equal(t, "Tools: GETWEATHER, NOW\n", res)

	tmpl, err = prompts.Load("testdata/custom.j2")
	require.NoError(t, err)
	assert.Equal(t, prompts.FormatJinja2, tmpl.Format)
	res, err = tmpl.Render(data)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res, "You answer questions with tools."))
	assert.Contains(t, res, "* getWeather(city: string) - returns weather info.")
	assert.Contains(t, res, "* now() - returns the time.")
	assert.True(t, strings.HasSuffix(res, "Reply with JSON only.\n"))

	_, err = prompts.Load("testdata/missing.tmpl")
	require.Error(t, err)
}

func TestRender_Errors(t *testing.T) {
	data := &prompts.SystemPromptData{}

	_, err := (&prompts.Template{Text: "{{ .Missing }}"}).Render(data)
	require.Error(t, err)

	_, err = (&prompts.Template{Text: "{{ if }"}).Render(data)
	assert.ErrorContains(t, err, "failed to parse template")

	_, err = (&prompts.Template{Text: "{% for %}", Format: prompts.FormatJinja2}).Render(data)
	require.Error(t, err)

	_, err = (&prompts.Template{Text: "x", Format: "mustache"}).Render(data)
	assert.EqualError(t, err, "unsupported template format: mustache")
}

func TestFormatForFile(t *testing.T) {
	assert.Equal(t, prompts.FormatJinja2, prompts.FormatForFile("a/prompt.J2"))
	assert.Equal(t, prompts.FormatJinja2, prompts.FormatForFile("prompt.jinja"))
	assert.Equal(t, prompts.FormatGoTemplate, prompts.FormatForFile("prompt.tmpl"))
	assert.Equal(t, prompts.FormatGoTemplate, prompts.FormatForFile("prompt"))
}
