// Package prompts renders the agent system prompt.
//
// Templates use Go text/template syntax with sprig functions by default.
// Files with .j2 or .jinja extension are rendered as Jinja2 templates.
package prompts
