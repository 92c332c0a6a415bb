package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/effective-security/toolagent/pkg/llmfactory"
	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/effective-security/xlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedLLM struct {
	provider string
	model    string
	replies  []string
	calls    int
}

func (f *scriptedLLM) GetName() string { return f.model }

func (f *scriptedLLM) GetProviderType() llms.ProviderType { return llms.ProviderType(f.provider) }

func (f *scriptedLLM) GenerateContent(context.Context, []llms.Message, ...llms.CallOption) (*llms.ContentResponse, error) {
	reply := f.replies[f.calls%len(f.replies)]
	f.calls++
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: reply}},
	}, nil
}

func useScriptedLLM(t *testing.T, replies ...string) *scriptedLLM {
	m := &scriptedLLM{replies: replies}
	llmfactory.NewLLM = func(cfg *llmfactory.ProviderConfig, preferredModels ...string) (llms.Model, error) {
		m.provider = cfg.Name
		m.model = cfg.FindModel(preferredModels...)
		return m, nil
	}
	t.Cleanup(func() {
		llmfactory.NewLLM = llmfactory.CreateLLM
	})
	return m
}

func setEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-secret")
	t.Setenv("WEATHER_API_KEY", "weather-secret")
	t.Setenv("PORT", "")
	t.Cleanup(func() {
		xlog.SetGlobalLogLevel(xlog.ERROR)
	})
}

func TestRun_Chat(t *testing.T) {
	setEnv(t)
	m := useScriptedLLM(t,
		`{"type":"plan","plan":"Just answer."}`,
		`{"type":"output","output":"Hello there!"}`,
	)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"chat"}, strings.NewReader("hi\nexit\n"), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	out := stdout.String()
	assert.Contains(t, out, "AI PLAN: Just answer.\n")
	assert.Contains(t, out, "Assistant: Hello there!\n")
	assert.Equal(t, 2, m.calls)
	assert.Equal(t, "OPENAI", m.provider)
	assert.Equal(t, "gpt-4o-mini", m.model)
}

func TestRun_ChatModelOverride(t *testing.T) {
	setEnv(t)
	m := useScriptedLLM(t, `{"type":"output","output":"ok"}`)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-provider", "openai", "-model", "gpt-4o"}, strings.NewReader("hi\n"), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "Assistant: ok\n")
	assert.Equal(t, 1, m.calls)
	assert.Equal(t, "gpt-4o", m.model)
}

func TestRun_PrintConfig(t *testing.T) {
	setEnv(t)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-print-config"}, strings.NewReader(""), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	out := stdout.String()
	assert.Contains(t, out, "***")
	assert.Contains(t, out, "port: 3000")
	assert.NotContains(t, out, "sk-secret")
	assert.NotContains(t, out, "weather-secret")
}

func TestRun_Tools(t *testing.T) {
	setEnv(t)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"tools"}, strings.NewReader(""), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), `"Name": "getWeather"`)
	assert.Contains(t, stdout.String(), `"Description": "returns weather info."`)
}

func TestRun_Errors(t *testing.T) {
	setEnv(t)
	useScriptedLLM(t, `{"type":"output","output":"ok"}`)

	tcs := []struct {
		name string
		args []string
		code int
		exp  string
	}{
		{name: "unknown command", args: []string{"dance"}, code: 2, exp: "unknown command: dance"},
		{name: "extra args", args: []string{"chat", "now"}, code: 2, exp: "unexpected arguments: now"},
		{name: "bad flag", args: []string{"-nope"}, code: 2, exp: "flag provided but not defined"},
		{name: "log level", args: []string{"-log-level", "loud"}, code: 2, exp: "invalid log level: loud"},
		{name: "config file", args: []string{"-config", "testdata/missing.yaml"}, code: 1, exp: "missing.yaml"},
		{name: "provider", args: []string{"-provider", "anthropic"}, code: 1, exp: "provider not configured: anthropic"},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(context.Background(), tc.args, strings.NewReader(""), &stdout, &stderr)
			assert.Equal(t, tc.code, code)
			assert.Contains(t, stderr.String(), tc.exp)
		})
	}
}

func TestRun_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-h"}, strings.NewReader(""), &stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.Contains(t, stderr.String(), "usage: toolagent")
	assert.Contains(t, stderr.String(), "serve")
}

func TestParseLogLevel(t *testing.T) {
	tcs := []struct {
		name    string
		command string
		exp     xlog.LogLevel
	}{
		{"", "chat", xlog.ERROR},
		{"", "serve", xlog.INFO},
		{"debug", "chat", xlog.DEBUG},
		{"TRACE", "serve", xlog.TRACE},
		{"warn", "chat", xlog.WARNING},
		{"Notice", "chat", xlog.NOTICE},
		{"critical", "chat", xlog.CRITICAL},
	}
	for _, tc := range tcs {
		l, err := parseLogLevel(tc.name, tc.command)
		require.NoError(t, err)
		assert.Equal(t, tc.exp, l, "%q/%s", tc.name, tc.command)
	}

	_, err := parseLogLevel("verbose", "chat")
	assert.EqualError(t, err, "invalid log level: verbose")
}
