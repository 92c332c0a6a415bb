package bedrock_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/effective-security/toolagent/pkg/llms/bedrock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/model/"), r.URL.Path)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/invoke"), r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"type":"message","role":"assistant","content":[{"type":"text","text":"hello"}],"stop_reason":"end_turn","usage":{"input_tokens":2,"output_tokens":1}}`))
	}))
	defer srv.Close()

	llm, err := bedrock.New(context.Background(),
		bedrock.WithRegion("us-east-1"),
		bedrock.WithStaticCredentials("AKIDEXAMPLE", "secret"),
		bedrock.WithBaseEndpoint(srv.URL),
	)
	require.NoError(t, err)
	assert.Equal(t, bedrock.ModelAnthropicClaude35Haiku, llm.GetName())
	assert.Equal(t, llms.ProviderBedrock, llm.GetProviderType())

	resp, err := llm.GenerateContent(context.Background(), []llms.Message{
		llms.NewMessage(llms.RoleUser, "hi"),
	})
	require.NoError(t, err)
	content, err := resp.FirstContent()
	require.NoError(t, err)
	assert.Equal(t, "hello", content)
	assert.Equal(t, int64(3), resp.Usage.TotalTokens)
}

func TestGenerateContent_Live(t *testing.T) {
	t.Skip("skipping real test")

	llm, err := bedrock.New(context.Background(), bedrock.WithRegion("us-east-1"))
	require.NoError(t, err)
	_, err = llm.GenerateContent(context.Background(), []llms.Message{
		llms.NewMessage(llms.RoleUser, "Say hello"),
	})
	require.NoError(t, err)
}
