package tools_test

import (
	"context"
	"sync"
	"testing"

	"github.com/effective-security/toolagent/mocks/mocktools"
	"github.com/effective-security/toolagent/pkg/schema"
	"github.com/effective-security/toolagent/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTool(ctrl *gomock.Controller, name string) *mocktools.MockITool {
	tool := mocktools.NewMockITool(ctrl)
	tool.EXPECT().Name().Return(name).AnyTimes()
	tool.EXPECT().Description().Return(name + " description").AnyTimes()
	tool.EXPECT().Parameters().Return(schema.MustFromAny(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"city": map[string]any{"type": "string"},
		},
	})).AnyTimes()
	return tool
}

func TestRegistry(t *testing.T) {
	ctrl := gomock.NewController(t)

	weather := newTool(ctrl, "getWeather")
	clock := newTool(ctrl, "getTime")

	r, err := tools.NewRegistry(weather, clock)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []string{"getWeather", "getTime"}, r.Names())

	got, ok := r.Lookup("getWeather")
	require.True(t, ok)
	assert.Same(t, weather, got)

	for _, name := range []string{"getweather", "GetWeather", " getWeather", "", "getForecast"} {
		_, ok := r.Lookup(name)
		assert.False(t, ok, name)
	}

	list := r.Tools()
	list[0] = clock
	got, _ = r.Lookup("getWeather")
	assert.Same(t, weather, got, "registry must not be modified through Tools()")
	assert.Equal(t, "getWeather", r.Tools()[0].Name())
}

func TestRegistry_Errors(t *testing.T) {
	ctrl := gomock.NewController(t)

	_, err := tools.NewRegistry(newTool(ctrl, "a"), newTool(ctrl, "a"))
	assert.EqualError(t, err, "duplicate tool: a")

	_, err = tools.NewRegistry(newTool(ctrl, ""))
	assert.EqualError(t, err, "tool name is empty")

	_, err = tools.NewRegistry(nil)
	assert.EqualError(t, err, "nil tool")

	r, err := tools.NewRegistry()
	require.NoError(t, err)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_ConcurrentLookup(t *testing.T) {
	ctrl := gomock.NewController(t)
	weather := newTool(ctrl, "getWeather")
	weather.EXPECT().Call(gomock.Any(), "Delhi").Return("25°C, clear sky", nil).Times(50)

	r, err := tools.NewRegistry(weather)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tool, ok := r.Lookup("getWeather")
			if assert.True(t, ok) {
				res, err := tool.Call(context.Background(), "Delhi")
				assert.NoError(t, err)
				assert.Equal(t, "25°C, clear sky", res)
			}
		}()
	}
	wg.Wait()
}

func TestGetDescriptions(t *testing.T) {
	ctrl := gomock.NewController(t)

	desc := tools.GetDescriptions(newTool(ctrl, "getWeather"))
	assert.Equal(t, `{
	"Tools": [
		{
			"Name": "getWeather",
			"Description": "getWeather description",
			"Parameters": {
				"properties": {
					"city": {
						"type": "string"
					}
				},
				"type": "object"
			}
		}
	]
}`, desc)
}
