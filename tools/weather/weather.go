// Package weather provides the getWeather tool backed by the OpenWeatherMap
// current weather API.
package weather

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/bububa/ljson"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/pkg/llmutils"
	"github.com/effective-security/toolagent/pkg/schema"
	"github.com/effective-security/toolagent/tools"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/invopop/jsonschema"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolagent", "weather")

const (
	// ToolName is the name the model uses in an action
	ToolName = "getWeather"
	// NotAvailable is returned for any failure of the lookup
	NotAvailable = "Weather data not available for this city."

	// DefaultBaseURL is the OpenWeatherMap API endpoint
	DefaultBaseURL = "https://api.openweathermap.org"
	// DefaultUnits is the unit system for temperature
	DefaultUnits = "metric"

	// EnvAPIKey is the environment variable with the API key
	EnvAPIKey = "WEATHER_API_KEY"

	maxBodySize = 1 << 20
)

var unitSuffix = map[string]string{
	"metric":   "°C",
	"imperial": "°F",
	"standard": "K",
}

// Request represents the tool input.
type Request struct {
	City string `json:"city" yaml:"city" jsonschema:"title=City,description=Name of the city to get the current weather for,example=Delhi"`
}

// Result is the current weather in a city
type Result struct {
	City        string  `json:"city" yaml:"city"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
	Units       string  `json:"units" yaml:"units"`
	Description string  `json:"description" yaml:"description"`
}

// String returns the observation text, like "25°C, clear sky"
func (r *Result) String() string {
	return strconv.FormatFloat(r.Temperature, 'f', -1, 64) + unitSuffix[r.Units] + ", " + r.Description
}

// currentWeather is the subset of the API response the tool reads.
// cod is a number on success and a string on most errors.
type currentWeather struct {
	Cod     any    `json:"cod"`
	Message string `json:"message"`
	Main    struct {
		Temp *float64 `json:"temp"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
}

// Option configures the Tool
type Option func(*Tool)

// WithAPIKey sets the API key
func WithAPIKey(apiKey string) Option {
	return func(t *Tool) {
		t.apiKey = apiKey
	}
}

// WithBaseURL sets the API endpoint
func WithBaseURL(baseURL string) Option {
	return func(t *Tool) {
		t.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(t *Tool) {
		t.httpClient = client
	}
}

// WithUnits sets the unit system: metric, imperial or standard
func WithUnits(units string) Option {
	return func(t *Tool) {
		t.units = units
	}
}

// Tool is the getWeather tool
type Tool struct {
	apiKey     string
	baseURL    string
	units      string
	httpClient *http.Client
	params     *jsonschema.Schema
}

// ensure Tool implements the tools.ITool interface
var _ tools.ITool = (*Tool)(nil)

// New returns the tool.
// If the API key is not provided, WEATHER_API_KEY is used.
// A missing key is not an error: lookups will report the data as not available.
func New(opts ...Option) (*Tool, error) {
	sc, err := schema.For[Request]()
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create schema")
	}

	t := &Tool{
		params: sc.Parameters,
	}
	for _, opt := range opts {
		opt(t)
	}

	t.apiKey = values.StringsCoalesce(t.apiKey, os.Getenv(EnvAPIKey))
	t.baseURL = strings.TrimSuffix(values.StringsCoalesce(t.baseURL, DefaultBaseURL), "/")
	t.units = values.StringsCoalesce(t.units, DefaultUnits)
	if _, ok := unitSuffix[t.units]; !ok {
		return nil, errors.Newf("unsupported units: %s", t.units)
	}
	if t.httpClient == nil {
		t.httpClient = http.DefaultClient
	}
	return t, nil
}

func (t *Tool) Name() string {
	return ToolName
}

func (t *Tool) Description() string {
	return "returns weather info."
}

func (t *Tool) Parameters() *jsonschema.Schema {
	return t.params
}

// Call returns the weather observation for the city in input.
// The input is the city name, or a JSON object with a city field.
// Failures are reported as NotAvailable, the returned error is always nil.
func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	return t.Get(ctx, ParseInput(input)), nil
}

// Get returns "<temp>°C, <description>" or NotAvailable
func (t *Tool) Get(ctx context.Context, city string) string {
	res, err := t.Run(ctx, &Request{City: city})
	if err != nil {
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "weather_not_available",
			"city", city,
			"err", err.Error(),
		)
		return NotAvailable
	}
	return res.String()
}

// Run performs the API call
func (t *Tool) Run(ctx context.Context, req *Request) (*Result, error) {
	city := strings.TrimSpace(req.City)
	if city == "" {
		return nil, errors.New("empty city")
	}

	u, err := url.Parse(t.baseURL + "/data/2.5/weather")
	if err != nil {
		return nil, errors.Wrap(err, "invalid base URL")
	}
	q := u.Query()
	q.Set("q", city)
	q.Set("appid", t.apiKey)
	q.Set("units", t.units)
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "failed to call weather API")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}

	var data currentWeather
	if err = json.Unmarshal(body, &data); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, errors.Newf("weather API status %d", resp.StatusCode)
		}
		return nil, errors.Wrap(err, "failed to decode response")
	}

	if resp.StatusCode != http.StatusOK || !codOK(data.Cod) {
		return nil, errors.Newf("weather API status %d, cod %v: %s", resp.StatusCode, data.Cod, data.Message)
	}
	if len(data.Weather) == 0 {
		return nil, errors.New("no weather conditions in response")
	}
	if data.Main.Temp == nil {
		return nil, errors.New("no temperature in response")
	}

	return &Result{
		City:        city,
		Temperature: *data.Main.Temp,
		Units:       t.units,
		Description: data.Weather[0].Description,
	}, nil
}

func codOK(cod any) bool {
	switch v := cod.(type) {
	case float64:
		return v == 200
	case string:
		return strings.TrimSpace(v) == "200"
	}
	return false
}

// ParseInput returns the city from the action input.
// Models sometimes send {"city":"Delhi"} instead of the plain name.
func ParseInput(input string) string {
	input = strings.TrimSpace(input)
	if strings.HasPrefix(input, "{") {
		cleaned := llmutils.CleanJSON([]byte(input))
		var req Request
		if json.Valid(cleaned) && ljson.Unmarshal(cleaned, &req) == nil {
			return strings.TrimSpace(req.City)
		}
	}
	return strings.Trim(input, `"`)
}
