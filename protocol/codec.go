package protocol

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/bububa/ljson"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/pkg/llmutils"
	"github.com/effective-security/toolagent/pkg/schema"
	"github.com/go-playground/validator/v10"
	"github.com/tidwall/sjson"
)

var (
	// ErrMalformedResponse is returned when the model reply is not a valid
	// protocol object: not JSON, missing type, or missing variant fields.
	ErrMalformedResponse = errors.New("malformed model response")
	// ErrUnknownResponseType is returned when the type is not recognized.
	ErrUnknownResponseType = errors.New("unknown response type")
)

// DecodeError carries the raw model text that failed to decode.
type DecodeError struct {
	Raw string
	err error
}

func (e *DecodeError) Error() string {
	return e.err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.err
}

// RawText returns the raw model text attached to a decode error.
func RawText(err error) string {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Raw
	}
	return ""
}

func decodeError(raw string, err error) error {
	return &DecodeError{Raw: raw, err: err}
}

// wireResponse keeps the variant fields as values,
// so a present empty string is told apart from an absent field.
type wireResponse struct {
	Type        string `json:"type"`
	Plan        any    `json:"plan"`
	Function    string `json:"function"`
	Input       any    `json:"input"`
	Observation any    `json:"observation"`
	Output      any    `json:"output"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// Decode parses one model reply into a Response.
// Code fences and surrounding prose are ignored.
func Decode(raw string) (*Response, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, decodeError(raw, errors.WithMessage(ErrMalformedResponse, "empty response"))
	}

	cleaned := llmutils.CleanJSON([]byte(raw))
	if !json.Valid(cleaned) {
		return nil, decodeError(raw, errors.WithMessage(ErrMalformedResponse, "invalid JSON"))
	}

	var w wireResponse
	if err := ljson.Unmarshal(cleaned, &w); err != nil {
		return nil, decodeError(raw, errors.WithMessagef(ErrMalformedResponse, "invalid JSON: %s", err.Error()))
	}

	typ := Type(strings.TrimSpace(w.Type))
	if typ == "" {
		return nil, decodeError(raw, errors.WithMessage(ErrMalformedResponse, "missing type"))
	}
	if !typ.Valid() {
		return nil, decodeError(raw, errors.WithMessagef(ErrUnknownResponseType, "%q", string(typ)))
	}

	resp := &Response{Type: typ}
	var ok bool
	switch typ {
	case TypePlan:
		if resp.Plan, ok = inputText(w.Plan); !ok {
			return nil, decodeError(raw, errors.WithMessage(ErrMalformedResponse, "plan requires plan"))
		}
	case TypeAction:
		if resp.Input, ok = inputText(w.Input); !ok {
			return nil, decodeError(raw, errors.WithMessage(ErrMalformedResponse, "action requires input"))
		}
		resp.Function = strings.TrimSpace(w.Function)
	case TypeObservation:
		if resp.Observation, ok = inputText(w.Observation); !ok {
			return nil, decodeError(raw, errors.WithMessage(ErrMalformedResponse, "observation requires observation"))
		}
	case TypeOutput:
		if resp.Output, ok = inputText(w.Output); !ok {
			return nil, decodeError(raw, errors.WithMessage(ErrMalformedResponse, "output requires output"))
		}
	}

	if err := Validate(resp); err != nil {
		return nil, decodeError(raw, err)
	}
	return resp, nil
}

// inputText returns the string value of a variant field,
// or the compact JSON text if the model sent a non-string value.
// An absent or null field is not ok.
func inputText(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	default:
		js, err := json.Marshal(val)
		if err != nil {
			return "", false
		}
		return string(js), true
	}
}

// Validate checks the type and the fields that can not be empty.
// Text fields may be empty, their presence is checked by Decode.
func Validate(r *Response) error {
	if r == nil {
		return errors.WithMessage(ErrMalformedResponse, "nil response")
	}
	if !r.Type.Valid() {
		return errors.WithMessagef(ErrUnknownResponseType, "%q", string(r.Type))
	}
	if err := getValidator().Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return errors.WithMessagef(ErrMalformedResponse, "%s requires %s", r.Type, strings.ToLower(verrs[0].Field()))
		}
		return errors.WithMessage(ErrMalformedResponse, err.Error())
	}
	return nil
}

// Encode returns the canonical JSON of the response,
// with type first and only the fields of its variant.
func Encode(r *Response) (string, error) {
	if err := Validate(r); err != nil {
		return "", err
	}

	js := `{"type":` + quote(string(r.Type)) + `}`
	var err error
	switch r.Type {
	case TypePlan:
		js, err = sjson.Set(js, "plan", r.Plan)
	case TypeAction:
		js, err = sjson.Set(js, "function", r.Function)
		if err == nil {
			js, err = sjson.Set(js, "input", r.Input)
		}
	case TypeObservation:
		js, err = sjson.Set(js, "observation", r.Observation)
	case TypeOutput:
		js, err = sjson.Set(js, "output", r.Output)
	}
	if err != nil {
		return "", errors.Wrap(err, "failed to encode response")
	}
	return js, nil
}

// EncodeObservation returns the message fed back to the model after a tool call:
// {"type":"observation","observation":"<observation>"}
func EncodeObservation(observation string) string {
	js, err := sjson.Set(`{"type":"observation"}`, "observation", observation)
	if err != nil {
		// sjson only fails on invalid paths
		return `{"type":"observation","observation":` + quote(observation) + `}`
	}
	return js
}

func quote(s string) string {
	js, _ := json.Marshal(s)
	return string(js)
}

// Schema returns the JSON schema of the response object.
func Schema() (*schema.Schema, error) {
	return schema.For[Response]()
}
