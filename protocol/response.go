package protocol

// Type is the discriminator of a model response.
type Type string

const (
	// TypePlan is a reasoning step, no side effects.
	TypePlan Type = "plan"
	// TypeAction requests a tool invocation.
	TypeAction Type = "action"
	// TypeObservation carries a tool result.
	TypeObservation Type = "observation"
	// TypeOutput is the final answer of the turn.
	TypeOutput Type = "output"
)

// Types is the list of recognized response types.
var Types = []Type{TypePlan, TypeAction, TypeObservation, TypeOutput}

// Valid returns true if the type is one of the recognized types.
func (t Type) Valid() bool {
	switch t {
	case TypePlan, TypeAction, TypeObservation, TypeOutput:
		return true
	}
	return false
}

func (t Type) String() string {
	return string(t)
}

// Response is one JSON object emitted by the model.
// Only the fields of the variant selected by Type are populated.
type Response struct {
	Type        Type   `json:"type" yaml:"type" validate:"required" jsonschema:"title=Type,description=Kind of the step,enum=plan,enum=action,enum=observation,enum=output"`
	Plan        string `json:"plan,omitempty" yaml:"plan,omitempty" jsonschema:"title=Plan,description=Reasoning about what to do next"`
	Function    string `json:"function,omitempty" yaml:"function,omitempty" validate:"required_if=Type action" jsonschema:"title=Function,description=Name of the tool to call"`
	Input       string `json:"input,omitempty" yaml:"input,omitempty" jsonschema:"title=Input,description=Argument passed to the tool"`
	Observation string `json:"observation,omitempty" yaml:"observation,omitempty" jsonschema:"title=Observation,description=Result returned by the tool"`
	Output      string `json:"output,omitempty" yaml:"output,omitempty" jsonschema:"title=Output,description=Final answer for the user"`
}

// NewPlan returns a plan response.
func NewPlan(plan string) *Response {
	return &Response{Type: TypePlan, Plan: plan}
}

// NewAction returns an action response.
func NewAction(function, input string) *Response {
	return &Response{Type: TypeAction, Function: function, Input: input}
}

// NewObservation returns an observation response.
func NewObservation(observation string) *Response {
	return &Response{Type: TypeObservation, Observation: observation}
}

// NewOutput returns an output response.
func NewOutput(output string) *Response {
	return &Response{Type: TypeOutput, Output: output}
}

// Text returns the payload of the populated variant.
func (r *Response) Text() string {
	switch r.Type {
	case TypePlan:
		return r.Plan
	case TypeAction:
		return r.Function + "(" + r.Input + ")"
	case TypeObservation:
		return r.Observation
	case TypeOutput:
		return r.Output
	}
	return ""
}
