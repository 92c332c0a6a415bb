// Package protocol implements the wire format of the agent reasoning protocol.
//
// The model must reply with exactly one JSON object per call:
//
//	{"type": "plan", "plan": "..."}
//	{"type": "action", "function": "getWeather", "input": "Delhi"}
//	{"type": "observation", "observation": "..."}
//	{"type": "output", "output": "..."}
//
// Tool results are fed back to the model as an observation object
// produced by EncodeObservation.
package protocol
