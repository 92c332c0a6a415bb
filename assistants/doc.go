// Package assistants implements the tool-use agent loop:
// the model answers with plan, action, observation or output steps,
// actions are dispatched to the registered tools and their results
// are fed back until the model produces the output.
package assistants
