// Package tools defines the Tool interface for the agent and the fixed registry
// the agent dispatches actions through. Tools let the agent reach external
// systems, and report failures as text observations instead of errors.
package tools
