// Package llms provides unified support for interacting with chat models from various providers.
//
// Each subpackage includes a provider-specific implementation of the Model interface.
// The agent only needs plain text messages and a JSON response mode, so the
// message type is deliberately flat: a role and a string content.
//
// The `llms.go` file contains the types and interfaces for interacting with different LLMs.
//
// The `options.go` file provides various options and functions to configure the LLMs.
package llms
