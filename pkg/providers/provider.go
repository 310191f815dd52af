// Package providers holds the response backends and the chain that
// routes a message through them: a hosted model, a local model, and a
// deterministic rule responder that can never fail.
package providers

import "context"

// Request carries everything a backend may use to answer one message.
type Request struct {
	Message     string
	Intent      string
	History     []string
	Preferences string
}

// Reply is a generated answer. Provider names the backend that produced
// it so the caller can surface or log the source.
type Reply struct {
	Content  string
	Provider string
	Model    string
	Cached   bool
}

// Responder is one response backend. Generate returns an error when the
// backend cannot answer; Available is a cheap liveness check the chain
// uses before spending attempts on a backend.
type Responder interface {
	Name() string
	Generate(ctx context.Context, req *Request) (*Reply, error)
	Available(ctx context.Context) bool
}
