// Package api exposes the completion orchestrator over HTTP.
//
//	POST /v1/completions
//	{"prompt": "...", "backend": "ollama", "temperature": 0.2, "timeout_ms": 30000}
//
// Success answers 200 {"data": {...}} with the extracted JSON object.
// Failures use the AppError body; completion failures carry their kind in
// details.kind and, for model-output failures, the raw text and span.
package api
