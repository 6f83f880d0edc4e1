// Package llm requests schema-shaped structured output from interchangeable
// language-model backends.
//
// A backend implements [Provider]: it resolves its endpoint, issues one
// POST bounded by the request timeout, and hands the generated text to
// [ExtractJSON], which recovers a single JSON object from fenced or
// prose-wrapped model output. Failures are returned as *[Failure] values
// whose [FailureKind] tells callers what went wrong:
//
//	res, err := p.GetCompletion(ctx, llm.CompletionRequest{
//	    Prompt: "Summarize the dataset as JSON with keys title and topics.",
//	    Schema: map[string]any{"title": "string", "topics": "array"},
//	})
//	switch {
//	case llm.IsTimeout(err):
//	    // try again later
//	case llm.IsNoJSONFound(err):
//	    // the model answered in prose
//	}
//
// Providers never retry. Retry, circuit breaking and fallback between
// backends live in [Orchestrator].
package llm
