// Package resilience provides retry with backoff, a circuit breaker, a token
// bucket rate limiter and a bulkhead.
//
// The LLM orchestrator composes retry and circuit breaking around each
// backend; the dataset ingester throttles portal requests with the rate
// limiter; the HTTP API caps in-flight completions with the bulkhead.
package resilience
