// Package logger provides structured logging on top of zerolog.
//
// Configuration:
//
//	logging:
//	  level: "info"
//	  format: "json"    # json | console
//	  output: "stderr"
//
// Usage:
//
//	log := logger.Get("ollama")
//	log.Info("completion done", logger.Fields("model", "llama2:13b"))
package logger
