// Copyright (C) 2026 Lectern AI (oss@lectern.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rag

// Degraded responses returned when a model call fails. The generator
// never surfaces model or tool errors to its caller as Go errors; every
// failure resolves to one of these strings (or an inline tool-result
// record, for tool failures).
const (
	// fallbackFirstRound covers a model failure before any tool result
	// exists. Nothing was gathered, so a plain retry suggestion.
	fallbackFirstRound = "I encountered a technical issue while processing your request. Please try your question again."

	// fallbackPartial covers a model failure on round two or later:
	// tool results from an earlier round are already in the transcript.
	fallbackPartial = "I found some relevant information but encountered technical issues gathering additional details. Please try rephrasing your question."

	// fallbackExhausted covers the forced no-tools synthesis call
	// failing. There is no further degradation to attempt.
	fallbackExhausted = "I'm experiencing technical difficulties. Please try your question again."
)

// modelCallFallback picks the degraded response for a failed model call
// by round number.
func modelCallFallback(round int) string {
	if round <= 1 {
		return fallbackFirstRound
	}
	return fallbackPartial
}
