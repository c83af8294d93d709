// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package segment classifies streaming model output into thinking and
// answer portions.
package segment

import (
	"regexp"
	"strings"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// Tag markers the model is instructed to emit around reasoning and final
// answer sections.
const (
	ThinkOpen   = "<think>"
	ThinkClose  = "</think>"
	AnswerOpen  = "<answer>"
	AnswerClose = "</answer>"
)

// Thresholds tunes heuristic classification of untagged text. The values
// are tuning constants, not derived from anything principled.
type Thresholds struct {
	// MinClassifyLen is the floor below which text is always thinking.
	// A just-started stream should not be misread as an answer.
	MinClassifyLen int

	// AssumeAnswerLen is the length at which indicator-free text is
	// assumed to be a complete direct answer.
	AssumeAnswerLen int
}

// DefaultThresholds returns the standard tuning values.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinClassifyLen:  20,
		AssumeAnswerLen: 30,
	}
}

// Phrases that suggest the model is still reasoning.
var thinkingIndicators = []string{
	"let me think",
	"thinking about",
	"step by step",
	"first,",
	"consider",
	"let's see",
	"hmm",
}

// Phrases that suggest the model has reached its conclusion.
var answerIndicators = []string{
	"therefore",
	"the answer is",
	"final answer",
	"in conclusion",
	"so the result",
	"=",
}

// =============================================================================
// SEGMENTATION
// =============================================================================

// Result holds the classified portions of the accumulated model output.
// Both fields are whitespace-trimmed.
type Result struct {
	Thinking string
	Answer   string
}

// Split classifies text using the default thresholds. Text is the full
// accumulated output so far, not just the newest fragment, so calling it on
// every chunk of a growing stream is safe and idempotent.
func Split(text string) Result {
	return SplitWith(text, DefaultThresholds())
}

// SplitWith classifies text with explicit thresholds.
//
// If either tag marker appears, structured mode applies: content between
// matched tag pairs is extracted, and an unclosed opening tag claims
// everything to end-of-text as partial content. Once a tag is seen the
// heuristics are never consulted.
//
// Otherwise heuristic mode applies: short text is assumed to be in-progress
// thinking; answer-indicator phrases mark the whole text as answer;
// thinking-indicator phrases mark it as thinking; indicator-free text is
// thinking below AssumeAnswerLen and answer at or above it.
func SplitWith(text string, th Thresholds) Result {
	if strings.Contains(text, ThinkOpen) || strings.Contains(text, AnswerOpen) {
		return splitStructured(text)
	}
	return splitHeuristic(text, th)
}

func splitStructured(text string) Result {
	return Result{
		Thinking: extractSection(text, ThinkOpen, ThinkClose),
		Answer:   extractSection(text, AnswerOpen, AnswerClose),
	}
}

// extractSection pulls the content between open and close. With no close
// tag yet (stream still inside the section) everything after open counts.
func extractSection(text, openTag, closeTag string) string {
	start := strings.Index(text, openTag)
	if start < 0 {
		return ""
	}
	start += len(openTag)
	rest := text[start:]
	if end := strings.Index(rest, closeTag); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

func splitHeuristic(text string, th Thresholds) Result {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < th.MinClassifyLen {
		return Result{Thinking: trimmed}
	}

	lower := strings.ToLower(trimmed)
	for _, phrase := range answerIndicators {
		if strings.Contains(lower, phrase) {
			return Result{Answer: trimmed}
		}
	}
	for _, phrase := range thinkingIndicators {
		if strings.Contains(lower, phrase) {
			return Result{Thinking: trimmed}
		}
	}

	if len(trimmed) < th.AssumeAnswerLen {
		return Result{Thinking: trimmed}
	}
	return Result{Answer: trimmed}
}

// =============================================================================
// TAG STRIPPING
// =============================================================================

var tagPattern = regexp.MustCompile(`</?(?:think|answer)>`)

// StripTags removes all reasoning and answer tag markers from text.
// Persisted message content must never contain tag markup.
func StripTags(text string) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(text, ""))
}
