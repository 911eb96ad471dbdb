package graph

import (
	"strings"
)

// SplitTokenAware splits document text into overlapping chunks of at most
// chunkSize tokens. Lines longer than chunkSize are first broken on word
// boundaries, then lines are grouped into chunks; consecutive chunks share
// up to overlap tokens of trailing context so entity mentions spanning a
// chunk boundary are not lost to the extractor.
//
// The result is a materialized ordered list: all chunks are needed to
// assign sequence numbers before extraction starts.
func SplitTokenAware(text string, chunkSize int, overlap int, counter TokenCounter) []string {
	if chunkSize <= 0 || counter == nil {
		return SplitParagraphs(text)
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 0
	}

	lines := splitBoundedLines(text, chunkSize, counter)
	if len(lines) == 0 {
		return nil
	}

	var chunks []string
	var current []string
	currentTokens := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(current, "\n"))

		// Seed the next chunk with trailing lines of the flushed one,
		// newest first, up to the overlap budget.
		var carried []string
		carriedTokens := 0
		for i := len(current) - 1; i >= 0; i-- {
			lineTokens := counter.CountTokens(current[i])
			if carriedTokens+lineTokens > overlap {
				break
			}
			carried = append([]string{current[i]}, carried...)
			carriedTokens += lineTokens
		}
		current = carried
		currentTokens = carriedTokens
	}

	for _, line := range lines {
		lineTokens := counter.CountTokens(line)
		if currentTokens+lineTokens > chunkSize && len(current) > 0 {
			flush()
		}
		current = append(current, line)
		currentTokens += lineTokens
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, "\n"))
	}

	return chunks
}

// splitBoundedLines returns the non-blank lines of text, breaking any line
// that exceeds maxTokens into word-bounded pieces.
func splitBoundedLines(text string, maxTokens int, counter TokenCounter) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if counter.CountTokens(line) <= maxTokens {
			out = append(out, line)
			continue
		}

		var piece []string
		pieceTokens := 0
		for _, word := range strings.Fields(line) {
			wordTokens := counter.CountTokens(word)
			if pieceTokens+wordTokens > maxTokens && len(piece) > 0 {
				out = append(out, strings.Join(piece, " "))
				piece = nil
				pieceTokens = 0
			}
			piece = append(piece, word)
			pieceTokens += wordTokens
		}
		if len(piece) > 0 {
			out = append(out, strings.Join(piece, " "))
		}
	}
	return out
}

// SplitParagraphs splits document text into paragraphs on blank-line
// boundaries, with no token awareness or overlap. Used when no tokenizer
// capability is configured.
func SplitParagraphs(text string) []string {
	var paragraphs []string
	var current []string

	flush := func() {
		if len(current) == 0 {
			return
		}
		paragraphs = append(paragraphs, strings.Join(current, " "))
		current = nil
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()

	return paragraphs
}
