package text

import "strings"

// ChunkBySentence splits text into chunks at sentence boundaries,
// grouping consecutive sentences together while staying within maxChars per chunk.
// If maxChars is 0, no splitting is performed.
// Sentences that individually exceed maxChars are kept intact as a single chunk.
func ChunkBySentence(text string, maxChars int) []string {
	if maxChars <= 0 {
		return []string{text}
	}

	sentences := splitSentences(text)
	if len(sentences) <= 1 {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder

	for _, s := range sentences {
		if current.Len() > 0 && current.Len()+1+len(s) > maxChars {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(s)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}

func isSentenceTerminal(r rune) bool {
	switch r {
	case '.', '!', '?', '…', '。', '！', '？':
		return true
	}
	return false
}

// splitSentences splits text after each sentence terminal, keeping the
// terminator attached to its sentence. Empty segments are dropped.
func splitSentences(text string) []string {
	var sentences []string
	start := 0

	for i, r := range text {
		if !isSentenceTerminal(r) {
			continue
		}
		end := i + len(string(r))
		if s := strings.TrimSpace(text[start:end]); s != "" {
			sentences = append(sentences, s)
		}
		start = end
	}

	if start < len(text) {
		if s := strings.TrimSpace(text[start:]); s != "" {
			sentences = append(sentences, s)
		}
	}

	return sentences
}
