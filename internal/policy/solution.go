package policy

import (
	"regexp"
	"strings"
)

var (
	codeLinePattern   = regexp.MustCompile(`^\s*(def |class |import |from \S+ import|for |while |if |elif |else:|return\b|print\(|\w+\s*=[^=]|\w+\.\w+\(|[}{]\s*$)`)
	stepPattern       = regexp.MustCompile(`^\s*(step\s*)?\d+[.):]\s+\S`)
	finalAnswerMarker = regexp.MustCompile(`(?i)\b(final answer|the answer is|therefore|answer:|result:)`)
)

// IsCompleteSolution reports whether text hands over a finished solution:
// a code block of at least MinSolutionCodeLines lines, or at least
// MinSolutionSteps numbered steps ending in a final answer.
func IsCompleteSolution(text string, cfg Config) bool {
	if longestCodeBlock(text) >= cfg.MinSolutionCodeLines {
		return true
	}
	steps := 0
	for _, line := range strings.Split(text, "\n") {
		if stepPattern.MatchString(strings.ToLower(line)) {
			steps++
		}
	}
	return steps >= cfg.MinSolutionSteps && finalAnswerMarker.MatchString(text)
}

// longestCodeBlock returns the non-blank line count of the longest fenced
// block, or of the longest run of code-looking lines outside fences.
func longestCodeBlock(text string) int {
	best, run := 0, 0
	inFence := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if inFence {
				best = max(best, run)
			}
			inFence = !inFence
			run = 0
			continue
		}
		switch {
		case inFence:
			if trimmed != "" {
				run++
			}
		case codeLinePattern.MatchString(line):
			run++
			best = max(best, run)
		case trimmed == "":
		default:
			run = 0
		}
	}
	if inFence {
		best = max(best, run)
	}
	return best
}
