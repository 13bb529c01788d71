// Package selection asks an LLM to pick the single best article of the day
// from a list of headlines and makes the reply robust to the free-text
// answers models actually produce.
package selection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"briefing-agent/internal/domain/entity"
	"briefing-agent/internal/llm"
)

// ErrNoSelection indicates the model reply contained no parseable index.
var ErrNoSelection = errors.New("no valid index in selection reply")

const selectionPromptTemplate = "You are an expert Software Engineering Editor. Review the following list of article headlines collected today. Select the SINGLE most valuable, educational, and impactful article for a senior software engineer to read. Consider technical depth, novelty, and broad relevance.\n\n%s\n\nReply ONLY with the integer index number of the chosen article (e.g., '3'). Do not add any explanation."

// BuildPrompt renders the selection prompt for the given articles. Indexes
// are zero-based and each line carries the source name so the model can
// weigh provenance.
func BuildPrompt(articles []entity.Article) string {
	var sb strings.Builder
	for i, a := range articles {
		fmt.Fprintf(&sb, "%d. [%s] %s\n", i, a.SourceName, a.Title)
	}
	return fmt.Sprintf(selectionPromptTemplate, sb.String())
}

// ParseIndex extracts the first maximal run of ASCII digits from the reply
// and parses it as a non-negative index. Surrounding prose, signs, and
// decimal points are ignored: "I choose 5" and "-5" both yield 5, "3.5"
// yields 3. Returns ErrNoSelection when the reply has no digits.
func ParseIndex(reply string) (int, error) {
	start := -1
	for i, r := range reply {
		if r >= '0' && r <= '9' {
			start = i
			break
		}
	}
	if start == -1 {
		return 0, fmt.Errorf("%w: %q", ErrNoSelection, strings.TrimSpace(reply))
	}

	end := start
	for end < len(reply) && reply[end] >= '0' && reply[end] <= '9' {
		end++
	}

	n, err := strconv.Atoi(reply[start:end])
	if err != nil {
		// Digit runs only fail Atoi on overflow. Clamp so the caller's
		// bounds check falls back to the first article.
		return math.MaxInt, nil
	}
	return n, nil
}

// Select asks the client to choose one article and returns its index. An
// out-of-range index from the model falls back to 0 with a warning; an
// unparseable reply is an error because it usually means the provider
// returned refusal text rather than an answer.
func Select(ctx context.Context, client llm.Client, articles []entity.Article) (int, error) {
	if len(articles) == 0 {
		return 0, fmt.Errorf("no articles to select from")
	}

	reply, err := client.Invoke(ctx, BuildPrompt(articles))
	if err != nil {
		return 0, fmt.Errorf("selection request failed: %w", err)
	}

	idx, err := ParseIndex(reply)
	if err != nil {
		return 0, fmt.Errorf("failed to parse selection from %s: %w", client.Name(), err)
	}

	if idx >= len(articles) {
		slog.Warn("selection index out of range, using first article",
			slog.Int("returned_index", idx),
			slog.Int("total_articles", len(articles)),
			slog.String("provider", string(client.Name())))
		return 0, nil
	}
	return idx, nil
}
