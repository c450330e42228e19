package curation

import (
	"fmt"
	"strings"

	"github.com/townwire/townwire/internal/models"
)

const evaluateSystemPrompt = `You are an editor for a daily local newsletter. You score incoming news items for how well they fit the next edition. Respond with JSON only.`

const evaluatePromptTemplate = `Score this news item for the newsletter on three dimensions, each an integer from 1 to 10:

- interest: how compelling is this to a general local reader?
- relevance: how directly does this concern the newsletter's coverage area?
- impact: how many readers does this materially affect?

Title: %s
Content: %s

Respond with JSON in exactly this shape:
{"interest": <1-10>, "relevance": <1-10>, "impact": <1-10>, "reasoning": "<one sentence>"}`

const dedupeSystemPrompt = `You are an editor grouping news items that cover the same underlying story. Respond with JSON only.`

const dedupePromptTemplate = `Below is a numbered list of news items. Group together items that cover the same story. For each group pick the item with the most complete coverage as primary. Items covering distinct stories go in unique_indices.

%s

Respond with JSON in exactly this shape:
{"groups": [{"primary_index": <n>, "topic": "<short label>", "duplicates": [{"index": <n>, "similarity": <0.0-1.0>}]}], "unique_indices": [<n>, ...]}

Use the item numbers from the list. An item appears in at most one group. If nothing is duplicated, return empty groups and every index in unique_indices.`

const rewriteSystemPrompt = `You are a newsletter writer. You condense news items into short, factual blurbs using only the source's own text. Never invent details. Respond with JSON only.`

const rewritePromptTemplate = `Rewrite this news item as a newsletter blurb. The body must be between %d and %d words, in plain neutral prose, using only facts present in the source text. Write a fresh, specific headline.

Title: %s
Content: %s

Respond with JSON in exactly this shape:
{"headline": "<headline>", "body": "<blurb>", "word_count": <n>}`

const factCheckSystemPrompt = `You verify rewritten news blurbs against their source text. You check for invented facts, stale framing, and editorializing. Respond with JSON only.`

const factCheckPromptTemplate = `Compare the rewritten blurb against the original source text. Rate each dimension as an integer from 1 to 10:

- accuracy: every claim in the blurb is supported by the source
- timeliness: the blurb does not present old news as current
- intent: the blurb preserves the source's meaning without editorializing

The rewrite passes only if it introduces no unsupported claims.

Original source:
%s

Rewritten blurb:
Headline: %s
%s

Respond with JSON in exactly this shape:
{"accuracy": <1-10>, "timeliness": <1-10>, "intent": <1-10>, "passed": <true|false>, "issues": "<empty string or a short note>"}`

const subjectSystemPrompt = `You write email subject lines for a daily local newsletter. Respond with JSON only.`

const subjectPromptTemplate = `Write one email subject line for today's edition, led by its top story. Under 60 characters, no clickbait, no emoji.

Top story headline: %s
Top story: %s

Respond with JSON in exactly this shape:
{"subject": "<subject line>"}`

func evaluatePrompt(item models.Item) string {
	return fmt.Sprintf(evaluatePromptTemplate, item.Title, clip(item.Text(), 2000))
}

func dedupePrompt(items []models.Item) string {
	var list strings.Builder
	for i, item := range items {
		fmt.Fprintf(&list, "%d. %s — %s\n", i, item.Title, clip(item.Description, 300))
	}
	return fmt.Sprintf(dedupePromptTemplate, strings.TrimRight(list.String(), "\n"))
}

func rewritePrompt(item models.Item, minWords, maxWords int) string {
	return fmt.Sprintf(rewritePromptTemplate, minWords, maxWords, item.Title, clip(item.Text(), 4000))
}

func factCheckPrompt(item models.Item, rewrite models.Rewrite) string {
	return fmt.Sprintf(factCheckPromptTemplate, clip(item.Text(), 4000), rewrite.Headline, rewrite.Body)
}

func subjectPrompt(headline, body string) string {
	return fmt.Sprintf(subjectPromptTemplate, headline, clip(body, 600))
}

// clip truncates prose fed into prompts so one oversized item cannot blow the
// token budget.
func clip(text string, max int) string {
	text = strings.TrimSpace(text)
	if len(text) <= max {
		return text
	}
	return text[:max] + "…"
}
