package mcp

import (
	"fmt"
	"strings"

	"github.com/loopwork-ai/norris/joke"
)

// maxSearchResults bounds how many search hits are rendered
const maxSearchResults = 5

// FormatJoke renders a random joke
func FormatJoke(j *joke.Joke) string {
	return fmt.Sprintf("%s\n\n(Joke ID: %s)", j.Value, j.ID)
}

// FormatCategoryJoke renders a joke drawn from category.
// The category is the one the caller asked for, not one echoed by upstream.
func FormatCategoryJoke(j *joke.Joke, category string) string {
	return fmt.Sprintf("%s\n\nCategory: %s\n(Joke ID: %s)", j.Value, category, j.ID)
}

// FormatCategories renders the category list in upstream order
func FormatCategories(categories []string) string {
	lines := make([]string, len(categories))
	for i, category := range categories {
		lines[i] = "- " + category
	}
	return "Available categories:\n\n" + strings.Join(lines, "\n")
}

// FormatSearch renders up to five hits for query. The count of hidden jokes
// is derived from result.Total, so it is only as accurate as upstream.
func FormatSearch(result *joke.SearchResult, query string) string {
	if result.Total == 0 {
		return fmt.Sprintf("No jokes found containing \"%s\"", query)
	}

	shown := result.Result
	if len(shown) > maxSearchResults {
		shown = shown[:maxSearchResults]
	}

	entries := make([]string, len(shown))
	for i, j := range shown {
		entries[i] = fmt.Sprintf("%d. %s", i+1, j.Value)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d jokes containing \"%s\":\n\n", result.Total, query)
	b.WriteString(strings.Join(entries, "\n\n"))
	if more := result.Total - maxSearchResults; more > 0 {
		fmt.Fprintf(&b, "\n\n...and %d more jokes", more)
	}
	return b.String()
}
