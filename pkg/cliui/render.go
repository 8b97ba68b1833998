package cliui

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/papercomputeco/nook/pkg/vector"
)

// DocumentsMarkdown lays out retrieved documents as markdown, one section per
// document in rank order.
func DocumentsMarkdown(query string, mode string, docs []vector.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Results for %q\n\n", query)
	fmt.Fprintf(&b, "_%d document(s), %s retrieval_\n\n", len(docs), mode)

	for i, doc := range docs {
		fmt.Fprintf(&b, "### %d. %s", i+1, doc.Metadata.Type)
		if doc.Metadata.Source != "" {
			fmt.Fprintf(&b, " · %s", doc.Metadata.Source)
		}
		fmt.Fprintf(&b, " (score %.3f)\n\n", doc.Score)
		b.WriteString(quote(doc.Content))
		b.WriteString("\n\n")
	}

	return b.String()
}

func quote(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i, l := range lines {
		lines[i] = "> " + l
	}
	return strings.Join(lines, "\n")
}

// KeyValues prints aligned key/value rows sorted by key.
func KeyValues(w io.Writer, rows map[string]string) {
	keys := make([]string, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(w, "  %s%s\n", KeyStyle.Render(k), ValueStyle.Render(rows[k]))
	}
}
