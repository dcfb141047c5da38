package domain

import (
	"fmt"
	"strings"
)

// Mind-map outlines use a plain-text convention: hierarchy by leading
// whitespace (two spaces per level), each line prefixed by one of a small
// set of bullet markers (*, -, +).

// MindmapToMermaid converts a plain-text mind-map outline into Mermaid
// graph syntax. Blank lines and code-fence delimiters are dropped, bullet
// markers are stripped, and characters that break Mermaid labels are
// replaced. Each node links to the nearest preceding node one level up.
func MindmapToMermaid(outline string) string {
	cleaned := strings.ReplaceAll(outline, "```", "")

	var b strings.Builder
	b.WriteString("graph TD;\n")

	type node struct {
		id    string
		level int
	}
	var nodes []node

	for _, line := range strings.Split(cleaned, "\n") {
		content := strings.TrimLeft(line, " \t")
		indent := len(line) - len(content)
		level := indent / 2

		// At most one marker is stripped, so emphasis like "**bold**"
		// keeps its remaining asterisks.
		if len(content) > 0 && strings.ContainsAny(content[:1], "*-+") {
			content = content[1:]
		}
		content = strings.TrimSpace(content)
		if content == "" {
			continue
		}
		content = escapeMermaidLabel(content)

		id := fmt.Sprintf("node%d", len(nodes))
		fmt.Fprintf(&b, "  %s[\"%s\"];\n", id, content)

		if level > 0 {
			for i := len(nodes) - 1; i >= 0; i-- {
				if nodes[i].level == level-1 {
					fmt.Fprintf(&b, "  %s --> %s;\n", nodes[i].id, id)
					break
				}
			}
		}
		nodes = append(nodes, node{id: id, level: level})
	}

	return b.String()
}

// escapeMermaidLabel neutralises characters that terminate or corrupt a
// quoted Mermaid node label.
func escapeMermaidLabel(s string) string {
	r := strings.NewReplacer(
		`"`, `\"`,
		"[", "(",
		"]", ")",
		"<", "&lt;",
		">", "&gt;",
	)
	return r.Replace(s)
}
