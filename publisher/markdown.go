package publisher

import (
	"regexp"
	"strings"
)

// NodeKind tags a parsed markdown node.
type NodeKind int

const (
	NodeHeading NodeKind = iota + 1
	NodeParagraph
	NodeBulletItem
	NodeOrderedItem
	NodeTable
	NodeDiagram
	NodeRule
)

func (k NodeKind) String() string {
	switch k {
	case NodeHeading:
		return "heading"
	case NodeParagraph:
		return "paragraph"
	case NodeBulletItem:
		return "bullet"
	case NodeOrderedItem:
		return "ordered"
	case NodeTable:
		return "table"
	case NodeDiagram:
		return "diagram"
	case NodeRule:
		return "rule"
	default:
		return "unknown"
	}
}

// Span is a run of text that is either bold or plain.
type Span struct {
	Text string
	Bold bool
}

// Node is one block recognised in the merged markdown.
type Node struct {
	Kind NodeKind

	// heading
	Level int
	Text  string

	// paragraph and list items
	Spans []Span
	// ListID groups consecutive items of one list; numbering restarts per ID.
	ListID int

	// table
	Header []string
	Rows   [][]string

	// diagram
	Source string
}

const (
	diagramFence = "```mermaid"
	fence        = "```"
	bold         = "**"
)

var (
	headingLine = regexp.MustCompile(`^(#{1,4})(?:\s+(.*))?$`)
	bulletLine  = regexp.MustCompile(`^[-*+]\s+(.*)$`)
	orderedLine = regexp.MustCompile(`^\d+\.\s+(.*)$`)
	ruleLine    = regexp.MustCompile(`^-{3,}$`)
)

// Parse scans the merged markdown once, top to bottom, and returns its nodes.
// Recognition order per line: mermaid fence, table run, heading, list item, rule, paragraph.
func Parse(md string) []Node {
	md = strings.ReplaceAll(md, "\r\n", "\n")
	lines := strings.Split(md, "\n")

	var (
		nodes    []Node
		listKind NodeKind
		listID   int
	)
	endList := func() { listKind = 0 }
	addItem := func(kind NodeKind, text string) {
		if listKind != kind {
			listID++
			listKind = kind
		}
		nodes = append(nodes, Node{Kind: kind, Spans: SplitBold(text), ListID: listID})
	}

	for i := 0; i < len(lines); {
		trimmed := strings.TrimSpace(lines[i])

		if strings.HasPrefix(trimmed, diagramFence) {
			endList()
			i++
			var src []string
			for i < len(lines) && !strings.HasPrefix(strings.TrimSpace(lines[i]), fence) {
				src = append(src, lines[i])
				i++
			}
			i++ // closing fence
			if len(src) > 0 {
				nodes = append(nodes, Node{Kind: NodeDiagram, Source: strings.Join(src, "\n")})
			}
			continue
		}

		if strings.HasPrefix(trimmed, "|") {
			endList()
			var rows []string
			for i < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[i]), "|") {
				rows = append(rows, lines[i])
				i++
			}
			if table, ok := parseTable(rows); ok {
				nodes = append(nodes, table)
			}
			continue
		}

		i++
		switch {
		case trimmed == "":
			endList()
		case headingLine.MatchString(trimmed):
			endList()
			m := headingLine.FindStringSubmatch(trimmed)
			text := strings.TrimSpace(strings.ReplaceAll(m[2], bold, ""))
			if text == "" {
				continue // 空标题直接丢弃
			}
			nodes = append(nodes, Node{Kind: NodeHeading, Level: len(m[1]), Text: text})
		case bulletLine.MatchString(trimmed):
			addItem(NodeBulletItem, bulletLine.FindStringSubmatch(trimmed)[1])
		case orderedLine.MatchString(trimmed):
			addItem(NodeOrderedItem, orderedLine.FindStringSubmatch(trimmed)[1])
		case ruleLine.MatchString(trimmed):
			endList()
			nodes = append(nodes, Node{Kind: NodeRule})
		default:
			endList()
			nodes = append(nodes, Node{Kind: NodeParagraph, Spans: SplitBold(trimmed)})
		}
	}
	return nodes
}

// parseTable needs a header, a separator and at least one data row. The separator
// is not validated; data rows whose cell count differs from the header are dropped.
func parseTable(lines []string) (Node, bool) {
	if len(lines) < 3 {
		return Node{}, false
	}
	header := splitRow(lines[0])
	table := Node{Kind: NodeTable, Header: header}
	for _, line := range lines[2:] {
		cells := splitRow(line)
		if len(cells) != len(header) {
			continue
		}
		table.Rows = append(table.Rows, cells)
	}
	return table, true
}

func splitRow(line string) []string {
	inner := strings.Trim(strings.TrimSpace(line), "|")
	cells := strings.Split(inner, "|")
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	return cells
}

// SplitBold splits text into plain and bold spans. "**" pairs are matched left to
// right without overlap; a delimiter without a partner stays literal text.
func SplitBold(text string) []Span {
	var spans []Span
	add := func(s string, b bool) {
		if s != "" {
			spans = append(spans, Span{Text: s, Bold: b})
		}
	}
	rest := text
	for {
		start := strings.Index(rest, bold)
		if start < 0 {
			break
		}
		end := strings.Index(rest[start+len(bold):], bold)
		if end < 0 {
			break
		}
		end += start + len(bold)
		add(rest[:start], false)
		add(rest[start+len(bold):end], true)
		rest = rest[end+len(bold):]
	}
	add(rest, false)
	return spans
}

// PlainText joins spans back without formatting.
func PlainText(spans []Span) string {
	var sb strings.Builder
	for _, s := range spans {
		sb.WriteString(s.Text)
	}
	return sb.String()
}
