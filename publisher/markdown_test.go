package publisher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHeading(t *testing.T) {
	nodes := Parse("### Title")
	require.Len(t, nodes, 1)
	assert.Equal(t, Node{Kind: NodeHeading, Level: 3, Text: "Title"}, nodes[0])
}

func TestParseHeadingStripsBold(t *testing.T) {
	nodes := Parse("## **技术**方案")
	require.Len(t, nodes, 1)
	assert.Equal(t, 2, nodes[0].Level)
	assert.Equal(t, "技术方案", nodes[0].Text)
}

func TestParseEmptyHeadingDropped(t *testing.T) {
	nodes := Parse("## \n###\n## ****\n正文")
	require.Len(t, nodes, 1)
	assert.Equal(t, NodeParagraph, nodes[0].Kind)
	assert.Equal(t, "正文", PlainText(nodes[0].Spans))
}

func TestParseDeepHeadingIsParagraph(t *testing.T) {
	nodes := Parse("##### 五级标题\n#无空格")
	require.Len(t, nodes, 2)
	assert.Equal(t, NodeParagraph, nodes[0].Kind)
	assert.Equal(t, NodeParagraph, nodes[1].Kind)
	assert.Equal(t, "#无空格", PlainText(nodes[1].Spans))
}

func TestSplitBold(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []Span
	}{
		{"paired", "a **b** c", []Span{{Text: "a "}, {Text: "b", Bold: true}, {Text: " c"}}},
		{"unmatched", "a **b c", []Span{{Text: "a **b c"}}},
		{"two pairs", "**x**和**y**", []Span{{Text: "x", Bold: true}, {Text: "和"}, {Text: "y", Bold: true}}},
		{"empty pair", "****", nil},
		{"third delimiter literal", "**a** **b", []Span{{Text: "a", Bold: true}, {Text: " **b"}}},
		{"plain", "无格式", []Span{{Text: "无格式"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SplitBold(tc.in))
		})
	}
}

func TestParseParagraphBold(t *testing.T) {
	nodes := Parse("a **b** c\na **b c")
	require.Len(t, nodes, 2)
	assert.Equal(t, []Span{{Text: "a "}, {Text: "b", Bold: true}, {Text: " c"}}, nodes[0].Spans)
	assert.Equal(t, []Span{{Text: "a **b c"}}, nodes[1].Spans)
}

func TestParseTableDropsMismatchedRows(t *testing.T) {
	md := "|A|B|\n|-|-|\n|1|2|\n|3|"
	nodes := Parse(md)
	require.Len(t, nodes, 1)
	table := nodes[0]
	assert.Equal(t, NodeTable, table.Kind)
	assert.Equal(t, []string{"A", "B"}, table.Header)
	assert.Equal(t, [][]string{{"1", "2"}}, table.Rows)
}

func TestParseTableTrimsCells(t *testing.T) {
	md := "| 项目 | 承诺 |\n|---|---|\n| 质量 | 合格 |\n"
	nodes := Parse(md)
	require.Len(t, nodes, 1)
	assert.Equal(t, []string{"项目", "承诺"}, nodes[0].Header)
	assert.Equal(t, [][]string{{"质量", "合格"}}, nodes[0].Rows)
}

func TestParseTableWithoutDataRowIsDropped(t *testing.T) {
	nodes := Parse("|A|B|\n|-|-|\n后续段落")
	require.Len(t, nodes, 1)
	assert.Equal(t, NodeParagraph, nodes[0].Kind)
	assert.Equal(t, "后续段落", PlainText(nodes[0].Spans))
}

func TestParseLists(t *testing.T) {
	md := "- 甲\n* **乙**\n+ 丙\n1. 一\n2. 二\n\n1. 三\n正文\n3. 四"
	nodes := Parse(md)
	require.Len(t, nodes, 8)

	for _, n := range nodes[:3] {
		assert.Equal(t, NodeBulletItem, n.Kind)
	}
	assert.Equal(t, []Span{{Text: "乙", Bold: true}}, nodes[1].Spans)
	assert.Equal(t, nodes[0].ListID, nodes[2].ListID)

	assert.Equal(t, NodeOrderedItem, nodes[3].Kind)
	assert.Equal(t, "一", PlainText(nodes[3].Spans))
	assert.Equal(t, nodes[3].ListID, nodes[4].ListID)
	assert.NotEqual(t, nodes[0].ListID, nodes[3].ListID)

	// blank line starts a new run
	assert.NotEqual(t, nodes[4].ListID, nodes[5].ListID)
	assert.Equal(t, NodeParagraph, nodes[6].Kind)
	assert.NotEqual(t, nodes[5].ListID, nodes[7].ListID)
}

func TestParseRule(t *testing.T) {
	nodes := Parse("---\n  -----  \n--")
	require.Len(t, nodes, 3)
	assert.Equal(t, NodeRule, nodes[0].Kind)
	assert.Equal(t, NodeRule, nodes[1].Kind)
	assert.Equal(t, NodeParagraph, nodes[2].Kind)
}

func TestParseDiagram(t *testing.T) {
	md := "前言\n```mermaid\ngraph TD\n  A-->B\n```\n结尾\n```mermaid\n```\n"
	nodes := Parse(md)
	require.Len(t, nodes, 3)
	assert.Equal(t, NodeDiagram, nodes[1].Kind)
	assert.Equal(t, "graph TD\n  A-->B", nodes[1].Source)
	// empty diagram produces nothing
	assert.Equal(t, "结尾", PlainText(nodes[2].Spans))
}

func TestParseUnterminatedDiagramConsumesRest(t *testing.T) {
	nodes := Parse("```mermaid\ngraph LR\nA-->B")
	require.Len(t, nodes, 1)
	assert.Equal(t, "graph LR\nA-->B", nodes[0].Source)
}

func TestParseSkipsBlankLinesAndCRLF(t *testing.T) {
	nodes := Parse("# 投标文件\r\n\r\n\r\n## 投标函\r\n正文")
	require.Len(t, nodes, 3)
	assert.Equal(t, "投标文件", nodes[0].Text)
	assert.Equal(t, "投标函", nodes[1].Text)
	assert.Equal(t, "正文", PlainText(nodes[2].Spans))
}
