package publisher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"log/slog"
	"strings"

	"auto_bid_writer/diagram"
	"auto_bid_writer/logging"
)

// 段落样式 ID，与 styles.xml 中的定义一一对应。
const (
	StyleNormal     = "Normal"
	StyleListBullet = "ListBullet"
	StyleListNumber = "ListNumber"
	StyleCaption    = "Caption"
)

// HeadingStyle returns the style ID for heading level 1-4.
func HeadingStyle(level int) string {
	return fmt.Sprintf("Heading%d", level)
}

// Alignment of a paragraph.
type Alignment string

const (
	AlignLeft   Alignment = ""
	AlignCenter Alignment = "center"
)

// BlockKind tags a laid-out block.
type BlockKind int

const (
	BlockParagraph BlockKind = iota + 1
	BlockTable
	BlockImage
)

// Run is a piece of text inside a paragraph.
type Run struct {
	Text string
	Bold bool
}

// Block is one body element of the rendered document.
type Block struct {
	Kind  BlockKind
	Style string
	Align Alignment
	Runs  []Run
	// Body paragraphs get 1.5 line spacing and 10pt after.
	Body bool
	// NumID links list paragraphs to a numbering instance, 0 when not a list.
	NumID int

	Table *Table
	Image *Image
}

// Text returns the concatenated run text.
func (b Block) Text() string {
	var sb strings.Builder
	for _, r := range b.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

type Table struct {
	Header []string
	Rows   [][]string
}

// Image is an embedded PNG sized in EMU.
type Image struct {
	Data   []byte
	Width  int64
	Height int64
}

const (
	emuPerInch = 914400
	// ImageWidth 图片统一 6 英寸宽，高度按原始比例计算。
	ImageWidth = 6 * emuPerInch

	// DefaultFooter uses {PAGE} and {NUMPAGES} as field placeholders.
	DefaultFooter = "第 {PAGE} 页，共 {NUMPAGES} 页"
)

var ruleText = strings.Repeat("_", 50)

// bulletNumID is the shared numbering instance of every bullet list.
const bulletNumID = 1

// Document is the paginated, styled model written by WriteDocx.
type Document struct {
	Title  string
	Header string
	Footer string
	Blocks []Block

	// OrderedLists holds the numbering instance IDs of ordered lists, in order.
	OrderedLists []int
	images       int
}

// Images returns the embedded images in document order.
func (d *Document) Images() []*Image {
	var out []*Image
	for _, b := range d.Blocks {
		if b.Kind == BlockImage {
			out = append(out, b.Image)
		}
	}
	return out
}

// LayoutOptions configures Layout.
type LayoutOptions struct {
	// Header 页眉文字，一般为招标文件名。
	Header string
	// Footer defaults to DefaultFooter.
	Footer   string
	Diagrams diagram.Renderer
	Logger   *slog.Logger
	// OnDiagram is called once per diagram with the render outcome.
	OnDiagram func(ok bool)
}

// Layout maps parsed nodes onto styled document blocks. Diagrams are rendered
// synchronously; a failed or missing renderer drops the diagram and continues.
func Layout(ctx context.Context, nodes []Node, opts LayoutOptions) *Document {
	logger := logging.OrNop(opts.Logger)
	doc := &Document{
		Title:  opts.Header,
		Header: opts.Header,
		Footer: opts.Footer,
	}
	if doc.Footer == "" {
		doc.Footer = DefaultFooter
	}

	numIDs := map[int]int{}
	for _, n := range nodes {
		switch n.Kind {
		case NodeHeading:
			b := Block{Kind: BlockParagraph, Style: HeadingStyle(n.Level), Runs: []Run{{Text: n.Text}}}
			if n.Level == 1 {
				b.Align = AlignCenter
			}
			doc.Blocks = append(doc.Blocks, b)
		case NodeParagraph:
			doc.Blocks = append(doc.Blocks, Block{Kind: BlockParagraph, Style: StyleNormal, Body: true, Runs: toRuns(n.Spans)})
		case NodeBulletItem:
			doc.Blocks = append(doc.Blocks, Block{Kind: BlockParagraph, Style: StyleListBullet, NumID: bulletNumID, Runs: toRuns(n.Spans)})
		case NodeOrderedItem:
			id, ok := numIDs[n.ListID]
			if !ok {
				id = bulletNumID + 1 + len(doc.OrderedLists)
				numIDs[n.ListID] = id
				doc.OrderedLists = append(doc.OrderedLists, id)
			}
			doc.Blocks = append(doc.Blocks, Block{Kind: BlockParagraph, Style: StyleListNumber, NumID: id, Runs: toRuns(n.Spans)})
		case NodeTable:
			doc.Blocks = append(doc.Blocks, Block{Kind: BlockTable, Table: &Table{Header: n.Header, Rows: n.Rows}})
		case NodeRule:
			doc.Blocks = append(doc.Blocks, Block{Kind: BlockParagraph, Style: StyleNormal, Align: AlignCenter, Runs: []Run{{Text: ruleText}}})
		case NodeDiagram:
			img, err := renderDiagram(ctx, opts.Diagrams, n.Source)
			if opts.OnDiagram != nil {
				opts.OnDiagram(err == nil)
			}
			if err != nil {
				logger.Warn("diagram skipped", "error", err)
				continue
			}
			doc.images++
			doc.Blocks = append(doc.Blocks,
				Block{Kind: BlockImage, Align: AlignCenter, Image: img},
				Block{Kind: BlockParagraph, Style: StyleCaption, Align: AlignCenter, Runs: []Run{{Text: fmt.Sprintf("图 %d 流程图", doc.images)}}},
			)
		}
	}
	return doc
}

// Render parses md and lays it out in one step.
func Render(ctx context.Context, md string, opts LayoutOptions) *Document {
	return Layout(ctx, Parse(md), opts)
}

var errNoRenderer = errors.New("diagram: no renderer configured")

func renderDiagram(ctx context.Context, r diagram.Renderer, source string) (*Image, error) {
	if r == nil {
		return nil, errNoRenderer
	}
	data, err := r.Render(ctx, source)
	if err != nil {
		return nil, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("diagram: decode image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("diagram: empty image %dx%d", cfg.Width, cfg.Height)
	}
	return &Image{
		Data:   data,
		Width:  ImageWidth,
		Height: ImageWidth * int64(cfg.Height) / int64(cfg.Width),
	}, nil
}

func toRuns(spans []Span) []Run {
	runs := make([]Run, 0, len(spans))
	for _, s := range spans {
		runs = append(runs, Run{Text: s.Text, Bold: s.Bold})
	}
	return runs
}
