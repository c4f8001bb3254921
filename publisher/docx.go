package publisher

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// 页面设置，单位 twip（1/20 磅）。A4 纸，上下 2.54cm，左右 3.18cm。
const (
	pageWidth    = 11906
	pageHeight   = 16838
	marginTop    = 1440
	marginBottom = 1440
	marginLeft   = 1803
	marginRight  = 1803
	textWidth    = pageWidth - marginLeft - marginRight

	bodyLineSpacing = 360 // 1.5 倍行距
	bodyAfter       = 200 // 段后 10 磅

	fontBody    = "宋体"
	fontHeading = "黑体"
)

const (
	nsW   = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsR   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsWP  = "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"
	nsA   = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsPic = "http://schemas.openxmlformats.org/drawingml/2006/picture"
	nsRel = "http://schemas.openxmlformats.org/package/2006/relationships"

	relTypeBase = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/"

	xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"
)

// SaveDocx writes the document to path, creating parent directories.
func (d *Document) SaveDocx(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("docx: create dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("docx: create %s: %w", path, err)
	}
	if err := d.WriteDocx(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteDocx serialises the document as an Office Open XML package.
func (d *Document) WriteDocx(w io.Writer) error {
	zw := zip.NewWriter(w)
	parts := []struct {
		name string
		body string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", packageRelsXML},
		{"docProps/core.xml", d.coreXML()},
		{"word/document.xml", d.documentXML()},
		{"word/styles.xml", stylesXML},
		{"word/numbering.xml", d.numberingXML()},
		{"word/header1.xml", d.headerXML()},
		{"word/footer1.xml", d.footerXML()},
		{"word/_rels/document.xml.rels", d.documentRelsXML()},
	}
	for _, p := range parts {
		if err := writePart(zw, p.name, []byte(p.body)); err != nil {
			return err
		}
	}
	for i, img := range d.Images() {
		if err := writePart(zw, fmt.Sprintf("word/media/image%d.png", i+1), img.Data); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("docx: close package: %w", err)
	}
	return nil
}

func writePart(zw *zip.Writer, name string, data []byte) error {
	fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("docx: create part %s: %w", name, err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("docx: write part %s: %w", name, err)
	}
	return nil
}

func esc(s string) string {
	var sb strings.Builder
	_ = xml.EscapeText(&sb, []byte(s))
	return sb.String()
}

const contentTypesXML = xmlHeader +
	`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Default Extension="png" ContentType="image/png"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>` +
	`<Override PartName="/word/numbering.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.numbering+xml"/>` +
	`<Override PartName="/word/header1.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.header+xml"/>` +
	`<Override PartName="/word/footer1.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.footer+xml"/>` +
	`<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>` +
	`</Types>`

const packageRelsXML = xmlHeader +
	`<Relationships xmlns="` + nsRel + `">` +
	`<Relationship Id="rId1" Type="` + relTypeBase + `officeDocument" Target="word/document.xml"/>` +
	`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>` +
	`</Relationships>`

func (d *Document) coreXML() string {
	return xmlHeader +
		`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/">` +
		`<dc:title>` + esc(d.Title) + `</dc:title>` +
		`<dc:creator>bidgen</dc:creator>` +
		`</cp:coreProperties>`
}

func imageRelID(n int) string { return fmt.Sprintf("rIdImg%d", n) }

func (d *Document) documentRelsXML() string {
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	sb.WriteString(`<Relationships xmlns="` + nsRel + `">`)
	rel := func(id, typ, target string) {
		fmt.Fprintf(&sb, `<Relationship Id="%s" Type="%s%s" Target="%s"/>`, id, relTypeBase, typ, target)
	}
	rel("rIdStyles", "styles", "styles.xml")
	rel("rIdNumbering", "numbering", "numbering.xml")
	rel("rIdHeader1", "header", "header1.xml")
	rel("rIdFooter1", "footer", "footer1.xml")
	for i := range d.Images() {
		rel(imageRelID(i+1), "image", fmt.Sprintf("media/image%d.png", i+1))
	}
	sb.WriteString(`</Relationships>`)
	return sb.String()
}

func (d *Document) documentXML() string {
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	fmt.Fprintf(&sb, `<w:document xmlns:w="%s" xmlns:r="%s" xmlns:wp="%s" xmlns:a="%s" xmlns:pic="%s"><w:body>`,
		nsW, nsR, nsWP, nsA, nsPic)

	img := 0
	for _, b := range d.Blocks {
		switch b.Kind {
		case BlockParagraph:
			writeParagraph(&sb, b)
		case BlockTable:
			writeTable(&sb, b.Table)
		case BlockImage:
			img++
			writeImage(&sb, b.Image, img)
		}
	}

	sb.WriteString(`<w:sectPr>`)
	sb.WriteString(`<w:headerReference w:type="default" r:id="rIdHeader1"/>`)
	sb.WriteString(`<w:footerReference w:type="default" r:id="rIdFooter1"/>`)
	fmt.Fprintf(&sb, `<w:pgSz w:w="%d" w:h="%d"/>`, pageWidth, pageHeight)
	fmt.Fprintf(&sb, `<w:pgMar w:top="%d" w:right="%d" w:bottom="%d" w:left="%d" w:header="851" w:footer="992" w:gutter="0"/>`,
		marginTop, marginRight, marginBottom, marginLeft)
	sb.WriteString(`</w:sectPr></w:body></w:document>`)
	return sb.String()
}

func writeParagraph(sb *strings.Builder, b Block) {
	sb.WriteString(`<w:p><w:pPr>`)
	if b.Style != "" {
		fmt.Fprintf(sb, `<w:pStyle w:val="%s"/>`, b.Style)
	}
	if b.NumID > 0 {
		fmt.Fprintf(sb, `<w:numPr><w:ilvl w:val="0"/><w:numId w:val="%d"/></w:numPr>`, b.NumID)
	}
	if b.Body {
		fmt.Fprintf(sb, `<w:spacing w:after="%d" w:line="%d" w:lineRule="auto"/>`, bodyAfter, bodyLineSpacing)
	}
	if b.Align != AlignLeft {
		fmt.Fprintf(sb, `<w:jc w:val="%s"/>`, b.Align)
	}
	sb.WriteString(`</w:pPr>`)
	for _, r := range b.Runs {
		writeRun(sb, r.Text, r.Bold, "")
	}
	sb.WriteString(`</w:p>`)
}

func writeRun(sb *strings.Builder, text string, bold bool, font string) {
	sb.WriteString(`<w:r>`)
	if bold || font != "" {
		sb.WriteString(`<w:rPr>`)
		if font != "" {
			fmt.Fprintf(sb, `<w:rFonts w:ascii="%[1]s" w:hAnsi="%[1]s" w:eastAsia="%[1]s"/>`, font)
		}
		if bold {
			sb.WriteString(`<w:b/>`)
		}
		sb.WriteString(`</w:rPr>`)
	}
	sb.WriteString(`<w:t xml:space="preserve">`)
	sb.WriteString(esc(text))
	sb.WriteString(`</w:t></w:r>`)
}

func writeTable(sb *strings.Builder, t *Table) {
	cols := len(t.Header)
	if cols == 0 {
		return
	}
	colWidth := textWidth / cols
	sb.WriteString(`<w:tbl><w:tblPr><w:tblStyle w:val="TableGrid"/><w:tblW w:w="0" w:type="auto"/><w:jc w:val="center"/></w:tblPr><w:tblGrid>`)
	for i := 0; i < cols; i++ {
		fmt.Fprintf(sb, `<w:gridCol w:w="%d"/>`, colWidth)
	}
	sb.WriteString(`</w:tblGrid>`)

	row := func(cells []string, header bool) {
		sb.WriteString(`<w:tr>`)
		if header {
			sb.WriteString(`<w:trPr><w:tblHeader/></w:trPr>`)
		}
		for _, cell := range cells {
			fmt.Fprintf(sb, `<w:tc><w:tcPr><w:tcW w:w="%d" w:type="dxa"/></w:tcPr><w:p><w:pPr><w:jc w:val="center"/></w:pPr>`, colWidth)
			if header {
				writeRun(sb, cell, true, fontHeading)
			} else {
				writeRun(sb, cell, false, fontBody)
			}
			sb.WriteString(`</w:p></w:tc>`)
		}
		sb.WriteString(`</w:tr>`)
	}
	row(t.Header, true)
	for _, r := range t.Rows {
		row(r, false)
	}
	// 表格后需要一个段落，避免与后续表格粘连。
	sb.WriteString(`</w:tbl><w:p/>`)
}

func writeImage(sb *strings.Builder, img *Image, n int) {
	sb.WriteString(`<w:p><w:pPr><w:jc w:val="center"/></w:pPr><w:r><w:drawing>`)
	sb.WriteString(`<wp:inline distT="0" distB="0" distL="0" distR="0">`)
	fmt.Fprintf(sb, `<wp:extent cx="%d" cy="%d"/>`, img.Width, img.Height)
	fmt.Fprintf(sb, `<wp:docPr id="%d" name="Picture %d"/>`, n, n)
	sb.WriteString(`<wp:cNvGraphicFramePr><a:graphicFrameLocks noChangeAspect="1"/></wp:cNvGraphicFramePr>`)
	sb.WriteString(`<a:graphic><a:graphicData uri="` + nsPic + `"><pic:pic>`)
	fmt.Fprintf(sb, `<pic:nvPicPr><pic:cNvPr id="%d" name="image%d.png"/><pic:cNvPicPr/></pic:nvPicPr>`, n, n)
	fmt.Fprintf(sb, `<pic:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>`, imageRelID(n))
	fmt.Fprintf(sb, `<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr>`, img.Width, img.Height)
	sb.WriteString(`</pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing></w:r></w:p>`)
}

func (d *Document) headerXML() string {
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	fmt.Fprintf(&sb, `<w:hdr xmlns:w="%s" xmlns:r="%s"><w:p><w:pPr><w:pStyle w:val="Header"/><w:jc w:val="center"/></w:pPr>`, nsW, nsR)
	if d.Header != "" {
		writeRun(&sb, d.Header, false, "")
	}
	sb.WriteString(`</w:p></w:hdr>`)
	return sb.String()
}

// 页脚模板中的 {PAGE}、{NUMPAGES} 转换为 Word 域，由 Word 在打开时计算。
var footerFields = []string{"PAGE", "NUMPAGES"}

func (d *Document) footerXML() string {
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	fmt.Fprintf(&sb, `<w:ftr xmlns:w="%s" xmlns:r="%s"><w:p><w:pPr><w:pStyle w:val="Footer"/><w:jc w:val="center"/></w:pPr>`, nsW, nsR)
	for _, seg := range splitFooter(d.Footer) {
		if seg.field != "" {
			fmt.Fprintf(&sb, `<w:fldSimple w:instr=" %s "><w:r><w:t>1</w:t></w:r></w:fldSimple>`, seg.field)
			continue
		}
		writeRun(&sb, seg.text, false, "")
	}
	sb.WriteString(`</w:p></w:ftr>`)
	return sb.String()
}

type footerSegment struct {
	text  string
	field string
}

func splitFooter(tmpl string) []footerSegment {
	var out []footerSegment
	rest := tmpl
	for rest != "" {
		pos, field := -1, ""
		for _, f := range footerFields {
			if i := strings.Index(rest, "{"+f+"}"); i >= 0 && (pos < 0 || i < pos) {
				pos, field = i, f
			}
		}
		if pos < 0 {
			out = append(out, footerSegment{text: rest})
			break
		}
		if pos > 0 {
			out = append(out, footerSegment{text: rest[:pos]})
		}
		out = append(out, footerSegment{field: field})
		rest = rest[pos+len(field)+2:]
	}
	return out
}

func (d *Document) numberingXML() string {
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	fmt.Fprintf(&sb, `<w:numbering xmlns:w="%s">`, nsW)
	abstract := func(id int, format, text string) {
		fmt.Fprintf(&sb, `<w:abstractNum w:abstractNumId="%d"><w:multiLevelType w:val="singleLevel"/>`, id)
		fmt.Fprintf(&sb, `<w:lvl w:ilvl="0"><w:start w:val="1"/><w:numFmt w:val="%s"/><w:lvlText w:val="%s"/><w:lvlJc w:val="left"/>`, format, text)
		sb.WriteString(`<w:pPr><w:ind w:left="720" w:hanging="360"/></w:pPr></w:lvl></w:abstractNum>`)
	}
	abstract(0, "bullet", "•")
	abstract(1, "decimal", "%1.")
	fmt.Fprintf(&sb, `<w:num w:numId="%d"><w:abstractNumId w:val="0"/></w:num>`, bulletNumID)
	for _, id := range d.OrderedLists {
		fmt.Fprintf(&sb, `<w:num w:numId="%d"><w:abstractNumId w:val="1"/><w:lvlOverride w:ilvl="0"><w:startOverride w:val="1"/></w:lvlOverride></w:num>`, id)
	}
	sb.WriteString(`</w:numbering>`)
	return sb.String()
}

func fontProps(font string, halfPoints int, bold bool) string {
	b := ""
	if bold {
		b = `<w:b/><w:bCs/>`
	}
	return fmt.Sprintf(`<w:rPr><w:rFonts w:ascii="%[1]s" w:hAnsi="%[1]s" w:eastAsia="%[1]s" w:cs="%[1]s"/>%[2]s<w:sz w:val="%[3]d"/><w:szCs w:val="%[3]d"/></w:rPr>`,
		font, b, halfPoints)
}

func headingStyle(level, halfPoints int) string {
	return fmt.Sprintf(`<w:style w:type="paragraph" w:styleId="Heading%[1]d"><w:name w:val="heading %[1]d"/><w:basedOn w:val="Normal"/><w:next w:val="Normal"/><w:qFormat/>`+
		`<w:pPr><w:keepNext/><w:spacing w:before="240" w:after="120"/><w:outlineLvl w:val="%[2]d"/></w:pPr>%[3]s</w:style>`,
		level, level-1, fontProps(fontHeading, halfPoints, level == 1))
}

func listStyle(id, name string) string {
	return fmt.Sprintf(`<w:style w:type="paragraph" w:styleId="%s"><w:name w:val="%s"/><w:basedOn w:val="Normal"/><w:qFormat/>%s</w:style>`,
		id, name, fontProps(fontBody, 24, false))
}

var stylesXML = xmlHeader +
	`<w:styles xmlns:w="` + nsW + `">` +
	`<w:docDefaults><w:rPrDefault>` + fontProps(fontBody, 24, false) + `</w:rPrDefault><w:pPrDefault/></w:docDefaults>` +
	`<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/><w:qFormat/>` + fontProps(fontBody, 24, false) + `</w:style>` +
	headingStyle(1, 30) + headingStyle(2, 28) + headingStyle(3, 26) + headingStyle(4, 24) +
	listStyle(StyleListBullet, "List Bullet") +
	listStyle(StyleListNumber, "List Number") +
	`<w:style w:type="paragraph" w:styleId="Caption"><w:name w:val="caption"/><w:basedOn w:val="Normal"/><w:next w:val="Normal"/><w:qFormat/>` +
	`<w:pPr><w:spacing w:before="60" w:after="200"/></w:pPr>` + fontProps(fontBody, 21, false) + `</w:style>` +
	`<w:style w:type="paragraph" w:styleId="Header"><w:name w:val="header"/><w:basedOn w:val="Normal"/>` + fontProps(fontBody, 18, false) + `</w:style>` +
	`<w:style w:type="paragraph" w:styleId="Footer"><w:name w:val="footer"/><w:basedOn w:val="Normal"/>` + fontProps(fontBody, 18, false) + `</w:style>` +
	`<w:style w:type="table" w:default="1" w:styleId="TableNormal"><w:name w:val="Normal Table"/><w:tblPr><w:tblInd w:w="0" w:type="dxa"/>` +
	`<w:tblCellMar><w:top w:w="0" w:type="dxa"/><w:left w:w="108" w:type="dxa"/><w:bottom w:w="0" w:type="dxa"/><w:right w:w="108" w:type="dxa"/></w:tblCellMar></w:tblPr></w:style>` +
	`<w:style w:type="table" w:styleId="TableGrid"><w:name w:val="Table Grid"/><w:basedOn w:val="TableNormal"/><w:tblPr><w:tblBorders>` +
	tableBorder("top") + tableBorder("left") + tableBorder("bottom") + tableBorder("right") + tableBorder("insideH") + tableBorder("insideV") +
	`</w:tblBorders></w:tblPr></w:style>` +
	`</w:styles>`

func tableBorder(side string) string {
	return fmt.Sprintf(`<w:%s w:val="single" w:sz="4" w:space="0" w:color="auto"/>`, side)
}
