package docx

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Alignment 段落对齐方式
type Alignment int

const (
	AlignNone Alignment = iota
	AlignLeft
	AlignCenter
	AlignRight
	AlignJustify
)

func (a Alignment) String() string {
	switch a {
	case AlignLeft:
		return "left"
	case AlignCenter:
		return "center"
	case AlignRight:
		return "right"
	case AlignJustify:
		return "justify"
	default:
		return ""
	}
}

// Paragraph 段落，对应 w:p
type Paragraph struct {
	el   *etree.Element
	part *part
}

// Alignment 读取 w:pPr/w:jc，未设置或不认识的值返回 AlignNone
func (p *Paragraph) Alignment() Alignment {
	pPr := p.el.SelectElement("w:pPr")
	if pPr == nil {
		return AlignNone
	}
	jc := pPr.SelectElement("w:jc")
	if jc == nil {
		return AlignNone
	}
	switch jc.SelectAttrValue("w:val", "") {
	case "left", "start":
		return AlignLeft
	case "center":
		return AlignCenter
	case "right", "end":
		return AlignRight
	case "both":
		return AlignJustify
	default:
		return AlignNone
	}
}

// Runs 返回段落的直接子文本块
func (p *Paragraph) Runs() []*Run {
	var runs []*Run
	for _, el := range p.el.SelectElements("w:r") {
		runs = append(runs, &Run{el: el, part: p.part})
	}
	return runs
}

// Text 拼接所有文本块的文本
func (p *Paragraph) Text() string {
	var sb strings.Builder
	for _, r := range p.Runs() {
		sb.WriteString(r.Text())
	}
	return sb.String()
}

// Run 文本块，对应 w:r，块内文本共享同一组样式
type Run struct {
	el   *etree.Element
	part *part
}

// Text 返回文本块的文本，w:tab 记为 \t，换行记为 \n
func (r *Run) Text() string {
	var sb strings.Builder
	for _, child := range r.el.ChildElements() {
		if child.Space != r.el.Space {
			continue
		}
		switch child.Tag {
		case "t":
			sb.WriteString(child.Text())
		case "tab":
			sb.WriteByte('\t')
		case "br":
			if isLineBreak(child) {
				sb.WriteByte('\n')
			}
		case "cr":
			sb.WriteByte('\n')
		case "noBreakHyphen":
			sb.WriteByte('-')
		}
	}
	return sb.String()
}

// SetText 替换文本块的文本内容，保留 w:rPr、图片和分页符等其他子元素。
//
// 文本相同时不做任何修改。否则原有的文本元素（w:t、w:tab、w:br、w:cr、
// w:noBreakHyphen）全部移除，新文本在第一个文本元素的位置重建，
// 只生成 w:t、w:tab 和 w:br：w:cr 变为 w:br，w:noBreakHyphen 变为普通的 "-"。
// 文本元素之间夹着的其他子元素会排到新文本之后。
func (r *Run) SetText(text string) {
	if text == r.Text() {
		return
	}

	insertAt := -1
	for _, child := range r.el.ChildElements() {
		if !isTextContent(r.el.Space, child) {
			continue
		}
		if insertAt < 0 {
			insertAt = child.Index()
		}
		r.el.RemoveChild(child)
	}
	if insertAt < 0 {
		insertAt = len(r.el.Child)
	}

	for i, el := range buildTextContent(r.el.Space, text) {
		r.el.InsertChildAt(insertAt+i, el)
	}
	r.part.dirty = true
}

func isTextContent(space string, el *etree.Element) bool {
	if el.Space != space {
		return false
	}
	switch el.Tag {
	case "t", "tab", "cr", "noBreakHyphen":
		return true
	case "br":
		return isLineBreak(el)
	default:
		return false
	}
}

func isLineBreak(br *etree.Element) bool {
	switch br.SelectAttrValue("w:type", "") {
	case "", "textWrapping":
		return true
	default:
		return false
	}
}

// buildTextContent 把文本拆成 w:t / w:tab / w:br 元素
func buildTextContent(space, text string) []*etree.Element {
	var elements []*etree.Element
	var segment strings.Builder

	flush := func() {
		if segment.Len() == 0 {
			return
		}
		t := etree.NewElement(qualify(space, "t"))
		s := segment.String()
		if strings.TrimSpace(s) != s {
			t.CreateAttr("xml:space", "preserve")
		}
		t.SetText(s)
		elements = append(elements, t)
		segment.Reset()
	}

	for _, ch := range text {
		switch ch {
		case '\t':
			flush()
			elements = append(elements, etree.NewElement(qualify(space, "tab")))
		case '\n':
			flush()
			elements = append(elements, etree.NewElement(qualify(space, "br")))
		default:
			segment.WriteRune(ch)
		}
	}
	flush()
	return elements
}

func qualify(space, tag string) string {
	if space == "" {
		return tag
	}
	return space + ":" + tag
}

// RunStyle 文本块上直接设置的样式
type RunStyle struct {
	Bold       bool
	Italic     bool
	Underline  bool
	SizePt     *float64
	Color      string // w:color 的原始值，未设置或 auto 时为空
	FontFamily string // 未设置时为空
}

// Style 读取 w:rPr 中的样式，不解析样式表继承
func (r *Run) Style() RunStyle {
	var style RunStyle
	rPr := r.el.SelectElement("w:rPr")
	if rPr == nil {
		return style
	}

	style.Bold = toggleOn(rPr.SelectElement("w:b"))
	style.Italic = toggleOn(rPr.SelectElement("w:i"))

	if u := rPr.SelectElement("w:u"); u != nil {
		style.Underline = u.SelectAttrValue("w:val", "single") != "none"
	}

	if sz := rPr.SelectElement("w:sz"); sz != nil {
		// w:sz 的单位是半磅
		if half, err := strconv.ParseFloat(sz.SelectAttrValue("w:val", ""), 64); err == nil {
			pt := half / 2
			style.SizePt = &pt
		}
	}

	if color := rPr.SelectElement("w:color"); color != nil {
		if val := color.SelectAttrValue("w:val", ""); !strings.EqualFold(val, "auto") {
			style.Color = val
		}
	}

	if fonts := rPr.SelectElement("w:rFonts"); fonts != nil {
		style.FontFamily = fonts.SelectAttrValue("w:ascii", "")
		if style.FontFamily == "" {
			style.FontFamily = fonts.SelectAttrValue("w:hAnsi", "")
		}
	}

	return style
}

func toggleOn(el *etree.Element) bool {
	if el == nil {
		return false
	}
	switch strings.ToLower(el.SelectAttrValue("w:val", "true")) {
	case "true", "1", "on":
		return true
	default:
		return false
	}
}
