package preview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allanpk716/persodocs/internal/domain"
	"github.com/allanpk716/persodocs/internal/testutil"
	"github.com/allanpk716/persodocs/pkg/docx"
)

func size(pt float64) *float64 { return &pt }

func TestRenderer_RenderStyledText(t *testing.T) {
	renderer := NewRenderer("")

	tests := []struct {
		name     string
		text     string
		style    docx.RunStyle
		expected string
	}{
		{
			name:     "bold default font",
			text:     "Hi",
			style:    docx.RunStyle{Bold: true},
			expected: `<span style="font-family:Arial;"><strong>Hi</strong></span>`,
		},
		{
			name:     "plain",
			text:     "Hi",
			expected: `<span style="font-family:Arial;">Hi</span>`,
		},
		{
			name:  "all decorations",
			text:  "Hi",
			style: docx.RunStyle{Bold: true, Italic: true, Underline: true, SizePt: size(14), Color: "FF00aa", FontFamily: "Calibri"},
			expected: `<span style="font-family:Calibri;"><span style="color:#ff00aa"><span style="font-size:14px">` +
				`<u><em><strong>Hi</strong></em></u></span></span></span>`,
		},
		{
			name:     "fractional size",
			text:     "x",
			style:    docx.RunStyle{SizePt: size(10.5)},
			expected: `<span style="font-family:Arial;"><span style="font-size:10.5px">x</span></span>`,
		},
		{
			name:     "zero padded color",
			text:     "x",
			style:    docx.RunStyle{Color: "00000A"},
			expected: `<span style="font-family:Arial;"><span style="color:#00000a">x</span></span>`,
		},
		{
			name:     "empty text keeps wrappers",
			text:     "",
			style:    docx.RunStyle{Italic: true},
			expected: `<span style="font-family:Arial;"><em></em></span>`,
		},
		{
			name:     "text escaped",
			text:     "a<b>&c",
			expected: `<span style="font-family:Arial;">a&lt;b&gt;&amp;c</span>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := renderer.RenderStyledText(tt.text, tt.style)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestRenderer_StyleOrderIsFixed(t *testing.T) {
	renderer := NewRenderer("")
	a, err := renderer.RenderStyledText("x", docx.RunStyle{Underline: true, Bold: true})
	require.NoError(t, err)
	b, err := renderer.RenderStyledText("x", docx.RunStyle{Bold: true, Underline: true})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, `<span style="font-family:Arial;"><u><strong>x</strong></u></span>`, a)
}

func TestRenderer_MalformedColor(t *testing.T) {
	renderer := NewRenderer("")

	for _, color := range []string{"ZZZZZZ", "FFF", "FF00FF00"} {
		t.Run(color, func(t *testing.T) {
			_, err := renderer.RenderStyledText("x", docx.RunStyle{Color: color})
			var se *domain.StyleError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, "color", se.Attribute)
			assert.Equal(t, color, se.Value)
		})
	}
}

func TestRenderer_CustomDefaultFont(t *testing.T) {
	out, err := NewRenderer("Times New Roman").RenderStyledText("x", docx.RunStyle{})
	require.NoError(t, err)
	assert.Equal(t, `<span style="font-family:Times New Roman;">x</span>`, out)
}

func TestAlignmentClass(t *testing.T) {
	tests := map[docx.Alignment]string{
		docx.AlignNone:    "",
		docx.AlignLeft:    "",
		docx.AlignCenter:  "text-center",
		docx.AlignRight:   "text-right",
		docx.AlignJustify: "text-justify",
	}
	for alignment, expected := range tests {
		assert.Equal(t, expected, AlignmentClass(alignment), alignment.String())
	}
}

func TestRenderer_RenderDocument(t *testing.T) {
	body := testutil.P("center", testutil.R("<w:b/>", "Hi"), testutil.R("", " there")) +
		testutil.P("", testutil.R(`<w:color w:val="XYZ"/>`, "bad color"), testutil.R("<w:i/>", "ok")) +
		testutil.P("left")
	doc, err := docx.Load(testutil.BuildDocx(t, testutil.Document(body)))
	require.NoError(t, err)

	fragments := NewRenderer("").RenderDocument(doc)
	require.Len(t, fragments, 3)

	assert.Equal(t,
		`<p class="text-center"><span style="font-family:Arial;"><strong>Hi</strong></span>`+
			`<span style="font-family:Arial;"> there</span></p>`,
		fragments[0])
	assert.Equal(t,
		`<p class="">bad color<span style="font-family:Arial;"><em>ok</em></span></p>`,
		fragments[1], "样式无效的文本块降级为纯文本")
	assert.Equal(t, `<p class=""></p>`, fragments[2])
}
