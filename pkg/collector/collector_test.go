package collector

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nerdneilsfield/go-page-translator/pkg/textfilter"
)

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	return New(zaptest.NewLogger(t), textfilter.NewFilter(textfilter.DefaultConfig()), DefaultOptions())
}

func parseHTML(t *testing.T, fragment string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	require.NoError(t, err)
	return doc
}

func textsOf(items []*TextItem) []string {
	texts := make([]string, 0, len(items))
	for _, item := range items {
		texts = append(texts, item.Text)
	}
	return texts
}

func TestCollector_Collect_Basic(t *testing.T) {
	c := newTestCollector(t)
	doc := parseHTML(t, `<div><p>Hello beautiful world</p><span>Another piece of text</span></div>`)

	items := c.Collect(doc)

	assert.Contains(t, textsOf(items), "Hello beautiful world")
	assert.Contains(t, textsOf(items), "Another piece of text")
	for _, item := range items {
		assert.False(t, item.IsAttribute())
		assert.Equal(t, TextTypeContent, item.Type)
	}
}

func TestCollector_Collect_PrunesSkipTags(t *testing.T) {
	c := newTestCollector(t)
	doc := parseHTML(t, `
		<div>
			<script>var greeting = "do not translate me";</script>
			<style>.cls { color: red; }</style>
			<pre>preformatted block content</pre>
			<p>visible paragraph content</p>
		</div>`)

	items := c.Collect(doc)

	texts := textsOf(items)
	assert.Contains(t, texts, "visible paragraph content")
	for _, text := range texts {
		assert.NotContains(t, text, "do not translate me")
		assert.NotContains(t, text, "preformatted block content")
		assert.NotContains(t, text, "color: red")
	}
}

func TestCollector_Collect_Attributes(t *testing.T) {
	c := newTestCollector(t)
	doc := parseHTML(t, `
		<img src="photo.jpg" alt="A scenic mountain view">
		<input type="text" placeholder="Enter your name here">
		<abbr title="HyperText Markup Language">HTML</abbr>`)

	items := c.Collect(doc)

	var alt, placeholder, title *TextItem
	for _, item := range items {
		switch item.AttrName {
		case "alt":
			alt = item
		case "placeholder":
			placeholder = item
		case "title":
			title = item
		}
	}

	// img 和 input 虽在剪枝列表中，其属性仍应被提取
	require.NotNil(t, alt)
	assert.Equal(t, "A scenic mountain view", alt.Text)
	assert.Equal(t, TextTypeImageAlt, alt.Type)
	assert.Equal(t, PriorityLow, alt.Priority)

	require.NotNil(t, placeholder)
	assert.Equal(t, TextTypeFormLabel, placeholder.Type)
	assert.Equal(t, PriorityHigh, placeholder.Priority)

	require.NotNil(t, title)
	assert.Equal(t, TextTypeTooltip, title.Type)
}

func TestCollector_Collect_TranslateNo(t *testing.T) {
	c := newTestCollector(t)
	doc := parseHTML(t, `
		<div translate="no"><p>brand name stays verbatim</p></div>
		<p>normal translatable content</p>`)

	items := c.Collect(doc)

	texts := textsOf(items)
	assert.Contains(t, texts, "normal translatable content")
	assert.NotContains(t, texts, "brand name stays verbatim")
}

func TestCollector_Collect_Dedupe(t *testing.T) {
	c := newTestCollector(t)
	doc := parseHTML(t, `
		<p>repeated fragment here</p>
		<p>repeated fragment here</p>
		<p>repeated fragment here</p>`)

	items := c.Collect(doc)

	count := 0
	for _, item := range items {
		if item.Text == "repeated fragment here" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestCollector_Collect_SortOrder(t *testing.T) {
	c := newTestCollector(t)
	doc := parseHTML(t, `
		<html><head><title>Page Title Goes Here</title></head>
		<body>
			<a href="/about">About our company</a>
			<p>some short text bit</p>
			<p>` + strings.Repeat("long translatable sentence with many words ", 5) + `</p>
		</body></html>`)

	items := c.Collect(doc)
	require.NotEmpty(t, items)

	// 优先级必须单调不增
	for i := 1; i < len(items); i++ {
		assert.GreaterOrEqual(t, items[i-1].Priority, items[i].Priority)
	}

	// 标题在最前
	assert.Equal(t, TextTypeTitle, items[0].Type)
	assert.Equal(t, PriorityCritical, items[0].Priority)
}

func TestCollector_Collect_TitleInsideHead(t *testing.T) {
	c := newTestCollector(t)
	doc := parseHTML(t, `
		<html><head>
			<title>Document Title Text</title>
			<meta name="description" content="hidden metadata text">
			<style>.hidden { display: none; }</style>
			<script>var secret = "script body text";</script>
		</head>
		<body><p>body paragraph content</p></body></html>`)

	items := c.Collect(doc)
	texts := textsOf(items)

	// head 整体剪枝，但 title 仍被收集为 Critical
	assert.Contains(t, texts, "Document Title Text")
	assert.Contains(t, texts, "body paragraph content")
	for _, item := range items {
		if item.Text == "Document Title Text" {
			assert.Equal(t, TextTypeTitle, item.Type)
			assert.Equal(t, PriorityCritical, item.Priority)
		}
	}

	// head 下的其他内容不收集
	for _, text := range texts {
		assert.NotContains(t, text, "script body text")
		assert.NotContains(t, text, "display: none")
	}
}

func TestCollector_Collect_DoesNotMutateDOM(t *testing.T) {
	c := newTestCollector(t)
	fragment := `<div><p>pure extraction only</p></div>`
	doc := parseHTML(t, fragment)

	before, err := doc.Html()
	require.NoError(t, err)

	c.Collect(doc)

	after, err := doc.Html()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestCollector_Collect_DepthCap(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxDepth = 3
	c := New(zaptest.NewLogger(t), textfilter.NewFilter(textfilter.DefaultConfig()), opts)

	var sb strings.Builder
	for i := 0; i < 10; i++ {
		sb.WriteString("<div>")
	}
	sb.WriteString("<p>buried too deep to reach</p>")
	for i := 0; i < 10; i++ {
		sb.WriteString("</div>")
	}
	doc := parseHTML(t, sb.String())

	items := c.Collect(doc)
	assert.NotContains(t, textsOf(items), "buried too deep to reach")
}

func TestComplexityWeight_Range(t *testing.T) {
	samples := []struct {
		text      string
		textType  TextType
		depth     int
		parentTag string
	}{
		{"short", TextTypeContent, 1, "p"},
		{strings.Repeat("very long sentence with numbers 123456789 ", 20), TextTypeContent, 25, "code"},
		{"BUTTON LABEL", TextTypeButton, 2, "button"},
		{"Heading Text", TextTypeTitle, 3, "h1"},
		{"contact me at someone@example.com please", TextTypeContent, 5, "p"},
		{"Fish &amp; Chips", TextTypeContent, 4, "td"},
	}

	for _, s := range samples {
		w := ComplexityWeight(s.text, s.textType, s.depth, s.parentTag)
		assert.GreaterOrEqual(t, w, 0.5, "text: %q", s.text)
		assert.LessOrEqual(t, w, 3.0, "text: %q", s.text)
	}
}

func TestPriorityFor(t *testing.T) {
	assert.Equal(t, PriorityCritical, PriorityFor(TextTypeTitle, 5))
	assert.Equal(t, PriorityHigh, PriorityFor(TextTypeButton, 5))
	assert.Equal(t, PriorityHigh, PriorityFor(TextTypeLink, 5))
	assert.Equal(t, PriorityHigh, PriorityFor(TextTypeTooltip, 5))
	assert.Equal(t, PriorityHigh, PriorityFor(TextTypeContent, 150))
	assert.Equal(t, PriorityNormal, PriorityFor(TextTypeContent, 50))
	assert.Equal(t, PriorityLow, PriorityFor(TextTypeContent, 10))
	assert.Equal(t, PriorityLow, PriorityFor(TextTypeImageAlt, 50))
	assert.Equal(t, PriorityLow, PriorityFor(TextTypeAttribute, 50))
}

func TestTextItem_EffectiveSize(t *testing.T) {
	item := &TextItem{Text: "hello", ComplexityWeight: 1.5}
	assert.InDelta(t, 7.5, item.EffectiveSize(), 1e-9)
}
