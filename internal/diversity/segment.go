package diversity

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// minCandidateChars drops heading chunks too short to be a real idea.
const minCandidateChars = 30

// maxFieldChars caps an extracted field value.
const maxFieldChars = 300

// maxNameChars caps a candidate name.
const maxNameChars = 120

type field int

const (
	fieldNone field = iota
	fieldAudience
	fieldBusinessModel
	fieldTechnology
)

const labels = `target\s*market|target\s*audience|target\s*customers?|audience|business\s*model|revenue\s*model|proposed\s*solution|solution|technology|tech\s*stack`

// labelPattern matches "Label: value" lines, with or without bold markers.
var labelPattern = regexp.MustCompile(`(?i)^[\s*_-]*(` + labels + `)[\s*_]*:[\s*_]*(.*)$`)

// headingLabelPattern matches a heading that is just a field label.
var headingLabelPattern = regexp.MustCompile(`(?i)^(` + labels + `)\s*:?$`)

var numberingPattern = regexp.MustCompile(`(?i)^\s*(?:\d+[.)]|idea\s*\d*\s*[:.-])\s*`)

func labelField(label string) field {
	l := strings.ToLower(strings.Join(strings.Fields(label), " "))
	switch {
	case strings.Contains(l, "target"), l == "audience":
		return fieldAudience
	case strings.Contains(l, "model"):
		return fieldBusinessModel
	default:
		return fieldTechnology
	}
}

// Segment splits a markdown document into candidates. Each heading at the
// candidate level opens a new candidate; labelled lines such as
// "**Business Model:** ..." or a deeper heading named after a field fill its
// fields. Text before the first candidate heading is ignored.
func Segment(markdown string) []Candidate {
	source := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	level := candidateLevel(doc)
	if level == 0 {
		c := &builder{}
		for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
			c.addBlock(n, source)
		}
		if c.size() <= minCandidateChars {
			return nil
		}
		return []Candidate{c.candidate()}
	}

	var out []Candidate
	var cur *builder
	flush := func() {
		if cur != nil && cur.size() > minCandidateChars {
			out = append(out, cur.candidate())
		}
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok && h.Level == level {
			flush()
			cur = &builder{name: headingName(h, source)}
			continue
		}
		if cur == nil {
			continue
		}
		if h, ok := n.(*ast.Heading); ok {
			if h.Level < level {
				flush()
				cur = nil
				continue
			}
			cur.addHeading(h, source)
			continue
		}
		cur.addBlock(n, source)
	}
	flush()
	return out
}

// candidateLevel picks the shallowest heading level (2 to 4) used more than
// once, falling back to the shallowest one present. 0 means no headings.
func candidateLevel(doc ast.Node) int {
	counts := make(map[int]int)
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok && h.Level >= 2 && h.Level <= 4 {
			counts[h.Level]++
		}
	}
	for l := 2; l <= 4; l++ {
		if counts[l] > 1 {
			return l
		}
	}
	for l := 2; l <= 4; l++ {
		if counts[l] > 0 {
			return l
		}
	}
	return 0
}

func headingName(h *ast.Heading, source []byte) string {
	name := cleanInline(string(lineText(h, source)))
	name = numberingPattern.ReplaceAllString(name, "")
	return truncate(strings.TrimSpace(name), maxNameChars)
}

// lineText returns the raw source of a leaf block.
func lineText(n ast.Node, source []byte) []byte {
	var b []byte
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b = append(b, seg.Value(source)...)
	}
	return b
}

// leafLines collects the raw lines of every leaf block under n.
func leafLines(n ast.Node, source []byte) []string {
	var out []string
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || node.Type() != ast.TypeBlock || node.Lines().Len() == 0 {
			return ast.WalkContinue, nil
		}
		lines := node.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			out = append(out, strings.TrimRight(string(seg.Value(source)), "\r\n"))
		}
		return ast.WalkSkipChildren, nil
	})
	return out
}

func cleanInline(s string) string {
	s = strings.NewReplacer("**", "", "__", "", "*", "", "`", "", "#", "").Replace(s)
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

type builder struct {
	name    string
	body    strings.Builder
	fields  [4]strings.Builder
	current field
}

func (b *builder) size() int {
	return len(b.name) + b.body.Len()
}

func (b *builder) addHeading(h *ast.Heading, source []byte) {
	title := cleanInline(string(lineText(h, source)))
	b.body.WriteString(title)
	b.body.WriteByte('\n')
	b.current = fieldNone
	if m := headingLabelPattern.FindStringSubmatch(title); m != nil {
		b.current = labelField(m[1])
	}
}

func (b *builder) addBlock(n ast.Node, source []byte) {
	for _, line := range leafLines(n, source) {
		b.body.WriteString(line)
		b.body.WriteByte('\n')

		if m := labelPattern.FindStringSubmatch(line); m != nil {
			b.current = labelField(m[1])
			b.appendField(m[2])
			continue
		}
		if b.current != fieldNone {
			b.appendField(line)
		}
	}
}

func (b *builder) appendField(s string) {
	s = cleanInline(s)
	if s == "" {
		return
	}
	f := &b.fields[b.current]
	if f.Len() > 0 {
		f.WriteByte(' ')
	}
	f.WriteString(s)
}

func (b *builder) candidate() Candidate {
	name := b.name
	if name == "" {
		for _, line := range strings.Split(b.body.String(), "\n") {
			if strings.TrimSpace(line) != "" {
				name = truncate(cleanInline(line), maxNameChars)
				break
			}
		}
	}
	return Candidate{
		Name:          name,
		Audience:      truncate(b.fields[fieldAudience].String(), maxFieldChars),
		BusinessModel: truncate(b.fields[fieldBusinessModel].String(), maxFieldChars),
		Technology:    truncate(b.fields[fieldTechnology].String(), maxFieldChars),
	}
}
