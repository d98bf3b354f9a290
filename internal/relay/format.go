package relay

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// Format selects how model output is rewritten before sending.
type Format string

const (
	// FormatWhatsApp renders Markdown as WhatsApp markup.
	FormatWhatsApp Format = "whatsapp"
	// FormatPlain strips Markdown.
	FormatPlain Format = "plain"
	// FormatRaw sends the text unchanged.
	FormatRaw Format = "raw"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatWhatsApp, FormatPlain, FormatRaw:
		return f, nil
	case "":
		return FormatWhatsApp, nil
	default:
		return "", fmt.Errorf("unknown reply format %q", s)
	}
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.Strikethrough))

var extraBlankLines = regexp.MustCompile(`\n{3,}`)

// Render rewrites src for the given format.
func Render(f Format, src string) string {
	if f == FormatRaw {
		return src
	}
	source := []byte(src)
	doc := markdown.Parser().Parse(text.NewReader(source))

	w := &waWriter{src: source, markup: f == FormatWhatsApp}
	ast.Walk(doc, w.walk)

	out := extraBlankLines.ReplaceAllString(w.sb.String(), "\n\n")
	lines := strings.Split(out, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

type listState struct {
	ordered bool
	next    int
}

type waWriter struct {
	src    []byte
	markup bool
	sb     strings.Builder
	lists  []listState
	links  []int
}

func (w *waWriter) mark(s string) {
	if w.markup {
		w.sb.WriteString(s)
	}
}

func (w *waWriter) endBlock() {
	w.sb.WriteString("\n")
	if len(w.lists) == 0 {
		w.sb.WriteString("\n")
	}
}

func (w *waWriter) writeLines(n ast.Node) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		w.sb.Write(seg.Value(w.src))
	}
}

func (w *waWriter) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Document:

	case *ast.Paragraph, *ast.TextBlock:
		if !entering {
			w.endBlock()
		}

	case *ast.Heading:
		if entering {
			w.mark("*")
		} else {
			w.mark("*")
			w.endBlock()
		}

	case *ast.Blockquote:
		if entering {
			w.sb.WriteString("> ")
		}

	case *ast.ThematicBreak:
		if entering {
			w.sb.WriteString("---")
			w.endBlock()
		}

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		if entering {
			w.mark("```\n")
			w.writeLines(n)
			w.mark("```")
			w.endBlock()
		}
		return ast.WalkSkipChildren, nil

	case *ast.HTMLBlock:
		if entering {
			w.writeLines(n)
			w.endBlock()
		}
		return ast.WalkSkipChildren, nil

	case *ast.List:
		if entering {
			w.lists = append(w.lists, listState{ordered: node.IsOrdered(), next: node.Start})
		} else {
			w.lists = w.lists[:len(w.lists)-1]
			if len(w.lists) == 0 {
				w.sb.WriteString("\n")
			}
		}

	case *ast.ListItem:
		if entering && len(w.lists) > 0 {
			top := &w.lists[len(w.lists)-1]
			w.sb.WriteString(strings.Repeat("  ", len(w.lists)-1))
			if top.ordered {
				fmt.Fprintf(&w.sb, "%d. ", top.next)
				top.next++
			} else {
				w.sb.WriteString("• ")
			}
		}

	case *ast.Text:
		if entering {
			w.sb.Write(node.Segment.Value(w.src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				w.sb.WriteString("\n")
			}
		}

	case *ast.String:
		if entering {
			w.sb.Write(node.Value)
		}

	case *ast.Emphasis:
		if node.Level >= 2 {
			w.mark("*")
		} else {
			w.mark("_")
		}

	case *east.Strikethrough:
		w.mark("~")

	case *ast.CodeSpan:
		w.mark("`")

	case *ast.Link:
		w.linkBoundary(entering, string(node.Destination))

	case *ast.Image:
		w.linkBoundary(entering, string(node.Destination))

	case *ast.AutoLink:
		if entering {
			w.sb.Write(node.URL(w.src))
		}
		return ast.WalkSkipChildren, nil

	case *ast.RawHTML:
		if entering {
			for i := 0; i < node.Segments.Len(); i++ {
				seg := node.Segments.At(i)
				w.sb.Write(seg.Value(w.src))
			}
		}
		return ast.WalkSkipChildren, nil
	}
	return ast.WalkContinue, nil
}

// linkBoundary renders [label](dest) as "label (dest)", or just dest when the
// label is the address itself.
func (w *waWriter) linkBoundary(entering bool, dest string) {
	if entering {
		w.links = append(w.links, w.sb.Len())
		return
	}
	start := w.links[len(w.links)-1]
	w.links = w.links[:len(w.links)-1]

	label := w.sb.String()[start:]
	if dest == "" || label == dest {
		return
	}
	if strings.TrimSpace(label) == "" {
		w.sb.WriteString(dest)
		return
	}
	w.sb.WriteString(" (" + dest + ")")
}

// Truncate shortens s to at most max characters, ending with an ellipsis when
// anything was cut. max <= 0 disables truncation.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	runes := []rune(s)
	cut := strings.TrimRight(string(runes[:max-1]), " \t\n")
	return cut + "…"
}
