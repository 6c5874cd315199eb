package pipeline

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	pdf "github.com/ledongthuc/pdf"
	"github.com/spf13/afero"
	"github.com/yuin/goldmark"

	"roverstatus/internal"
	"roverstatus/internal/util"
)

func ParseSourceKind(value string) (internal.SourceKind, error) {
	switch kind := internal.SourceKind(strings.ToLower(strings.TrimSpace(value))); kind {
	case "", internal.SourceAuto:
		return internal.SourceAuto, nil
	case internal.SourceHTML, internal.SourceText, internal.SourceMarkdown, internal.SourcePDF:
		return kind, nil
	default:
		return "", fmt.Errorf("unsupported input type: %s", value)
	}
}

func DetectKind(path string) internal.SourceKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return internal.SourceHTML
	case ".md", ".markdown":
		return internal.SourceMarkdown
	case ".pdf":
		return internal.SourcePDF
	default:
		return internal.SourceText
	}
}

// BlocksFromInput reads path from fsys and splits it into text blocks in document order.
func BlocksFromInput(fsys afero.Fs, kind internal.SourceKind, path string) ([]string, error) {
	blob, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, err
	}
	if kind == "" || kind == internal.SourceAuto {
		kind = DetectKind(path)
	}
	return BlocksFromBytes(kind, blob)
}

func BlocksFromBytes(kind internal.SourceKind, content []byte) ([]string, error) {
	switch kind {
	case internal.SourceHTML:
		return BlocksFromHTML(content)
	case internal.SourceText:
		return BlocksFromText(string(content)), nil
	case internal.SourceMarkdown:
		return BlocksFromMarkdown(content)
	case internal.SourcePDF:
		return BlocksFromPDF(content)
	default:
		return nil, fmt.Errorf("unsupported input type: %s", kind)
	}
}

// BlocksFromHTML yields the text of every <p> element.
func BlocksFromHTML(content []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	out := []string{}
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		if text := util.NormalizeBlock(p.Text()); text != "" {
			out = append(out, text)
		}
	})
	return out, nil
}

func BlocksFromText(text string) []string {
	paragraphs := util.SplitParagraphs(text)
	out := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		out = append(out, util.NormalizeBlock(p))
	}
	return out
}

func BlocksFromMarkdown(content []byte) ([]string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert(content, &buf); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	return BlocksFromHTML(buf.Bytes())
}

func BlocksFromPDF(content []byte) ([]string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, err
	}

	out := []string{}
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		out = append(out, BlocksFromText(text)...)
	}
	return out, nil
}
