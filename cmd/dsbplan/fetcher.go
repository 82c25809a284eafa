package main

import (
	"context"
	"strings"

	"github.com/schooldashboard/dsbplan/parser"
)

// fetcher parses a detail page from a URL or a local file.
type fetcher struct {
	parser *parser.Parser
}

func newFetcher(p *parser.Parser) *fetcher {
	return &fetcher{parser: p}
}

// fetch treats anything that is not an http(s) URL as a file path.
func (f *fetcher) fetch(ctx context.Context, urlOrPath string) (*parser.Document, error) {
	if !strings.HasPrefix(urlOrPath, "http://") && !strings.HasPrefix(urlOrPath, "https://") {
		return f.parser.FetchFile(urlOrPath)
	}
	return f.parser.Fetch(ctx, urlOrPath)
}
