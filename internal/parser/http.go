package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/roach88/concha/internal/tree"
)

// AnalyzePath is the syntax-analysis endpoint appended to the service
// address.
const AnalyzePath = "/v1/documents:analyzeSyntax"

// maxResponseSize bounds how much of a parser answer is read.
const maxResponseSize = 4 << 20

type analyzeRequest struct {
	Document     analyzeDocument `json:"document"`
	EncodingType string          `json:"encodingType"`
}

type analyzeDocument struct {
	Type     string `json:"type"`
	Language string `json:"language"`
	Content  string `json:"content"`
}

// HTTPParser parses text with a remote syntax-analysis service.
type HTTPParser struct {
	url      string
	language string
	client   *http.Client
}

// NewHTTPParser creates a parser for the service at baseURL
// ("http://localhost:7000").
func NewHTTPParser(baseURL, language string, timeout time.Duration) *HTTPParser {
	return &HTTPParser{
		url:      baseURL + AnalyzePath,
		language: language,
		client:   &http.Client{Timeout: timeout},
	}
}

// Parse implements engine.Parser.
func (p *HTTPParser) Parse(ctx context.Context, text string) (*tree.Tree, error) {
	payload, err := json.Marshal(analyzeRequest{
		Document:     analyzeDocument{Type: "PLAIN_TEXT", Language: p.language, Content: text},
		EncodingType: "UTF8",
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build parser request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("parser request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read parser response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &tree.ParseError{Input: text, Message: fmt.Sprintf("parser answered %d: %s", resp.StatusCode, bytes.TrimSpace(data))}
	}
	return tree.ParseTokensJSON(data)
}
