package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"

	"github.com/Alisasanian/PDFsorter/internal/common"
)

// DocumentAI sends page images to a Google Document AI OCR processor.
type DocumentAI struct {
	client *documentai.DocumentProcessorClient
	name   string
	logger *slog.Logger
}

// NewDocumentAI dials the regional endpoint of the configured processor.
func NewDocumentAI(ctx context.Context, cfg common.DocumentAIConf, logger *slog.Logger) (*DocumentAI, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ProjectID == "" || cfg.ProcessorID == "" {
		return nil, fmt.Errorf("document ai: project and processor are required: %w", common.ErrInvalidInput)
	}
	loc := cfg.Location
	if loc == "" {
		loc = "us"
	}
	opts := []option.ClientOption{option.WithEndpoint(fmt.Sprintf("%s-documentai.googleapis.com:443", loc))}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Document AI client: %w", err)
	}
	return &DocumentAI{
		client: client,
		name:   fmt.Sprintf("projects/%s/locations/%s/processors/%s", cfg.ProjectID, loc, cfg.ProcessorID),
		logger: logger,
	}, nil
}

func (d *DocumentAI) Name() string   { return EngineDocumentAI }
func (d *DocumentAI) Family() Family { return FamilyCloud }

func (d *DocumentAI) Close() error { return d.client.Close() }

func (d *DocumentAI) Recognize(ctx context.Context, img Image) (Result, error) {
	mime := img.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}
	req := &documentaipb.ProcessRequest{
		Name: d.name,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{Content: img.Data, MimeType: mime},
		},
		SkipHumanReview: true,
	}
	resp, err := d.client.ProcessDocument(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("failed to process document: %w", err)
	}
	if resp.GetDocument() == nil {
		return Result{}, errors.New("document ai returned no document")
	}
	return newResult(documentLines(resp.GetDocument())), nil
}

// documentLines returns the text of every detected line, page by page. Documents
// without layout fall back to the full text.
func documentLines(doc *documentaipb.Document) []string {
	var out []string
	for _, p := range doc.GetPages() {
		for _, l := range p.GetLines() {
			if s := strings.TrimSpace(textFromLayout(l.GetLayout(), doc.GetText())); s != "" {
				out = append(out, s)
			}
		}
	}
	if len(out) == 0 && strings.TrimSpace(doc.GetText()) != "" {
		out = append(out, doc.GetText())
	}
	return out
}

func textFromLayout(layout *documentaipb.Document_Page_Layout, fullText string) string {
	if layout == nil || layout.TextAnchor == nil {
		return ""
	}
	runes := []rune(fullText)
	var b strings.Builder
	for _, seg := range layout.TextAnchor.TextSegments {
		start, end := int(seg.StartIndex), int(seg.EndIndex)
		start = max(start, 0)
		end = min(end, len(runes))
		start = min(start, end)
		b.WriteString(string(runes[start:end]))
	}
	return b.String()
}
