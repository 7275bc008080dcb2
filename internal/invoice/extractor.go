package invoice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gen2brain/go-fitz"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ErrNoExtractableText indicates the PDF yielded no text to process.
var ErrNoExtractableText = errors.New("no text could be extracted from the PDF file")

// Completer produces a completion for an extraction prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// OpenAICompleter calls the chat completions API.
type OpenAICompleter struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAICompleter creates a completer over the OpenAI API.
func NewOpenAICompleter(apiKey, model string, temperature float32) *OpenAICompleter {
	return &OpenAICompleter{
		client:      openai.NewClient(apiKey),
		model:       model,
		temperature: temperature,
	}
}

func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an expert invoice data extraction system. Always respond with valid JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in completion response")
	}
	return resp.Choices[0].Message.Content, nil
}

// Metadata describes one extraction attempt.
type Metadata struct {
	Filename    string    `json:"filename"`
	FileSize    int64     `json:"file_size"`
	ProcessedAt time.Time `json:"processed_at"`
	Model       string    `json:"model_used"`
	TextLength  int       `json:"text_length"`
	Status      string    `json:"processing_status"`
	Error       string    `json:"error_message,omitempty"`
}

// Extractor turns text-based invoice PDFs into structured data via an
// LLM completion.
type Extractor struct {
	completer Completer
	model     string
	timeout   time.Duration
	logger    *zap.Logger
}

// NewExtractor creates an invoice extractor. The model name is
// recorded in metadata only; zero timeout disables the deadline.
func NewExtractor(completer Completer, model string, timeout time.Duration, logger *zap.Logger) *Extractor {
	return &Extractor{
		completer: completer,
		model:     model,
		timeout:   timeout,
		logger:    logger,
	}
}

// ExtractFromPDF reads the PDF text, prompts the model, and parses the
// structured response. Metadata is returned on failures too.
func (e *Extractor) ExtractFromPDF(ctx context.Context, pdfPath, filename string, size int64) (*InvoiceExtraction, *Metadata, error) {
	meta := &Metadata{
		Filename:    filename,
		FileSize:    size,
		ProcessedAt: time.Now(),
		Model:       e.model,
		Status:      "failed",
	}

	text, err := extractText(pdfPath)
	if err != nil {
		meta.Error = err.Error()
		return nil, meta, err
	}

	return e.ExtractFromText(ctx, text, meta)
}

// ExtractFromText prompts the model with already extracted text. The
// metadata is updated in place and returned for convenience.
func (e *Extractor) ExtractFromText(ctx context.Context, text string, meta *Metadata) (*InvoiceExtraction, *Metadata, error) {
	if meta == nil {
		meta = &Metadata{ProcessedAt: time.Now(), Model: e.model, Status: "failed"}
	}
	meta.TextLength = len(text)

	if strings.TrimSpace(text) == "" {
		meta.Error = ErrNoExtractableText.Error()
		return nil, meta, ErrNoExtractableText
	}

	e.logger.Info("Processing invoice text",
		zap.String("filename", meta.Filename),
		zap.Int("text_length", len(text)))

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	raw, err := e.completer.Complete(ctx, buildPrompt(text))
	if err != nil {
		meta.Error = err.Error()
		return nil, meta, err
	}

	result, err := ParseExtraction(raw)
	if err != nil {
		e.logger.Error("Failed to parse extraction response",
			zap.Error(err),
			zap.String("response_prefix", truncate(raw, 500)))
		meta.Error = err.Error()
		return nil, meta, err
	}

	meta.Status = "success"
	meta.Error = ""

	e.logger.Info("Invoice extracted",
		zap.String("filename", meta.Filename),
		zap.String("invoice_number", string(result.InvoiceNumber)),
		zap.Int("items", len(result.Items)))

	return result, meta, nil
}

// extractText concatenates all page text with page markers.
func extractText(pdfPath string) (string, error) {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	var sb strings.Builder
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			return "", fmt.Errorf("failed to read page %d: %w", i+1, err)
		}
		fmt.Fprintf(&sb, "\n--- Page %d ---\n", i+1)
		sb.WriteString(text)
	}
	return strings.TrimSpace(sb.String()), nil
}

func buildPrompt(invoiceText string) string {
	return fmt.Sprintf(`You are an expert invoice data extraction system. Extract structured information from the following invoice text and return it as a valid JSON object.

EXTRACTION RULES:
1. Extract ALL available information from the invoice
2. If a field is not found or unclear, use an empty string ""
3. For numerical values, extract only the number (remove currency symbols like ₹, $, etc.)
4. For dates, use DD/MM/YYYY or DD-MM-YYYY format
5. For GST numbers, extract the complete 15-digit alphanumeric code
6. For items array, include ALL line items found in the invoice
7. Be precise and accurate - double-check all extracted values
8. Return ONLY the JSON object, no additional text

REQUIRED JSON STRUCTURE:
%s

INVOICE TEXT TO PROCESS:
%s

Extract the information and return the JSON object:`, SchemaJSON(), invoiceText)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
