package certificate

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
)

// GeneratorConfig carries everything the renderer needs. All fields
// are injected at construction, nothing is read from process state.
type GeneratorConfig struct {
	// BackgroundURL points at the certificate background image on the
	// remote asset store.
	BackgroundURL string
	// OutputDir is where rendered PDFs are written.
	OutputDir string
	// VerifyBaseURL is the public verification endpoint; the unique id
	// is appended to it and embedded in the PDF as a link.
	VerifyBaseURL string
	// FetchTimeout bounds the background image download.
	FetchTimeout time.Duration
}

type Generator struct {
	cfg    GeneratorConfig
	client *http.Client
}

// Artifact is the result of one successful generation.
type Artifact struct {
	UniqueID     string
	FileName     string
	FileLocation string
	// PDF holds the rendered bytes so callers can attach them to mail
	// without re-reading the file.
	PDF []byte
}

func NewGenerator(cfg GeneratorConfig) *Generator {
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = 15 * time.Second
	}
	return &Generator{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.FetchTimeout},
	}
}

// Generate renders a completion certificate for userName in category
// and writes it under OutputDir. The remote background must download
// successfully; any failure aborts with no file left behind.
func (g *Generator) Generate(ctx context.Context, userName, category string) (*Artifact, error) {
	background, imageType, err := g.fetchBackground(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch certificate background: %w", err)
	}

	uniqueID := uuid.NewString()
	now := time.Now()
	fileName := certFileName(userName, category, now, uniqueID)
	verifyURL := strings.TrimSuffix(g.cfg.VerifyBaseURL, "/") + "/" + uniqueID

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	pageW, pageH := pdf.GetPageSize()

	pdf.RegisterImageOptionsReader("background",
		fpdf.ImageOptions{ImageType: imageType}, bytes.NewReader(background))
	pdf.ImageOptions("background", 0, 0, pageW, pageH, false,
		fpdf.ImageOptions{ImageType: imageType}, 0, "")

	// Decorative double border
	pdf.SetDrawColor(184, 134, 11)
	pdf.SetLineWidth(1.4)
	pdf.Rect(8, 8, pageW-16, pageH-16, "D")
	pdf.SetLineWidth(0.4)
	pdf.Rect(11, 11, pageW-22, pageH-22, "D")

	// Core fonts are cp1252; the translator keeps arbitrary Unicode
	// input from breaking the renderer.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetTextColor(40, 40, 40)
	pdf.SetFont("Helvetica", "B", 34)
	pdf.SetXY(0, 34)
	pdf.CellFormat(pageW, 14, "Certificate of Completion", "", 0, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 15)
	pdf.SetXY(0, 58)
	pdf.CellFormat(pageW, 8, "This certificate is proudly presented to", "", 0, "C", false, 0, "")

	pdf.SetFont("Helvetica", "B", 28)
	pdf.SetXY(0, 72)
	pdf.CellFormat(pageW, 12, tr(userName), "", 0, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 15)
	pdf.SetXY(0, 92)
	pdf.CellFormat(pageW, 8, "for completing every lesson in", "", 0, "C", false, 0, "")

	pdf.SetFont("Helvetica", "B", 22)
	pdf.SetXY(0, 104)
	pdf.CellFormat(pageW, 10, tr(category), "", 0, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 13)
	pdf.SetXY(0, 124)
	pdf.CellFormat(pageW, 7, "Completed on "+now.Format("January 2, 2006"), "", 0, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(90, 90, 90)
	pdf.SetXY(0, pageH-24)
	pdf.CellFormat(pageW, 5, "Certificate ID: "+uniqueID, "", 0, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 200)
	pdf.SetXY(0, pageH-18)
	pdf.CellFormat(pageW, 5, "Verify at "+verifyURL, "", 0, "C", false, 0, verifyURL)

	if err := os.MkdirAll(g.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create certificate dir: %w", err)
	}
	location := filepath.Join(g.cfg.OutputDir, fileName)

	file, err := os.Create(location)
	if err != nil {
		return nil, fmt.Errorf("create certificate file: %w", err)
	}

	var buf bytes.Buffer
	err = pdf.Output(io.MultiWriter(file, &buf))
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(location)
		return nil, fmt.Errorf("render certificate: %w", err)
	}

	return &Artifact{
		UniqueID:     uniqueID,
		FileName:     fileName,
		FileLocation: location,
		PDF:          buf.Bytes(),
	}, nil
}

func (g *Generator) fetchBackground(ctx context.Context) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.BackgroundURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("asset store returned %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return data, imageTypeFor(resp.Header.Get("Content-Type"), g.cfg.BackgroundURL), nil
}

func imageTypeFor(contentType, url string) string {
	switch {
	case strings.Contains(contentType, "png"):
		return "PNG"
	case strings.Contains(contentType, "jpeg"), strings.Contains(contentType, "jpg"):
		return "JPG"
	}
	if strings.HasSuffix(strings.ToLower(url), ".jpg") || strings.HasSuffix(strings.ToLower(url), ".jpeg") {
		return "JPG"
	}
	return "PNG"
}
