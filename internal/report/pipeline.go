package report

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/Lllllllleong/aethercare/internal/logger"
	"github.com/Lllllllleong/aethercare/internal/metrics"
	"github.com/Lllllllleong/aethercare/internal/models"
	"github.com/Lllllllleong/aethercare/internal/pdfdoc"
	"golang.org/x/sync/errgroup"
)

const (
	extractionFailedText = "PDF text extraction failed"
	noImagePreview       = "No image analysis available"
	noPDFPreview         = "No PDF analysis available"
	previewLength        = 200
	pdfContentType       = "application/pdf"
	previewDataPrefix    = "data:application/pdf;base64,"
)

// ObjectStore is the subset of the storage layer the pipeline needs.
type ObjectStore interface {
	Exists(ctx context.Context, path string) (bool, error)
	Download(ctx context.Context, path string) ([]byte, error)
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	SignedURL(ctx context.Context, path string) (string, error)
}

type ProfileReader interface {
	GetProfile(ctx context.Context, uid string) (*models.Profile, error)
}

type MetadataWriter interface {
	SaveReport(ctx context.Context, uid string, m *models.ReportMetadata) error
}

type ImageAnalyzer interface {
	AnalyzeImage(ctx context.Context, image []byte) (string, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, documentText string) (string, error)
}

// Deps are the external collaborators. Images and Summarizer may be nil when
// the corresponding service is not configured. SummarizerName labels the
// summarizer's metrics and logs and defaults to "gemini".
type Deps struct {
	Store          ObjectStore
	Profiles       ProfileReader
	Reports        MetadataWriter
	Images         ImageAnalyzer
	Summarizer     Summarizer
	SummarizerName string
}

// Options tune the pipeline. Zero values fall back to production defaults.
type Options struct {
	PathPrefix         string
	PollAttempts       int
	PollDelay          time.Duration
	AICallTimeout      time.Duration
	MetadataWriteFatal bool

	Now         func() time.Time
	Sleep       func(ctx context.Context, d time.Duration) error
	ExtractText func(doc []byte) (string, error)
	Compose     func(in pdfdoc.Input) ([]byte, error)
	AppendPages func(report, original []byte) ([]byte, error)

	RecordAICall func(service string, err error, d time.Duration)
}

func (o *Options) setDefaults() {
	if o.PathPrefix == "" {
		o.PathPrefix = "patients"
	}
	if o.PollAttempts < 1 {
		o.PollAttempts = 3
	}
	if o.PollDelay <= 0 {
		o.PollDelay = 2 * time.Second
	}
	if o.AICallTimeout <= 0 {
		o.AICallTimeout = 30 * time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Sleep == nil {
		o.Sleep = sleep
	}
	if o.ExtractText == nil {
		o.ExtractText = pdfdoc.ExtractText
	}
	if o.Compose == nil {
		o.Compose = pdfdoc.Compose
	}
	if o.AppendPages == nil {
		o.AppendPages = pdfdoc.AppendPages
	}
	if o.RecordAICall == nil {
		o.RecordAICall = metrics.RecordAICall
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Pipeline generates AI health reports for authenticated subjects.
type Pipeline struct {
	deps Deps
	opts Options
}

// NewPipeline wires the collaborators into a pipeline.
func NewPipeline(deps Deps, opts Options) *Pipeline {
	opts.setDefaults()
	if deps.SummarizerName == "" {
		deps.SummarizerName = "gemini"
	}
	return &Pipeline{deps: deps, opts: opts}
}

// artifact is one resolved input.
type artifact struct {
	kind     string
	path     string
	original string
	data     []byte
}

// Generate runs the whole report flow for subject. Every returned error is a
// *StatusError.
func (p *Pipeline) Generate(ctx context.Context, subject string, req models.GenerateReportRequest) (*models.GenerateReportResponse, error) {
	resp, err := p.generate(ctx, subject, req)
	var se *StatusError
	switch {
	case err == nil && !resp.MetadataSaved:
		metrics.RecordReport("metadata_failed")
	case err == nil:
		metrics.RecordReport("success")
	case errors.As(err, &se) && se.Code == http.StatusBadRequest:
		metrics.RecordReport("bad_request")
	case errors.As(err, &se) && se.Code == http.StatusNotFound:
		metrics.RecordReport("not_found")
	default:
		metrics.RecordReport("error")
	}
	return resp, err
}

func (p *Pipeline) generate(ctx context.Context, subject string, req models.GenerateReportRequest) (*models.GenerateReportResponse, error) {
	if subject == "" {
		return nil, &StatusError{Code: http.StatusUnauthorized, Message: "Invalid authentication token"}
	}

	image := artifact{kind: "Image"}
	image.path, image.original = resolve(ctx, req.ImageStoragePath, req.ImageURL)
	doc := artifact{kind: "PDF"}
	doc.path, doc.original = resolve(ctx, req.PDFStoragePath, req.PDFURL)

	if image.original == "" && doc.original == "" {
		return nil, badRequest("At least one file (image or PDF) must be provided")
	}
	logger.Info(ctx, "Processing report request.", "imagePath", image.path, "pdfPath", doc.path)

	for _, a := range []*artifact{&image, &doc} {
		if a.original == "" {
			continue
		}
		if err := p.fetch(ctx, a); err != nil {
			return nil, err
		}
	}

	var documentText string
	if doc.data != nil {
		text, err := p.opts.ExtractText(doc.data)
		if err != nil {
			logger.Warn(ctx, "Failed to extract PDF text.", "error", err)
			text = extractionFailedText
		}
		documentText = text
	}

	imageAnalysis, pdfSummary := p.analyze(ctx, image.data, documentText)

	profile, err := p.deps.Profiles.GetProfile(ctx, subject)
	if err != nil {
		logger.Warn(ctx, "Failed to load profile, rendering without it.", "error", err)
		profile = nil
	}

	now := p.opts.Now()
	pdfBytes, err := p.opts.Compose(pdfdoc.Input{
		Profile:       profile,
		ImageAnalysis: imageAnalysis,
		PDFSummary:    pdfSummary,
		DocumentText:  documentText,
		GeneratedAt:   now,
	})
	if err != nil {
		return nil, internal("Failed to compose report", err)
	}
	if doc.data != nil {
		merged, err := p.opts.AppendPages(pdfBytes, doc.data)
		if err != nil {
			logger.Warn(ctx, "Failed to append original PDF pages.", "error", err)
		} else {
			pdfBytes = merged
		}
	}

	timestamp := now.UnixMilli()
	reportID := strconv.FormatInt(timestamp, 10)
	reportPath := fmt.Sprintf("%s/%s/reports/final-report-%s.pdf", p.opts.PathPrefix, subject, reportID)

	if err := p.deps.Store.Upload(ctx, reportPath, pdfBytes, pdfContentType); err != nil {
		logger.Error(ctx, "Failed to upload report.", "path", reportPath, "error", err)
		return nil, internal("Failed to upload report", err)
	}
	downloadURL, err := p.deps.Store.SignedURL(ctx, reportPath)
	if err != nil {
		logger.Error(ctx, "Failed to sign report URL.", "path", reportPath, "error", err)
		return nil, internal("Failed to create report download URL", err)
	}
	logger.Info(ctx, "Uploaded report.", "path", reportPath, "bytes", len(pdfBytes))

	resp := &models.GenerateReportResponse{
		Success:       true,
		DownloadURL:   downloadURL,
		PreviewBase64: previewDataPrefix + base64.StdEncoding.EncodeToString(pdfBytes),
		ReportID:      reportID,
		Metadata: models.ReportPreview{
			ImageAnalysis: preview(imageAnalysis, noImagePreview),
			PDFSummary:    preview(pdfSummary, noPDFPreview),
			HasImage:      image.data != nil,
			HasPDF:        doc.data != nil,
		},
		MetadataSaved: true,
	}

	meta := &models.ReportMetadata{
		ReportID:          reportID,
		DownloadURL:       downloadURL,
		StoragePath:       reportPath,
		Timestamp:         timestamp,
		ImageAnalysis:     imageAnalysis,
		PDFSummary:        pdfSummary,
		OriginalImagePath: optional(image.original),
		OriginalPDFPath:   optional(doc.original),
	}
	if err := p.deps.Reports.SaveReport(ctx, subject, meta); err != nil {
		logger.Error(ctx, "Failed to save report metadata.", "reportId", reportID, "error", err)
		if p.opts.MetadataWriteFatal {
			return nil, &StatusError{
				Code:    http.StatusInternalServerError,
				Message: "Report uploaded but metadata could not be saved",
				Details: downloadURL,
				Err:     err,
			}
		}
		resp.MetadataSaved = false
		resp.Warnings = append(resp.Warnings, "Report history could not be updated; keep the download link.")
	}
	return resp, nil
}

// fetch waits for the artifact to become visible and downloads it.
func (p *Pipeline) fetch(ctx context.Context, a *artifact) error {
	exists := false
	for attempt := 1; attempt <= p.opts.PollAttempts; attempt++ {
		metrics.RecordExistencePoll()
		ok, err := p.deps.Store.Exists(ctx, a.path)
		if err != nil {
			return internal(fmt.Sprintf("Failed to download %s from path: %s", a.kind, a.path), err)
		}
		if ok {
			exists = true
			break
		}
		if attempt < p.opts.PollAttempts {
			logger.Info(ctx, "Artifact not visible yet, retrying.", "path", a.path, "attempt", attempt)
			if err := p.opts.Sleep(ctx, p.opts.PollDelay); err != nil {
				return internal(fmt.Sprintf("Failed to download %s from path: %s", a.kind, a.path), err)
			}
		}
	}
	if !exists {
		return notFound(
			fmt.Sprintf("%s file not found at path: %s", a.kind, a.path),
			fmt.Sprintf("Please ensure the file was uploaded successfully and the path is correct. Checked %d times.", p.opts.PollAttempts),
		)
	}

	data, err := p.deps.Store.Download(ctx, a.path)
	if err != nil {
		return internal(fmt.Sprintf("Failed to download %s from path: %s", a.kind, a.path), err)
	}
	a.data = data
	logger.Info(ctx, "Downloaded artifact.", "path", a.path, "bytes", len(data))
	return nil
}

// analyze runs both AI calls concurrently. Failures are logged and leave the
// corresponding result nil.
func (p *Pipeline) analyze(ctx context.Context, image []byte, documentText string) (imageAnalysis, pdfSummary *string) {
	var g errgroup.Group

	if image != nil && p.deps.Images != nil {
		g.Go(func() error {
			imageAnalysis = p.call(ctx, "huggingface", func(ctx context.Context) (string, error) {
				return p.deps.Images.AnalyzeImage(ctx, image)
			})
			return nil
		})
	}
	if documentText != "" && p.deps.Summarizer != nil {
		g.Go(func() error {
			pdfSummary = p.call(ctx, p.deps.SummarizerName, func(ctx context.Context) (string, error) {
				return p.deps.Summarizer.Summarize(ctx, documentText)
			})
			return nil
		})
	}
	_ = g.Wait()
	return imageAnalysis, pdfSummary
}

func (p *Pipeline) call(ctx context.Context, service string, fn func(context.Context) (string, error)) *string {
	ctx, cancel := context.WithTimeout(ctx, p.opts.AICallTimeout)
	defer cancel()

	start := time.Now()
	out, err := fn(ctx)
	p.opts.RecordAICall(service, err, time.Since(start))
	if err != nil {
		logger.Warn(ctx, "AI call failed, continuing without it.", "service", service, "error", err)
		return nil
	}
	if out == "" {
		return nil
	}
	return &out
}

func preview(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	v := *s
	if utf8.RuneCountInString(v) > previewLength {
		v = string([]rune(v)[:previewLength])
	}
	return v + "..."
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
