package report

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Lllllllleong/aethercare/internal/models"
	"github.com/Lllllllleong/aethercare/internal/pdfdoc"
	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu          sync.Mutex
	objects     map[string][]byte
	visibleFrom map[string]int // path -> existence check that first sees it
	checks      map[string]int
	downloadErr error
	uploadErr   error
	uploads     map[string][]byte
	calls       int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects:     map[string][]byte{},
		visibleFrom: map[string]int{},
		checks:      map[string]int{},
		uploads:     map[string][]byte{},
	}
}

func (s *fakeStore) Exists(_ context.Context, path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.checks[path]++
	if _, ok := s.objects[path]; !ok {
		return false, nil
	}
	return s.checks[path] >= s.visibleFrom[path], nil
}

func (s *fakeStore) Download(_ context.Context, path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.downloadErr != nil {
		return nil, s.downloadErr
	}
	return s.objects[path], nil
}

func (s *fakeStore) Upload(_ context.Context, path string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.uploadErr != nil {
		return s.uploadErr
	}
	s.uploads[path] = data
	return nil
}

func (s *fakeStore) SignedURL(_ context.Context, path string) (string, error) {
	return "https://storage.example.com/" + path + "?sig=1", nil
}

type fakeProfiles struct {
	profile *models.Profile
	err     error
}

func (f *fakeProfiles) GetProfile(context.Context, string) (*models.Profile, error) {
	return f.profile, f.err
}

type fakeReports struct {
	saved map[string]*models.ReportMetadata
	err   error
}

func (f *fakeReports) SaveReport(_ context.Context, uid string, m *models.ReportMetadata) error {
	if f.err != nil {
		return f.err
	}
	if f.saved == nil {
		f.saved = map[string]*models.ReportMetadata{}
	}
	f.saved[uid+"/"+m.ReportID] = m
	return nil
}

type fakeImages struct {
	out   string
	err   error
	calls int
}

func (f *fakeImages) AnalyzeImage(context.Context, []byte) (string, error) {
	f.calls++
	return f.out, f.err
}

type fakeSummarizer struct {
	out   string
	err   error
	block bool
	calls int
	input string
}

func (f *fakeSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	f.calls++
	f.input = text
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.out, f.err
}

var errService = errors.New("service unavailable")

type harness struct {
	store      *fakeStore
	profiles   *fakeProfiles
	reports    *fakeReports
	images     *fakeImages
	summarizer *fakeSummarizer
	sleeps     []time.Duration
	composed   []*composedCall
	now        time.Time

	summarizerName string
}

type composedCall struct {
	DocumentText  string
	ImageAnalysis *string
	PDFSummary    *string
}

func newHarness() *harness {
	return &harness{
		store:      newFakeStore(),
		profiles:   &fakeProfiles{},
		reports:    &fakeReports{},
		images:     &fakeImages{out: "No acute cardiopulmonary findings."},
		summarizer: &fakeSummarizer{out: "Blood panel within normal limits."},
		now:        time.Date(2025, 3, 14, 9, 26, 53, 589_000_000, time.UTC),
	}
}

func (h *harness) pipeline(mutate func(*Options)) *Pipeline {
	opts := Options{
		PollDelay: 2 * time.Second,
		Now:       func() time.Time { return h.now },
		Sleep: func(_ context.Context, d time.Duration) error {
			h.sleeps = append(h.sleeps, d)
			return nil
		},
	}
	if mutate != nil {
		mutate(&opts)
	}
	compose := opts.Compose
	opts.Compose = func(in pdfdoc.Input) ([]byte, error) {
		h.composed = append(h.composed, &composedCall{
			DocumentText:  in.DocumentText,
			ImageAnalysis: in.ImageAnalysis,
			PDFSummary:    in.PDFSummary,
		})
		if compose != nil {
			return compose(in)
		}
		return pdfdoc.Compose(in)
	}
	return NewPipeline(Deps{
		Store:          h.store,
		Profiles:       h.profiles,
		Reports:        h.reports,
		Images:         h.images,
		Summarizer:     h.summarizer,
		SummarizerName: h.summarizerName,
	}, opts)
}

// samplePDF builds a PDF with one page per text.
func samplePDF(t *testing.T, pages ...string) []byte {
	t.Helper()
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetFont("Helvetica", "", 12)
	for _, p := range pages {
		pdf.AddPage()
		pdf.Text(50, 50, p)
	}
	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	return buf.Bytes()
}
