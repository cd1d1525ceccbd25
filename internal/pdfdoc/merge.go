package pdfdoc

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func relaxedConfig() *model.Configuration {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return cfg
}

// AppendPages returns report followed by every page of original, in order.
func AppendPages(report, original []byte) ([]byte, error) {
	var out bytes.Buffer
	sources := []io.ReadSeeker{bytes.NewReader(report), bytes.NewReader(original)}
	if err := api.MergeRaw(sources, &out, false, relaxedConfig()); err != nil {
		return nil, fmt.Errorf("failed to merge original document pages: %w", err)
	}
	return out.Bytes(), nil
}

// PageCount returns the number of pages in doc.
func PageCount(doc []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(doc), relaxedConfig())
	if err != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}
	return n, nil
}
