package models

// These structs define the JSON payloads exchanged with the browser client.

// GenerateReportRequest is the body of POST /reports. Storage paths win over
// URLs when both are supplied for the same artifact.
type GenerateReportRequest struct {
	ImageStoragePath string `json:"imageStoragePath"`
	ImageURL         string `json:"imageUrl"`
	PDFStoragePath   string `json:"pdfStoragePath"`
	PDFURL           string `json:"pdfUrl"`
}

// GenerateReportResponse is the 200 body of POST /reports.
type GenerateReportResponse struct {
	Success       bool          `json:"success"`
	DownloadURL   string        `json:"downloadUrl"`
	PreviewBase64 string        `json:"previewBase64"`
	ReportID      string        `json:"reportId"`
	Metadata      ReportPreview `json:"metadata"`
	MetadataSaved bool          `json:"metadataSaved"`
	Warnings      []string      `json:"warnings,omitempty"`
}

// ReportPreview carries the truncated analysis previews.
type ReportPreview struct {
	ImageAnalysis string `json:"imageAnalysis"`
	PDFSummary    string `json:"pdfSummary"`
	HasImage      bool   `json:"hasImage"`
	HasPDF        bool   `json:"hasPdf"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// LinkWalletRequest is the body of PUT /wallet.
type LinkWalletRequest struct {
	Address string `json:"address"`
}

// ReportListResponse is the body of GET /reports.
type ReportListResponse struct {
	Reports []ReportMetadata `json:"reports"`
}

// ProfileResponse is the body of GET and PUT /profile.
type ProfileResponse struct {
	Profile     *Profile `json:"profile"`
	BMICategory string   `json:"bmiCategory"`
}
