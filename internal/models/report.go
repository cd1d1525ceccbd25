package models

import "time"

// ReportMetadata is the append-only record written to
// patients/{uid}/aiReports/{timestamp} after a report is uploaded.
type ReportMetadata struct {
	ReportID          string    `firestore:"-" json:"reportId"`
	DownloadURL       string    `firestore:"downloadUrl" json:"downloadUrl"`
	StoragePath       string    `firestore:"storagePath" json:"storagePath"`
	Timestamp         int64     `firestore:"timestamp" json:"timestamp"`
	ImageAnalysis     *string   `firestore:"imageAnalysis" json:"imageAnalysis"`
	PDFSummary        *string   `firestore:"pdfSummary" json:"pdfSummary"`
	OriginalImagePath *string   `firestore:"originalImagePath" json:"originalImagePath"`
	OriginalPDFPath   *string   `firestore:"originalPdfPath" json:"originalPdfPath"`
	CreatedAt         time.Time `firestore:"createdAt,serverTimestamp" json:"createdAt"`
}

// WalletLink is the wallet section of users/{uid}.
type WalletLink struct {
	WalletAddress        *string `firestore:"walletAddress" json:"walletAddress"`
	WalletConnectedAt    string  `firestore:"walletConnectedAt,omitempty" json:"walletConnectedAt,omitempty"`
	WalletDisconnectedAt string  `firestore:"walletDisconnectedAt,omitempty" json:"walletDisconnectedAt,omitempty"`
}

// DefaultAccountType applies to users/{uid} documents without an accountType.
const DefaultAccountType = "patient"

// Account is the users/{uid} document written at sign-up, including its
// wallet section.
type Account struct {
	FullName    string `firestore:"fullName" json:"fullName"`
	Email       string `firestore:"email" json:"email"`
	AccountType string `firestore:"accountType" json:"accountType"`
	CreatedAt   string `firestore:"createdAt" json:"createdAt"`
	WalletLink
}
