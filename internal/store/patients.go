package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/Lllllllleong/aethercare/internal/models"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Collections names the Firestore collections the store uses.
type Collections struct {
	Patients string
	Users    string
	Reports  string
}

// PatientStore persists profiles, report history and wallet links in Firestore.
//
// Layout:
//
//	patients/{uid}                     profile fields
//	patients/{uid}/aiReports/{ts}      report metadata, append-only
//	users/{uid}                        fullName, email, accountType, createdAt,
//	                                   walletAddress, walletConnectedAt, walletDisconnectedAt
type PatientStore struct {
	client *firestore.Client
	cols   Collections
	now    func() time.Time
}

func NewPatientStore(client *firestore.Client, cols Collections) *PatientStore {
	return &PatientStore{client: client, cols: cols, now: time.Now}
}

func (s *PatientStore) patient(uid string) *firestore.DocumentRef {
	return s.client.Collection(s.cols.Patients).Doc(uid)
}

func (s *PatientStore) reports(uid string) *firestore.CollectionRef {
	return s.patient(uid).Collection(s.cols.Reports)
}

// GetProfile returns the subject's profile, or nil when none has been saved.
func (s *PatientStore) GetProfile(ctx context.Context, uid string) (*models.Profile, error) {
	snap, err := s.patient(uid).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile for %s: %w", uid, err)
	}
	return models.ProfileFromMap(snap.Data()), nil
}

// SaveProfile normalizes p and merges it into the subject's profile document.
func (s *PatientStore) SaveProfile(ctx context.Context, uid string, p *models.Profile) error {
	if err := p.Normalize(); err != nil {
		return err
	}
	data := map[string]interface{}{
		"name":              p.Name,
		"age":               p.Age,
		"height":            p.Height,
		"weight":            p.Weight,
		"bmi":               p.BMI,
		"habits":            p.Habits,
		"exerciseRoutine":   p.ExerciseRoutine,
		"allergies":         p.Allergies,
		"chronicConditions": p.ChronicConditions,
		"familyConditions":  p.FamilyConditions,
		"otherNotes":        p.OtherNotes,
		"updatedAt":         firestore.ServerTimestamp,
	}
	if _, err := s.patient(uid).Set(ctx, data, firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to save profile for %s: %w", uid, err)
	}
	return nil
}

// SaveReport creates the metadata record keyed by its timestamp.
func (s *PatientStore) SaveReport(ctx context.Context, uid string, m *models.ReportMetadata) error {
	id := strconv.FormatInt(m.Timestamp, 10)
	if _, err := s.reports(uid).Doc(id).Create(ctx, m); err != nil {
		return fmt.Errorf("failed to save report %s for %s: %w", id, uid, err)
	}
	m.ReportID = id
	return nil
}

// ListReports returns the newest reports first.
func (s *PatientStore) ListReports(ctx context.Context, uid string, limit int) ([]models.ReportMetadata, error) {
	it := s.reports(uid).OrderBy("timestamp", firestore.Desc).Limit(limit).Documents(ctx)
	defer it.Stop()

	reports := []models.ReportMetadata{}
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list reports for %s: %w", uid, err)
		}
		var m models.ReportMetadata
		if err := snap.DataTo(&m); err != nil {
			return nil, fmt.Errorf("failed to decode report %s: %w", snap.Ref.ID, err)
		}
		m.ReportID = snap.Ref.ID
		reports = append(reports, m)
	}
	return reports, nil
}

// GetReport returns one report or ErrNotFound.
func (s *PatientStore) GetReport(ctx context.Context, uid, reportID string) (*models.ReportMetadata, error) {
	snap, err := s.reports(uid).Doc(reportID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report %s for %s: %w", reportID, uid, err)
	}
	var m models.ReportMetadata
	if err := snap.DataTo(&m); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", reportID, err)
	}
	m.ReportID = snap.Ref.ID
	return &m, nil
}

// GetAccount returns the subject's users document or ErrNotFound. A missing
// accountType reads as a patient account.
func (s *PatientStore) GetAccount(ctx context.Context, uid string) (*models.Account, error) {
	snap, err := s.client.Collection(s.cols.Users).Doc(uid).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account for %s: %w", uid, err)
	}
	var a models.Account
	if err := snap.DataTo(&a); err != nil {
		return nil, fmt.Errorf("failed to decode account for %s: %w", uid, err)
	}
	if a.AccountType == "" {
		a.AccountType = models.DefaultAccountType
	}
	return &a, nil
}

// GetWallet returns the wallet section of the user document. A missing
// document is reported as an unlinked wallet.
func (s *PatientStore) GetWallet(ctx context.Context, uid string) (*models.WalletLink, error) {
	snap, err := s.client.Collection(s.cols.Users).Doc(uid).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return &models.WalletLink{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet for %s: %w", uid, err)
	}
	var link models.WalletLink
	if err := snap.DataTo(&link); err != nil {
		return nil, fmt.Errorf("failed to decode wallet for %s: %w", uid, err)
	}
	return &link, nil
}

// LinkWallet records address as the subject's wallet.
func (s *PatientStore) LinkWallet(ctx context.Context, uid, address string) (*models.WalletLink, error) {
	link := &models.WalletLink{
		WalletAddress:     &address,
		WalletConnectedAt: s.now().UTC().Format(time.RFC3339),
	}
	data := map[string]interface{}{
		"walletAddress":     address,
		"walletConnectedAt": link.WalletConnectedAt,
	}
	if _, err := s.client.Collection(s.cols.Users).Doc(uid).Set(ctx, data, firestore.MergeAll); err != nil {
		return nil, fmt.Errorf("failed to link wallet for %s: %w", uid, err)
	}
	return link, nil
}

// UnlinkWallet clears the wallet address and stamps the disconnect time.
func (s *PatientStore) UnlinkWallet(ctx context.Context, uid string) (*models.WalletLink, error) {
	link := &models.WalletLink{WalletDisconnectedAt: s.now().UTC().Format(time.RFC3339)}
	data := map[string]interface{}{
		"walletAddress":        nil,
		"walletDisconnectedAt": link.WalletDisconnectedAt,
	}
	if _, err := s.client.Collection(s.cols.Users).Doc(uid).Set(ctx, data, firestore.MergeAll); err != nil {
		return nil, fmt.Errorf("failed to unlink wallet for %s: %w", uid, err)
	}
	return link, nil
}
