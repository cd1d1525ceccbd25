package auth

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing or invalid Authorization header")
	ErrInvalidToken = errors.New("invalid authentication token")
)

// Verifier turns a bearer credential into a subject id.
type Verifier interface {
	Verify(ctx context.Context, idToken string) (string, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(header string) (string, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", ErrMissingToken
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// firebaseClaims adds the Firebase-specific claims to the registered set.
type firebaseClaims struct {
	AuthTime int64 `json:"auth_time"`
	jwt.RegisteredClaims
}

// FirebaseVerifier checks Firebase Authentication ID tokens against Google's
// published signing certificates.
type FirebaseVerifier struct {
	projectID  string
	certsURL   string
	httpClient *http.Client
	now        func() time.Time

	mu      sync.Mutex
	keys    map[string]*rsa.PublicKey
	expires time.Time
}

// NewFirebaseVerifier returns a verifier for tokens issued to projectID.
func NewFirebaseVerifier(projectID, certsURL string, httpClient *http.Client) *FirebaseVerifier {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &FirebaseVerifier{
		projectID:  projectID,
		certsURL:   certsURL,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// Verify validates signature and claims and returns the token subject.
func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (string, error) {
	keys, err := v.publicKeys(ctx)
	if err != nil {
		return "", err
	}

	claims := &firebaseClaims{}
	_, err = jwt.ParseWithClaims(idToken, claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		key, ok := keys[kid]
		if !ok {
			return nil, fmt.Errorf("unknown key id %q", kid)
		}
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.projectID),
		jwt.WithIssuer("https://securetoken.google.com/"+v.projectID),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject == "" || len(claims.Subject) > 128 {
		return "", fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	if claims.AuthTime > v.now().Unix() {
		return "", fmt.Errorf("%w: auth_time is in the future", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// publicKeys returns the cached certificates, refreshing them once they expire.
func (v *FirebaseVerifier) publicKeys(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.keys != nil && v.now().Before(v.expires) {
		return v.keys, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.certsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build certificate request: %w", err)
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch signing certificates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("certificate endpoint returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read signing certificates: %w", err)
	}

	keys, err := parseCertificates(body)
	if err != nil {
		return nil, err
	}
	v.keys = keys
	v.expires = v.now().Add(maxAge(resp.Header.Get("Cache-Control")))
	return keys, nil
}

func parseCertificates(body []byte) (map[string]*rsa.PublicKey, error) {
	var certs map[string]string
	if err := json.Unmarshal(body, &certs); err != nil {
		return nil, fmt.Errorf("failed to decode signing certificates: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(certs))
	for kid, certPEM := range certs {
		block, _ := pem.Decode([]byte(certPEM))
		if block == nil {
			return nil, fmt.Errorf("certificate %q is not PEM encoded", kid)
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse certificate %q: %w", kid, err)
		}
		key, ok := cert.PublicKey.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("certificate %q does not hold an RSA key", kid)
		}
		keys[kid] = key
	}
	return keys, nil
}

// maxAge reads max-age from a Cache-Control header, defaulting to one hour.
func maxAge(cacheControl string) time.Duration {
	for _, directive := range strings.Split(cacheControl, ",") {
		directive = strings.TrimSpace(directive)
		if v, ok := strings.CutPrefix(directive, "max-age="); ok {
			if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
				return time.Duration(secs) * time.Second
			}
		}
	}
	return time.Hour
}
