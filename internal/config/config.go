package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every setting the functions read from the environment.
type Config struct {
	ProjectID string `envconfig:"PROJECT_ID" required:"true"`
	Port      string `envconfig:"PORT" default:"8080"`

	StorageBucket      string `envconfig:"STORAGE_BUCKET" default:"aethercare-9f49b.appspot.com"`
	FirestoreDatabase  string `envconfig:"FIRESTORE_DATABASE"`
	PatientsCollection string `envconfig:"PATIENTS_COLLECTION" default:"patients"`
	UsersCollection    string `envconfig:"USERS_COLLECTION" default:"users"`
	ReportsCollection  string `envconfig:"REPORTS_COLLECTION" default:"aiReports"`
	ReportPathPrefix   string `envconfig:"REPORT_PATH_PREFIX" default:"patients"`

	HuggingFaceAPIKey   string `envconfig:"HUGGINGFACE_API_KEY"`
	HuggingFaceModelURL string `envconfig:"HUGGINGFACE_MODEL_URL" default:"https://api-inference.huggingface.co/models/prithivMLmods/Radiology-Infer-Mini"`

	SummarizerBackend string `envconfig:"SUMMARIZER_BACKEND" default:"gemini"`
	GeminiAPIKey      string `envconfig:"GEMINI_API_KEY"`
	GeminiModel       string `envconfig:"GEMINI_MODEL" default:"gemini-1.5-flash-latest"`
	GeminiBaseURL     string `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta"`
	VertexAIRegion    string `envconfig:"VERTEX_AI_REGION" default:"us-central1"`
	VertexModel       string `envconfig:"VERTEX_MODEL" default:"gemini-1.5-flash"`

	AICallTimeout         time.Duration `envconfig:"AI_CALL_TIMEOUT" default:"30s"`
	ExistencePollAttempts int           `envconfig:"EXISTENCE_POLL_ATTEMPTS" default:"3"`
	ExistencePollDelay    time.Duration `envconfig:"EXISTENCE_POLL_DELAY" default:"2s"`
	MetadataWriteFatal    bool          `envconfig:"METADATA_WRITE_FATAL" default:"false"`

	AuthProjectID string `envconfig:"AUTH_PROJECT_ID"`
	AuthCertsURL  string `envconfig:"AUTH_CERTS_URL" default:"https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"`

	RateLimitPerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"10"`
	RateLimitBurst     int `envconfig:"RATE_LIMIT_BURST" default:"3"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	if c.AuthProjectID == "" {
		c.AuthProjectID = c.ProjectID
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the values envconfig cannot express with tags.
func (c *Config) Validate() error {
	if c.ProjectID == "" {
		return fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	if c.StorageBucket == "" {
		return fmt.Errorf("STORAGE_BUCKET must not be empty")
	}
	switch c.SummarizerBackend {
	case "gemini", "vertex":
	default:
		return fmt.Errorf("SUMMARIZER_BACKEND must be gemini or vertex, got %q", c.SummarizerBackend)
	}
	if c.ExistencePollAttempts < 1 {
		return fmt.Errorf("EXISTENCE_POLL_ATTEMPTS must be at least 1")
	}
	if c.AICallTimeout <= 0 {
		return fmt.Errorf("AI_CALL_TIMEOUT must be positive")
	}
	return nil
}

// ImageAnalysisEnabled reports whether an image analysis credential is configured.
func (c *Config) ImageAnalysisEnabled() bool {
	return c.HuggingFaceAPIKey != ""
}

// SummarizationEnabled reports whether the selected summarizer backend has what it needs.
func (c *Config) SummarizationEnabled() bool {
	if c.SummarizerBackend == "vertex" {
		return c.ProjectID != "" && c.VertexAIRegion != ""
	}
	return c.GeminiAPIKey != ""
}
