package config

import (
	"encoding/json"
	"os"

	"github.com/dotwe/early-access/internal/flagx"
	"github.com/dotwe/early-access/internal/timex"
)

// JsonConfig is an intermediate DTO used only for reading JSON configuration
// files. It uses timex.Duration for interval fields, which allows parsing
// both string values such as "1h" and integer nanoseconds. After
// unmarshalling, its fields are copied into the runtime Config.
type JsonConfig struct {
	EndpointAddrHTTP    string         `json:"endpoint_addr_http"`
	DatabaseDSN         string         `json:"database_dsn"`
	DownloadTokenSecret string         `json:"download_token_secret"`
	DownloadTokenTTL    timex.Duration `json:"download_token_ttl"`
	SessionSecret       string         `json:"session_secret"`
	SessionTTL          timex.Duration `json:"session_ttl"`
	GoogleClientID      string         `json:"google_client_id"`
	GoogleClientSecret  string         `json:"google_client_secret"`
	GoogleRedirectURL   string         `json:"google_redirect_url"`
	S3AccessKey         string         `json:"s3_access_key"`
	S3SecretKey         string         `json:"s3_secret_key"`
	S3Region            string         `json:"s3_region"`
	S3Bucket            string         `json:"s3_bucket"`
	S3BaseEndpoint      string         `json:"s3_base_endpoint"`
	ArtifactKey         string         `json:"artifact_key"`
	ArtifactFileName    string         `json:"artifact_file_name"`
	ArtifactSHA256      string         `json:"artifact_sha256"`
}

// parseJson loads configuration values from the JSON file named by the
// -c/-config flags, if any. Zero-valued JSON fields leave the current
// Config values untouched, so the file only needs the keys it overrides.
// An unreadable or malformed file panics: a half-applied config file is
// worse than no startup.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setIfNotEmpty(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setIfNotEmpty(&config.DatabaseDSN, c.DatabaseDSN)
	setIfNotEmpty(&config.DownloadTokenSecret, c.DownloadTokenSecret)
	setIfNotEmpty(&config.SessionSecret, c.SessionSecret)
	setIfNotEmpty(&config.GoogleClientID, c.GoogleClientID)
	setIfNotEmpty(&config.GoogleClientSecret, c.GoogleClientSecret)
	setIfNotEmpty(&config.GoogleRedirectURL, c.GoogleRedirectURL)
	setIfNotEmpty(&config.S3AccessKey, c.S3AccessKey)
	setIfNotEmpty(&config.S3SecretKey, c.S3SecretKey)
	setIfNotEmpty(&config.S3Region, c.S3Region)
	setIfNotEmpty(&config.S3Bucket, c.S3Bucket)
	setIfNotEmpty(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setIfNotEmpty(&config.ArtifactKey, c.ArtifactKey)
	setIfNotEmpty(&config.ArtifactFileName, c.ArtifactFileName)
	setIfNotEmpty(&config.ArtifactSHA256, c.ArtifactSHA256)

	if c.DownloadTokenTTL.Duration > 0 {
		config.DownloadTokenTTL = c.DownloadTokenTTL.Duration
	}
	if c.SessionTTL.Duration > 0 {
		config.SessionTTL = c.SessionTTL.Duration
	}
}

func setIfNotEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
