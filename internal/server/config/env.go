package config

import (
	"os"
	"strconv"
	"time"
)

// parseEnv overlays environment variables onto the Config. Environment wins
// over flags so managed deploys, where only env is configurable, behave
// predictably.
func parseEnv(config *Config) {
	envString("HTTP_ADDRESS", &config.EndpointAddrHTTP)
	envString("DATABASE_DSN", &config.DatabaseDSN)
	envString("DOWNLOAD_TOKEN_SECRET", &config.DownloadTokenSecret)
	envString("SESSION_SECRET", &config.SessionSecret)
	envString("GOOGLE_CLIENT_ID", &config.GoogleClientID)
	envString("GOOGLE_CLIENT_SECRET", &config.GoogleClientSecret)
	envString("GOOGLE_REDIRECT_URL", &config.GoogleRedirectURL)
	envString("S3_ACCESS_KEY", &config.S3AccessKey)
	envString("S3_SECRET_KEY", &config.S3SecretKey)
	envString("S3_REGION", &config.S3Region)
	envString("S3_BUCKET", &config.S3Bucket)
	envString("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
	envString("APK_FILE_PATH", &config.ArtifactKey)
	envString("APK_FILE_NAME", &config.ArtifactFileName)
	envString("APK_SHA256_CHECKSUM", &config.ArtifactSHA256)

	if v, ok := os.LookupEnv("DOWNLOAD_TOKEN_EXPIRY"); ok {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			config.DownloadTokenTTL = time.Duration(seconds) * time.Second
		}
	}
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}
