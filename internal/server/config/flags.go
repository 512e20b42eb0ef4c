package config

import (
	"flag"
	"os"
	"time"

	"github.com/dotwe/early-access/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   download token HMAC secret
//	-t int      download token validity, seconds
//	-k string   session HMAC secret
//	-u string   S3 access key
//	-p string   S3 secret key
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-f string   artifact object key
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-k", "-u", "-p", "-b", "-g", "-e", "-f"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.DownloadTokenSecret, "s", config.DownloadTokenSecret, "download token secret")

	downloadTokenTTL := fs.Int("t", int(config.DownloadTokenTTL.Seconds()), "download_token_ttl (in seconds)")

	fs.StringVar(&config.SessionSecret, "k", config.SessionSecret, "session secret")
	fs.StringVar(&config.S3AccessKey, "u", config.S3AccessKey, "S3 access key")
	fs.StringVar(&config.S3SecretKey, "p", config.S3SecretKey, "S3 secret key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.ArtifactKey, "f", config.ArtifactKey, "artifact object key")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.DownloadTokenTTL = time.Duration(*downloadTokenTTL) * time.Second
}
