package config

import (
	"crypto/rand"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// DefaultAdminPassword is the insecure out-of-the-box password. Running with
// it is refused in production and loudly warned about everywhere else.
const DefaultAdminPassword = "admin123"

// Config collects everything the server reads from the environment. It is
// built once at startup and handed to the components that need it instead of
// being consulted ambiently.
type Config struct {
	Port          string
	AdminPassword string
	SecretKey     []byte
	FrontendURL   string

	StorageType string // jsonfile | sqlite | memory
	WorksFile   string
	SQLitePath  string

	FileStorageType string // disk | s3
	UploadDir       string
	S3Bucket        string

	Thumbnails bool
	Production bool
}

// Load reads the process environment into a Config. It fails when a
// security-relevant setting is left at an insecure default in production.
func Load() (*Config, error) {
	cfg := &Config{
		Port:            getenv("PORT", "3000"),
		AdminPassword:   getenv("ADMIN_PASSWORD", DefaultAdminPassword),
		FrontendURL:     os.Getenv("FRONTEND_URL"),
		StorageType:     getenv("STORAGE_TYPE", "jsonfile"),
		WorksFile:       getenv("WORKS_FILE", "data/works.json"),
		SQLitePath:      getenv("SQLITE_PATH", "data/portfolio.db"),
		FileStorageType: getenv("FILE_STORAGE_TYPE", "disk"),
		UploadDir:       getenv("UPLOAD_DIR", "uploads"),
		S3Bucket:        os.Getenv("S3_BUCKET_NAME"),
		Thumbnails:      os.Getenv("THUMBNAILS") == "1",
		Production:      os.Getenv("APP_ENV") == "production",
	}

	if cfg.AdminPassword == DefaultAdminPassword {
		if cfg.Production {
			return nil, fmt.Errorf("ADMIN_PASSWORD is left at the default in production, refusing to start")
		}
		logrus.Warn("ADMIN_PASSWORD is not set, using the default password. Do not expose this instance.")
	}

	if secret := os.Getenv("SECRET_KEY"); secret != "" {
		cfg.SecretKey = []byte(secret)
	} else {
		key := make([]byte, 64)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}
		cfg.SecretKey = key
		logrus.Warn("SECRET_KEY is not set, generated a random one. Issued tokens will not survive a restart.")
	}

	if cfg.FileStorageType == "s3" && cfg.S3Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET_NAME must be set for s3 file storage")
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
