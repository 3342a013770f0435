package config

// Default remote endpoint of the bookmark functions.
const (
	DefaultSyncBaseURL = "https://asia-northeast3-dev-giyoung.cloudfunctions.net"
	DefaultListPath    = "petitPDFViewer-getBookmarks"
	DefaultCreatePath  = "petitPDFViewer-createBookmark"
	DefaultDeletePath  = "petitPDFViewer-deleteBookmark"
	DefaultUserID      = "no3yd1f0pd"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/petitpdf/data/library.db"
	}
	if cfg.Log.File != "" {
		if cfg.Log.MaxSizeMB == 0 {
			cfg.Log.MaxSizeMB = 10
		}
		if cfg.Log.MaxBackups == 0 {
			cfg.Log.MaxBackups = 5
		}
		if cfg.Log.MaxAgeDays == 0 {
			cfg.Log.MaxAgeDays = 7
		}
	}
	if cfg.Sync.BaseURL == "" {
		cfg.Sync.BaseURL = DefaultSyncBaseURL
	}
	if cfg.Sync.ListPath == "" {
		cfg.Sync.ListPath = DefaultListPath
	}
	if cfg.Sync.CreatePath == "" {
		cfg.Sync.CreatePath = DefaultCreatePath
	}
	if cfg.Sync.DeletePath == "" {
		cfg.Sync.DeletePath = DefaultDeletePath
	}
	if cfg.Sync.UserID == "" {
		cfg.Sync.UserID = DefaultUserID
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".pdf"}
	}
}
