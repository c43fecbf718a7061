package config

const (
	defaultBackend   = "sqlite"
	defaultAPIListen = ":8080"

	// defaultMaxUploadMB caps attachments at 700 MiB.
	defaultMaxUploadMB = 700

	defaultEventsTopic = "jot.notes"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values. SQLitePath and
// Uploads.Dir default to empty, which means "inside the resolved .jot/
// directory" and is resolved at startup via dotdir.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Backend: defaultBackend,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Uploads: UploadsConfig{
			MaxSizeMB: defaultMaxUploadMB,
		},
		Events: EventsConfig{
			Topic: defaultEventsTopic,
		},
	}
}
