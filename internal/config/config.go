package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// DefaultFields is the record schema sent to the catalog when none is configured.
var DefaultFields = []string{
	"copyright",
	"family",
	"subfamily",
	"unique_id",
	"full_name",
	"version",
	"postscript_name",
	"trademark",
	"manufacturer",
	"designer",
	"description",
	"vendor_url",
	"designer_url",
	"license",
	"license_url",
	"typographic_family",
	"typographic_subfamily",
	"sample_text",
}

// Config represents the main configuration for fonttrack.
type Config struct {
	HostID     string           `toml:"host_id" validate:"required"`
	UserName   string           `toml:"user_name" validate:"required"`
	BaseDir    string           `toml:"base_dir" validate:"required"`
	LogDir     string           `toml:"log_dir" validate:"required"`
	Catalog    CatalogConfig    `toml:"catalog"`
	Store      StoreConfig      `toml:"store"`
	Database   DatabaseConfig   `toml:"database"`
	Fonts      FontsConfig      `toml:"fonts"`
	Schema     SchemaConfig     `toml:"schema"`
	Schedule   ScheduleConfig   `toml:"schedule"`
	Metrics    MetricsConfig    `toml:"metrics"`
	Vaults     []VaultConfig    `toml:"vaults" validate:"dive"`
	Encryption EncryptionConfig `toml:"encryption"`
}

// CatalogConfig represents configuration for the remote font catalog.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type CatalogConfig struct {
	Type string `toml:"type" validate:"oneof=http memory"` // "http" or "memory"

	// HTTP-specific fields (only used when Type == "http")
	BaseURL           string   `toml:"base_url,omitempty" validate:"required_if=Type http"`
	Timeout           Duration `toml:"timeout,omitempty"`
	MaxRetries        int      `toml:"max_retries" validate:"gte=0"`
	RequestsPerSecond float64  `toml:"requests_per_second" validate:"gte=0"` // 0 disables pacing
	CircuitBreaker    bool     `toml:"circuit_breaker"`
}

// StoreConfig represents configuration for the snapshot store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StoreConfig struct {
	Type string `toml:"type" validate:"oneof=json sqlite badger memory"`
	Path string `toml:"path,omitempty" validate:"required_if=Type json,required_if=Type badger"` // file for json, directory for badger
}

// DatabaseConfig represents configuration for the sync history database.
// The sqlite snapshot store lives in the same database.
type DatabaseConfig struct {
	Type    string `toml:"type" validate:"oneof=sqlite memory"` // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty" validate:"required_if=Type sqlite"`
}

// FontsConfig controls which files are considered fonts.
type FontsConfig struct {
	Dirs       []string `toml:"dirs" validate:"min=1,dive,required"`
	Extensions []string `toml:"extensions" validate:"min=1,dive,startswith=."`
	Ignore     []string `toml:"ignore"`
}

// SchemaConfig lists the record fields sent to the catalog.
type SchemaConfig struct {
	Fields []string `toml:"fields" validate:"min=1,dive,required"`
}

// ScheduleConfig controls the `run` loop.
type ScheduleConfig struct {
	ChangesInterval Duration `toml:"changes_interval"`
	FullInterval    Duration `toml:"full_interval"`
	Jitter          Duration `toml:"jitter"`
	Watch           bool     `toml:"watch"`
	WatchDebounce   Duration `toml:"watch_debounce"`
}

// MetricsConfig controls where Prometheus metrics are written.
// An empty TextfilePath disables the export.
type MetricsConfig struct {
	TextfilePath string `toml:"textfile_path,omitempty"`
}

// VaultConfig represents configuration for a snapshot mirror backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type" validate:"oneof=memory s3 filesystem"`
	Name string `toml:"name" validate:"required"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket string `toml:"s3_bucket,omitempty" validate:"required_if=Type s3"`
	S3Prefix string `toml:"s3_prefix,omitempty"`
	S3Region string `toml:"s3_region,omitempty"`
	// S3Endpoint points the client at an S3-compatible service such as MinIO.
	S3Endpoint        string `toml:"s3_endpoint,omitempty" validate:"omitempty,url"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty" validate:"required_with=S3SecretAccessKey"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty" validate:"required_with=S3AccessKeyID"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty" validate:"required_if=Type filesystem"`
}

// EncryptionConfig holds paths to the age key pair used for mirrored snapshots.
type EncryptionConfig struct {
	Type           string `toml:"type" validate:"omitempty,oneof=age test none"` // "age" (default), "test" or "none"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// Duration is a time.Duration written as a string such as "5s" in TOML.
type Duration struct {
	time.Duration
}

// Seconds returns a Duration of n seconds.
func Seconds(n int) Duration {
	return Duration{time.Duration(n) * time.Second}
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// DefaultFontDirs returns the font directories scanned on the current platform.
func DefaultFontDirs() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{`C:\Windows\Fonts`}
	case "darwin":
		return []string{"~/Library/Fonts"}
	default:
		return []string{"/usr/share/fonts", "~/fonts"}
	}
}

// NewConfig creates a new Config with the provided values and defaults for
// everything else.
func NewConfig(hostID, baseDir, userName string) *Config {
	return &Config{
		HostID:   hostID,
		UserName: userName,
		BaseDir:  baseDir,
		LogDir:   filepath.Join(baseDir, "log"),
		Catalog: CatalogConfig{
			Type:       "http",
			BaseURL:    "http://172.17.0.2",
			Timeout:    Seconds(15),
			MaxRetries: 3,
		},
		Store: StoreConfig{
			Type: "json",
			Path: filepath.Join(baseDir, "meta_record.json"),
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Fonts: FontsConfig{
			Dirs:       DefaultFontDirs(),
			Extensions: []string{".otf", ".ttf"},
		},
		Schema: SchemaConfig{
			Fields: append([]string(nil), DefaultFields...),
		},
		Schedule: ScheduleConfig{
			ChangesInterval: Seconds(5),
			FullInterval:    Seconds(30),
			WatchDebounce:   Duration{500 * time.Millisecond},
		},
		Encryption: EncryptionConfig{
			Type:           "none",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "fonttrack.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "fonttrack.key"),
		},
	}
}

// Validate checks the config for missing or inconsistent settings.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Schedule.ChangesInterval.Duration <= 0 {
		return fmt.Errorf("invalid config: schedule.changes_interval must be positive")
	}
	if c.Schedule.FullInterval.Duration <= 0 {
		return fmt.Errorf("invalid config: schedule.full_interval must be positive")
	}
	return nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, path[1:]), nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads and validates a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
