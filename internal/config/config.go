package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/persistfs/persistfs/pkg/poll"
	"github.com/persistfs/persistfs/pkg/types"
)

// Configuration represents the complete application configuration
type Configuration struct {
	Global  GlobalConfig  `yaml:"global"`
	Storage StorageConfig `yaml:"storage"`
	Sync    SyncConfig    `yaml:"sync"`
	Poll    PollConfig    `yaml:"poll"`
}

// GlobalConfig represents global application settings
type GlobalConfig struct {
	LogLevel    string `yaml:"log_level"`
	MetricsPort int    `yaml:"metrics_port"`
}

// StorageConfig represents the remote object-storage settings. The endpoint
// is derived from the account identifier and storage domain; it is never
// configured directly.
type StorageConfig struct {
	AccountID       string `yaml:"account_id"`
	Bucket          string `yaml:"bucket"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	MountPath       string `yaml:"mount_path"`
	StorageDomain   string `yaml:"storage_domain"`
	Region          string `yaml:"region"`
	ForcePathStyle  bool   `yaml:"force_path_style"`
}

// SyncConfig represents the reconciliation source layout. ConfigDirName is
// the current name of the worker configuration directory;
// LegacyConfigDirName is accepted for workers provisioned before the rename.
type SyncConfig struct {
	SourceRoot          string `yaml:"source_root"`
	ConfigDirName       string `yaml:"config_dir_name"`
	LegacyConfigDirName string `yaml:"legacy_config_dir_name"`
	ConfigFileName      string `yaml:"config_file_name"`
	WorkspaceDirName    string `yaml:"workspace_dir_name"`
	MarkerFileName      string `yaml:"marker_file_name"`
}

// PollConfig holds the bounded-polling presets for external commands.
type PollConfig struct {
	Quick   poll.Config `yaml:"quick"`
	Mount   poll.Config `yaml:"mount"`
	Copy    poll.Config `yaml:"copy"`
	Archive poll.Config `yaml:"archive"`
}

// NewDefault creates a configuration with default values
func NewDefault() *Configuration {
	return &Configuration{
		Global: GlobalConfig{
			LogLevel:    "INFO",
			MetricsPort: 8080,
		},
		Storage: StorageConfig{
			Bucket:        "persistfs-workspace",
			MountPath:     "/mnt/persist",
			StorageDomain: "r2.cloudflarestorage.com",
			Region:        "auto",
		},
		Sync: SyncConfig{
			SourceRoot:          "/home/worker",
			ConfigDirName:       ".worker",
			LegacyConfigDirName: ".workerrc",
			ConfigFileName:      "settings.json",
			WorkspaceDirName:    "workspace",
			MarkerFileName:      ".last-sync",
		},
		Poll: PollConfig{
			Quick:   poll.QuickCheck,
			Mount:   poll.MountOperation,
			Copy:    poll.CopyOperation,
			Archive: poll.ArchiveOperation,
		},
	}
}

// LoadFromFile loads configuration from a YAML file
func (c *Configuration) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	return nil
}

// LoadFromEnv applies environment variable overrides (PERSISTFS_* prefix)
func (c *Configuration) LoadFromEnv() error {
	if val := os.Getenv("PERSISTFS_LOG_LEVEL"); val != "" {
		c.Global.LogLevel = val
	}
	if val := os.Getenv("PERSISTFS_METRICS_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.Global.MetricsPort = port
		}
	}

	// Storage settings
	if val := os.Getenv("PERSISTFS_ACCOUNT_ID"); val != "" {
		c.Storage.AccountID = val
	}
	if val := os.Getenv("PERSISTFS_BUCKET"); val != "" {
		c.Storage.Bucket = val
	}
	if val := os.Getenv("PERSISTFS_ACCESS_KEY_ID"); val != "" {
		c.Storage.AccessKeyID = val
	}
	if val := os.Getenv("PERSISTFS_SECRET_ACCESS_KEY"); val != "" {
		c.Storage.SecretAccessKey = val
	}
	if val := os.Getenv("PERSISTFS_MOUNT_PATH"); val != "" {
		c.Storage.MountPath = val
	}
	if val := os.Getenv("PERSISTFS_STORAGE_DOMAIN"); val != "" {
		c.Storage.StorageDomain = val
	}
	if val := os.Getenv("PERSISTFS_FORCE_PATH_STYLE"); val != "" {
		c.Storage.ForcePathStyle = strings.ToLower(val) == "true"
	}

	// Sync settings
	if val := os.Getenv("PERSISTFS_SOURCE_ROOT"); val != "" {
		c.Sync.SourceRoot = val
	}

	return nil
}

// Validate checks the configuration for internal consistency. A missing
// account identifier is not a validation error; it only disables the
// mount-based paths and is checked at startup.
func (c *Configuration) Validate() error {
	if c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket cannot be empty")
	}
	if !filepath.IsAbs(c.Storage.MountPath) {
		return fmt.Errorf("storage.mount_path must be absolute, got %q", c.Storage.MountPath)
	}
	if c.Storage.StorageDomain == "" {
		return fmt.Errorf("storage.storage_domain cannot be empty")
	}
	if (c.Storage.AccessKeyID == "") != (c.Storage.SecretAccessKey == "") {
		return fmt.Errorf("storage access key and secret must be set together")
	}
	if !filepath.IsAbs(c.Sync.SourceRoot) {
		return fmt.Errorf("sync.source_root must be absolute, got %q", c.Sync.SourceRoot)
	}
	if c.Sync.ConfigFileName == "" {
		return fmt.Errorf("sync.config_file_name cannot be empty")
	}
	return nil
}

// Endpoint derives the storage endpoint from the account identifier and
// storage domain. Empty when no account is configured.
func (c *Configuration) Endpoint() string {
	if c.Storage.AccountID == "" {
		return ""
	}
	return fmt.Sprintf("https://%s.%s", c.Storage.AccountID, c.Storage.StorageDomain)
}

// MountTarget constructs a fresh attachment target. Called once per attempt;
// the result is never cached, so credential changes between deployments are
// always picked up.
func (c *Configuration) MountTarget() types.MountTarget {
	target := types.MountTarget{
		BucketName: c.Storage.Bucket,
		MountPath:  c.Storage.MountPath,
		Endpoint:   c.Endpoint(),
	}
	if c.Storage.AccessKeyID != "" && c.Storage.SecretAccessKey != "" {
		target.Credentials = &types.Credentials{
			AccessKeyID:     c.Storage.AccessKeyID,
			SecretAccessKey: c.Storage.SecretAccessKey,
		}
	}
	return target
}

// ConfigDirCandidates returns the recognized configuration directory names,
// current first, legacy second.
func (c *Configuration) ConfigDirCandidates() []string {
	candidates := []string{c.Sync.ConfigDirName}
	if c.Sync.LegacyConfigDirName != "" && c.Sync.LegacyConfigDirName != c.Sync.ConfigDirName {
		candidates = append(candidates, c.Sync.LegacyConfigDirName)
	}
	return candidates
}

// SaveToFile saves the configuration to a YAML file
func (c *Configuration) SaveToFile(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", filename, err)
	}

	return nil
}
