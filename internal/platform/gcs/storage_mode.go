package gcs

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/substationlabs/assetview-backend/internal/platform/envutil"
)

type ObjectStorageMode string

const (
	ObjectStorageModeGCS         ObjectStorageMode = "gcs"
	ObjectStorageModeGCSEmulator ObjectStorageMode = "gcs_emulator"
)

type ObjectStorageConfig struct {
	Mode         ObjectStorageMode
	EmulatorHost string
}

func (cfg ObjectStorageConfig) IsEmulatorMode() bool {
	return cfg.Mode == ObjectStorageModeGCSEmulator
}

// ResolveObjectStorageConfigFromEnv picks the storage mode. An explicit
// OBJECT_STORAGE_MODE wins; otherwise a set STORAGE_EMULATOR_HOST implies
// emulator mode so local stacks need only the one variable.
func ResolveObjectStorageConfigFromEnv() (ObjectStorageConfig, error) {
	cfg := ObjectStorageConfig{
		EmulatorHost: strings.TrimRight(envutil.Get("STORAGE_EMULATOR_HOST", ""), "/"),
	}

	rawMode := envutil.Get("OBJECT_STORAGE_MODE", "")
	switch ObjectStorageMode(strings.ToLower(rawMode)) {
	case "":
		if cfg.EmulatorHost != "" {
			cfg.Mode = ObjectStorageModeGCSEmulator
		} else {
			cfg.Mode = ObjectStorageModeGCS
		}
	case ObjectStorageModeGCS:
		cfg.Mode = ObjectStorageModeGCS
	case ObjectStorageModeGCSEmulator:
		cfg.Mode = ObjectStorageModeGCSEmulator
	default:
		return cfg, fmt.Errorf(
			"invalid OBJECT_STORAGE_MODE=%q (allowed: %q, %q)",
			rawMode, ObjectStorageModeGCS, ObjectStorageModeGCSEmulator,
		)
	}

	if err := ValidateObjectStorageConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func ValidateObjectStorageConfig(cfg ObjectStorageConfig) error {
	switch cfg.Mode {
	case ObjectStorageModeGCS:
		return nil
	case ObjectStorageModeGCSEmulator:
		if cfg.EmulatorHost == "" {
			return fmt.Errorf("OBJECT_STORAGE_MODE=%q requires STORAGE_EMULATOR_HOST to be set", cfg.Mode)
		}
		u, err := url.Parse(cfg.EmulatorHost)
		if err != nil || strings.TrimSpace(u.Scheme) == "" || strings.TrimSpace(u.Host) == "" {
			return fmt.Errorf("invalid STORAGE_EMULATOR_HOST=%q; expected absolute URL like http://fake-gcs:4443", cfg.EmulatorHost)
		}
		return nil
	default:
		return fmt.Errorf("invalid object storage mode %q", cfg.Mode)
	}
}
