package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/flemzord/sigbridge/internal/core"
)

// exclusiveNamespaces may have at most one configured module.
var exclusiveNamespaces = []string{"store"}

// Validate checks the structural validity of a Config.
// It verifies the version field, ensures modules are present, checks that
// all referenced module IDs exist in the registry, and validates the
// logging section. All problems are reported together.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if len(cfg.Modules) == 0 {
		errs = append(errs, errors.New("config: at least one module must be configured"))
	}

	for _, id := range Resolve(cfg) {
		if _, ok := core.GetModule(id); !ok {
			errs = append(errs, fmt.Errorf("config: unknown module %q", id))
		}
	}

	for _, ns := range exclusiveNamespaces {
		var found []string
		for _, id := range Resolve(cfg) {
			if core.ModuleID(id).Namespace() == ns {
				found = append(found, id)
			}
		}
		if len(found) > 1 {
			errs = append(errs, fmt.Errorf("config: only one %s module may be configured, got %s", ns, strings.Join(found, ", ")))
		}
	}

	errs = append(errs, validateLogging(cfg.Logging)...)

	return errors.Join(errs...)
}

func validateLogging(l LoggingConfig) []error {
	var errs []error

	switch strings.ToLower(l.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("config: logging.level %q is not one of debug, info, warn, error", l.Level))
	}

	switch strings.ToLower(l.Format) {
	case "", "auto", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("config: logging.format %q is not one of auto, text, json", l.Format))
	}

	if l.MaxSizeMB < 0 || l.MaxBackups < 0 || l.MaxAgeDays < 0 {
		errs = append(errs, errors.New("config: logging rotation limits must be non-negative"))
	}

	return errs
}
