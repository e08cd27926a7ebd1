package config

import (
	"errors"
	"fmt"
	"time"

	"targetsync/pkg/logging"
)

// Validate reports every configuration problem found, joined.
func (c Config) Validate() error {
	var errs []error

	if c.Connector.Name == "" {
		errs = append(errs, errors.New("connector.name is required"))
	}
	if !c.Connector.PermittedSynchronization.Valid() {
		errs = append(errs, fmt.Errorf("connector.permittedSynchronization %q is not one of bothDirections, toThirdParty, fromThirdParty, none",
			c.Connector.PermittedSynchronization))
	}
	if c.Connector.PageSize < 0 {
		errs = append(errs, fmt.Errorf("connector.pageSize must not be negative, got %d", c.Connector.PageSize))
	}
	errs = append(errs, validateDuration("connector.refreshInterval", c.Connector.RefreshInterval, true))
	errs = append(errs, validateDuration("connector.stopTimeout", c.Connector.StopTimeout, false))

	switch c.Source.Type {
	case SourceFile:
		if c.Source.File.Path == "" {
			errs = append(errs, errors.New("source.file.path is required for the file source"))
		}
		errs = append(errs, validateDuration("source.file.debounce", c.Source.File.Debounce, true))
	case SourceSQLite:
		if c.Source.SQLite.DSN == "" {
			errs = append(errs, errors.New("source.sqlite.dsn is required for the sqlite source"))
		}
	case SourceKubernetes:
	default:
		errs = append(errs, fmt.Errorf("source.type %q is not one of file, sqlite, kubernetes", c.Source.Type))
	}

	if c.Workers.DefaultKind == "" && len(c.Workers.ElementTypes) == 0 {
		errs = append(errs, errors.New("workers.defaultKind or workers.elementTypes must be set"))
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if _, err := logging.ParseFormat(c.Logging.Format); err != nil {
		errs = append(errs, fmt.Errorf("logging.format: %w", err))
	}

	return errors.Join(errs...)
}

func validateDuration(field, value string, allowZero bool) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if d < 0 || (d == 0 && !allowZero) {
		return fmt.Errorf("%s must be positive, got %s", field, value)
	}
	return nil
}
