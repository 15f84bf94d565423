package defaults

import (
	"fmt"
	"os"
	"strings"

	e "github.com/pkg/errors"
	"github.com/sahib/config"
)

// CurrentVersion is the current version of sniffcap's config
const CurrentVersion = 0

// Defaults is the default validation for sniffcap
var Defaults = DefaultsV0

func asInt(val interface{}) (int64, error) {
	switch v := val.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	default:
		return 0, fmt.Errorf("not an int: %v", val)
	}
}

func intRangeValidator(min, max int64) func(val interface{}) error {
	return func(val interface{}) error {
		i, err := asInt(val)
		if err != nil {
			return err
		}

		if i < min || i > max {
			return fmt.Errorf("%d is out of range [%d, %d]", i, min, max)
		}

		return nil
	}
}

func enumIntValidator(options ...int64) func(val interface{}) error {
	return func(val interface{}) error {
		i, err := asInt(val)
		if err != nil {
			return err
		}

		for _, option := range options {
			if i == option {
				return nil
			}
		}

		return fmt.Errorf("%d is not one of %v", i, options)
	}
}

func enumValidator(options ...string) func(val interface{}) error {
	return func(val interface{}) error {
		s, ok := val.(string)
		if !ok {
			return fmt.Errorf("not a string: %v", val)
		}

		for _, option := range options {
			if s == option {
				return nil
			}
		}

		return fmt.Errorf("%s is not one of %s", s, strings.Join(options, ", "))
	}
}

// OpenDefaultConfig returns a config that only holds the defaults.
func OpenDefaultConfig() (*config.Config, error) {
	return config.Open(nil, Defaults, config.StrictnessPanic)
}

// OpenMigratedConfig takes the config.yml at path and loads it.
// If required, it also migrates the config structure to the newest
// version - sniffcap can always rely on the latest config keys to be present.
func OpenMigratedConfig(path string) (*config.Config, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, e.Wrap(err, "failed to open config")
	}

	defer fd.Close()

	// Add here any migrations with mgr.Add if needed.
	mgr := config.NewMigrater(CurrentVersion, config.StrictnessPanic)
	mgr.Add(0, nil, DefaultsV0)

	cfg, err := mgr.Migrate(config.NewYamlDecoder(fd))
	if err != nil {
		return nil, e.Wrap(err, "failed to migrate")
	}

	return cfg, nil
}
