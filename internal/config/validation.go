package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func (c *NamingConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	return validateDiscovery(c.Discovery)
}

func (c *StorageConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	if c.Discovery.Type == DiscoveryStatic && c.NamingAddress == "" {
		return fmt.Errorf("%w: naming_address is required with static discovery", ErrInvalidConfig)
	}
	return validateDiscovery(c.Discovery)
}

func (c *ClientConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	if c.Discovery.Type == DiscoveryStatic && c.NamingAddress == "" {
		return fmt.Errorf("%w: naming_address is required with static discovery", ErrInvalidConfig)
	}
	return validateDiscovery(c.Discovery)
}

func validateDiscovery(d DiscoveryConfig) error {
	if d.Type == DiscoveryEtcd && len(d.Endpoints) == 0 {
		return fmt.Errorf("%w: discovery.endpoints is required with etcd discovery", ErrInvalidConfig)
	}
	return nil
}

// formatValidationError reports the first failed field.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%w: %s: validation failed on '%s' tag (value: %v)",
			ErrInvalidConfig, e.Namespace(), e.Tag(), e.Value())
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
}
