// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tomtom215/papertrail/internal/validation"
)

// Validate checks that required configuration is present and valid. Every
// problem found is reported, joined into one error.
func (c *Config) Validate() error {
	var errs []error

	if err := validation.Validate(c); err != nil {
		errs = append(errs, err)
	}

	errs = append(errs,
		c.validateLogging(),
		c.validateCache(),
		c.validateRecommend(),
	)

	return errors.Join(errs...)
}

// validateLogging validates the logging configuration
func (c *Config) validateLogging() error {
	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "warning": true, "error": true,
		"fatal": true, "panic": true, "disabled": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error, fatal, panic, disabled (got: %s)", c.Logging.Level)
	}

	format := strings.ToLower(c.Logging.Format)
	if format != "json" && format != "console" {
		return fmt.Errorf("LOG_FORMAT must be 'json' or 'console' (got: %s)", c.Logging.Format)
	}

	if c.Logging.Destination == "" {
		return fmt.Errorf("LOG_DESTINATION must not be empty")
	}
	return nil
}

// validateCache validates backend-specific cache settings
func (c *Config) validateCache() error {
	if c.Cache.Backend == "redis" && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("REDIS_ADDR is required when CACHE_BACKEND=redis")
	}
	return nil
}

// validateRecommend validates the engine settings. A disabled engine is not
// checked.
func (c *Config) validateRecommend() error {
	if !c.Recommend.Enabled {
		return nil
	}
	if err := c.RecommendEngineConfig().Validate(); err != nil {
		return fmt.Errorf("recommend: %w", err)
	}
	return nil
}
