package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/prompterlab/fedopt/pkg/errors"
)

var validate = validator.New()

// Validate checks cfg against its struct tags plus cross-field rules that
// tags cannot express. All failures are reported together.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New(errors.InvalidConfiguration, "config is nil")
	}

	var problems []string

	if err := validate.Struct(cfg); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return errors.Wrap(err, errors.InvalidConfiguration, "config validation failed")
		}
		for _, ve := range verrs {
			problems = append(problems, fmt.Sprintf("%s failed %q", ve.Namespace(), ve.Tag()))
		}
	}

	if len(cfg.FPO.Seeds) > cfg.FPO.MaxPopulation {
		problems = append(problems, fmt.Sprintf(
			"fpo.max_population (%d) is smaller than the seed set (%d); generation-0 templates are never evicted",
			cfg.FPO.MaxPopulation, len(cfg.FPO.Seeds)))
	}

	seen := make(map[string]bool)
	for _, d := range cfg.FPO.Domains {
		if seen[d] {
			problems = append(problems, fmt.Sprintf("duplicate domain %q", d))
		}
		seen[d] = true
	}

	if cfg.Providers.Fallback != nil &&
		cfg.Providers.Fallback.Name == cfg.Providers.Primary.Name &&
		cfg.Providers.Fallback.Model == cfg.Providers.Primary.Model {
		problems = append(problems, "fallback provider is identical to the primary")
	}

	if len(problems) > 0 {
		return errors.New(errors.InvalidConfiguration,
			"invalid configuration: "+strings.Join(problems, "; "))
	}
	return nil
}
