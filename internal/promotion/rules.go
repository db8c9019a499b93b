package promotion

import (
	"fmt"
	"io"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/orizon-lang/lattice/internal/errors"
	"github.com/orizon-lang/lattice/internal/types"
)

// SupportedRulesetVersions is the semver constraint rule-set documents
// must satisfy.
const SupportedRulesetVersions = "^1.0.0"

// Ruleset is the YAML form of a list of promotion rules:
//
//	version: 1.0.0
//	rules:
//	  - {a: Int64, b: Float16, result: Float64}
//	  - {a: "Rational{Int64}", b: Float64, result: Float64}
type Ruleset struct {
	Version string     `yaml:"version"`
	Rules   []RuleSpec `yaml:"rules"`
}

// RuleSpec is one rule with types written as type expressions.
type RuleSpec struct {
	A      string `yaml:"a"`
	B      string `yaml:"b"`
	Result string `yaml:"result"`
}

// LoadRules reads a rule set from r and registers its rules into reg.
// Every rule that fails to parse or register is reported; the valid ones
// are still registered.
func LoadRules(r io.Reader, u *types.Universe, reg *Registry) (int, error) {
	var rs Ruleset
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&rs); err != nil {
		if err == io.EOF {
			return 0, errors.RulesetInvalid("empty rule set")
		}
		return 0, errors.Wrap(errors.RulesetInvalid("decode rule set: %v", err), err)
	}
	if err := checkRulesetVersion(rs.Version); err != nil {
		return 0, err
	}

	var errs error
	loaded := 0
	for i, spec := range rs.Rules {
		if err := registerSpec(u, reg, spec); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("rule %d: %w", i+1, err))
			continue
		}
		loaded++
	}
	return loaded, errs
}

func checkRulesetVersion(version string) error {
	if version == "" {
		return errors.RulesetInvalid("rule set has no version")
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return errors.RulesetInvalid("rule set version %q: %v", version, err)
	}
	c, err := semver.NewConstraint(SupportedRulesetVersions)
	if err != nil {
		return err
	}
	if !c.Check(v) {
		return errors.RulesetInvalid("rule set version %s does not satisfy %s", v, SupportedRulesetVersions)
	}
	return nil
}

func registerSpec(u *types.Universe, reg *Registry, spec RuleSpec) error {
	var errs error
	parse := func(field, src string) types.Type {
		if src == "" {
			errs = multierr.Append(errs, errors.RulesetInvalid("missing %s", field))
			return nil
		}
		t, err := types.Parse(u, src)
		if err != nil {
			errs = multierr.Append(errs, err)
			return nil
		}
		return t
	}
	a := parse("a", spec.A)
	b := parse("b", spec.B)
	result := parse("result", spec.Result)
	if errs != nil {
		return errs
	}
	return reg.Register(a, b, result)
}
