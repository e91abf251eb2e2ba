// Package eol computes disposal-stage impacts from regional pathway shares.
package eol

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/impact-engine/internal/model"
)

// Calculator holds regional pathway shares and pathway factors.
type Calculator struct {
	regions map[string]map[string]model.RegionalDefaults
	factors map[string]PathwayFactors
}

// NewCalculator returns a calculator with the built-in tables.
func NewCalculator() *Calculator {
	return &Calculator{regions: builtinRegions(), factors: builtinFactors()}
}

// LoadDefaults reads regional shares and pathway factors from YAML and merges
// them over the built-in tables, entry by entry.
func LoadDefaults(path string) (*Calculator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "eol: read defaults %s", path)
	}

	var wrapper struct {
		EoL struct {
			Regions map[string]map[string]model.RegionalDefaults `yaml:"regions"`
			Factors map[string]PathwayFactors                    `yaml:"factors"`
		} `yaml:"eol"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "eol: parse defaults")
	}

	c := NewCalculator()
	regions := make([]string, 0, len(wrapper.EoL.Regions))
	for region := range wrapper.EoL.Regions {
		regions = append(regions, region)
	}
	sort.Strings(regions)
	for _, name := range regions {
		region := NormalizeRegion(name)
		if c.regions[region] == nil {
			c.regions[region] = make(map[string]model.RegionalDefaults)
		}
		for key, d := range byKey(wrapper.EoL.Regions[name]) {
			c.regions[region][key] = d.value
		}
	}
	for key, f := range byKey(wrapper.EoL.Factors) {
		c.factors[key] = f.value
	}
	return c, nil
}

// NormalizeKey maps a material-type name to a known key, defaulting to other.
func NormalizeKey(key string) string {
	k := strings.ReplaceAll(model.NameKey(key), " ", "_")
	if alias, ok := keyAliases[k]; ok {
		return alias
	}
	switch k {
	case KeyGlass, KeyPlastic, KeyPaperCardboard, KeyAluminium, KeySteel, KeyOrganic, KeyOther:
		return k
	default:
		return KeyOther
	}
}

// NormalizeRegion upper-cases a region code; empty selects GLOBAL.
func NormalizeRegion(region string) string {
	r := strings.ToUpper(strings.TrimSpace(region))
	if r == "" {
		return RegionGlobal
	}
	return r
}

// Shares resolves pathway shares for a material key: the override for that
// key if present, else the region default, else the GLOBAL default.
func (c *Calculator) Shares(key, region string, overrides map[string]model.RegionalDefaults) model.RegionalDefaults {
	key = NormalizeKey(key)
	if o, ok := byKey(overrides)[key]; ok {
		return o.value
	}
	if d, ok := c.regions[NormalizeRegion(region)][key]; ok {
		return d
	}
	return c.regions[RegionGlobal][key]
}

type named[T any] struct {
	name  string
	value T
}

// byKey maps m to normalized material keys. When several names normalize to
// the same key, a name that is already the key wins, then the first name in
// sorted order.
func byKey[T any](m map[string]T) map[string]named[T] {
	if len(m) == 0 {
		return nil
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ci, cj := isCanonical(names[i]), isCanonical(names[j])
		if ci != cj {
			return ci
		}
		return names[i] < names[j]
	})

	out := make(map[string]named[T], len(names))
	for _, name := range names {
		key := NormalizeKey(name)
		if _, taken := out[key]; !taken {
			out[key] = named[T]{name: name, value: m[name]}
		}
	}
	return out
}

func isCanonical(name string) bool {
	return strings.ReplaceAll(model.NameKey(name), " ", "_") == NormalizeKey(name)
}

// Calculate returns the gross disposal impact, the avoided-emission credit
// and the net impact for qtyKg of a material. Shares are used as configured.
func (c *Calculator) Calculate(qtyKg float64, key, region string, overrides map[string]model.RegionalDefaults) model.EoLResult {
	if qtyKg <= 0 {
		return model.EoLResult{}
	}
	s := c.Shares(key, region, overrides)
	f, ok := c.factors[NormalizeKey(key)]
	if !ok {
		f = c.factors[KeyOther]
	}

	r, l, i, cp := s.Recycling/100, s.Landfill/100, s.Incineration/100, s.Composting/100
	gross := qtyKg * (r*f.Recycling + l*f.Landfill + i*f.Incineration + cp*f.Composting)
	avoided := qtyKg * (r*f.RecyclingCredit + i*f.EnergyRecoveryCredit)
	return model.EoLResult{Gross: gross, Avoided: avoided, Net: gross - avoided}
}

// ValidateConfig returns one eol_share_sum warning per override whose four
// shares fall outside 100 +/- 1, and one eol_override_alias warning per
// override shadowed by another name for the same key. Warnings are ordered by
// name.
func ValidateConfig(cfg model.EoLConfig) []model.Warning {
	resolved := byKey(cfg.Overrides)

	names := make([]string, 0, len(cfg.Overrides))
	for name := range cfg.Overrides {
		names = append(names, name)
	}
	sort.Strings(names)

	var warns []model.Warning
	for _, name := range names {
		key := NormalizeKey(name)
		if used := resolved[key].name; used != name {
			warns = append(warns, model.Warning{
				Code:    model.WarnEoLOverrideAlias,
				Subject: name,
				Message: fmt.Sprintf("override maps to %s, which %q already sets; ignored", key, used),
			})
			continue
		}
		if w, bad := checkShares(name, cfg.Overrides[name]); bad {
			warns = append(warns, w)
		}
	}
	return warns
}

// Validate checks the regional default table the same way.
func (c *Calculator) Validate() []model.Warning {
	regions := make([]string, 0, len(c.regions))
	for r := range c.regions {
		regions = append(regions, r)
	}
	sort.Strings(regions)

	var warns []model.Warning
	for _, r := range regions {
		keys := make([]string, 0, len(c.regions[r]))
		for k := range c.regions[r] {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if w, bad := checkShares(r+"/"+k, c.regions[r][k]); bad {
				warns = append(warns, w)
			}
		}
	}
	return warns
}

func checkShares(subject string, d model.RegionalDefaults) (model.Warning, bool) {
	if d.WithinTolerance() {
		return model.Warning{}, false
	}
	return model.Warning{
		Code:    model.WarnEoLShareSum,
		Subject: subject,
		Message: fmt.Sprintf("pathway shares sum to %.2f%%, expected 100%% +/- %.0f", d.Sum(), model.PathwayShareTolerance),
	}, true
}
