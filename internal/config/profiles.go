package config

import (
	"fmt"
	"sort"
	"strings"

	"mysql-db-export/internal/anonymize"
	apperrors "mysql-db-export/internal/errors"
	"mysql-db-export/internal/export"
)

// Profile is a named export preset
type Profile struct {
	Description   string   `mapstructure:"description" yaml:"description"`
	Exclude       []string `mapstructure:"exclude" yaml:"exclude"`
	StructureOnly []string `mapstructure:"structure_only" yaml:"structure_only"`
	// IncludeOnly empty means every table.
	IncludeOnly []string           `mapstructure:"include_only" yaml:"include_only,omitempty"`
	Anonymize   anonymize.RawRules `mapstructure:"anonymize" yaml:"anonymize"`
}

// Settings converts the profile into the export view of it
func (p Profile) Settings(name string) export.ProfileSettings {
	return export.ProfileSettings{
		Name:          name,
		Exclude:       cloneStrings(p.Exclude),
		StructureOnly: cloneStrings(p.StructureOnly),
		IncludeOnly:   includeOnly(p.IncludeOnly),
		Anonymize:     p.Anonymize,
	}
}

// HasAnonymization reports whether the profile carries column rules
func (p Profile) HasAnonymization() bool {
	return len(p.Anonymize) > 0
}

// ProfileSummary is the listing view of a profile
type ProfileSummary struct {
	Name               string `json:"name" yaml:"name"`
	Description        string `json:"description" yaml:"description"`
	ExcludeCount       int    `json:"exclude_count" yaml:"exclude_count"`
	StructureOnlyCount int    `json:"structure_only_count" yaml:"structure_only_count"`
	HasAnonymization   bool   `json:"has_anonymization" yaml:"has_anonymization"`
}

// Features describes the summary in one short phrase, "-" when the
// profile changes nothing.
func (s ProfileSummary) Features() string {
	var parts []string
	if s.ExcludeCount > 0 {
		parts = append(parts, fmt.Sprintf("%d exclusions", s.ExcludeCount))
	}
	if s.StructureOnlyCount > 0 {
		parts = append(parts, fmt.Sprintf("%d structure-only", s.StructureOnlyCount))
	}
	if s.HasAnonymization {
		parts = append(parts, "anonymization")
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

// ProfileManager looks up, merges and registers profiles
type ProfileManager struct {
	profiles map[string]Profile
}

// NewProfileManager creates a manager over a copy of profiles
func NewProfileManager(profiles map[string]Profile) *ProfileManager {
	pm := &ProfileManager{profiles: make(map[string]Profile, len(profiles))}
	for name, p := range profiles {
		pm.profiles[name] = p
	}
	return pm
}

// Get returns the named profile
func (pm *ProfileManager) Get(name string) (Profile, error) {
	p, ok := pm.profiles[name]
	if !ok {
		return Profile{}, apperrors.NewConfigurationError(
			fmt.Sprintf("Profile '%s' not found. Available profiles: %s", name, joinNames(pm.Names())), nil).
			WithContext("profile", name)
	}
	return p, nil
}

// Exists reports whether a profile is registered
func (pm *ProfileManager) Exists(name string) bool {
	_, ok := pm.profiles[name]
	return ok
}

// Names returns the registered profile names, sorted
func (pm *ProfileManager) Names() []string {
	return sortedNames(pm.profiles)
}

// All returns a copy of every profile
func (pm *ProfileManager) All() map[string]Profile {
	out := make(map[string]Profile, len(pm.profiles))
	for name, p := range pm.profiles {
		out[name] = p
	}
	return out
}

// WithDescriptions summarizes every profile in name order
func (pm *ProfileManager) WithDescriptions() []ProfileSummary {
	names := pm.Names()
	summaries := make([]ProfileSummary, 0, len(names))
	for _, name := range names {
		p := pm.profiles[name]
		description := p.Description
		if description == "" {
			description = "No description"
		}
		summaries = append(summaries, ProfileSummary{
			Name:               name,
			Description:        description,
			ExcludeCount:       len(p.Exclude),
			StructureOnlyCount: len(p.StructureOnly),
			HasAnonymization:   p.HasAnonymization(),
		})
	}
	return summaries
}

// Merge layers overrides on top of base. Exclude and structure-only lists are
// unioned without duplicates. Description and include-only are replaced when
// the override sets them. Anonymize rules are replaced per table.
func (pm *ProfileManager) Merge(base, overrides Profile) Profile {
	merged := Profile{
		Description:   base.Description,
		Exclude:       unique(base.Exclude, overrides.Exclude),
		StructureOnly: unique(base.StructureOnly, overrides.StructureOnly),
		IncludeOnly:   cloneStrings(base.IncludeOnly),
	}
	if overrides.Description != "" {
		merged.Description = overrides.Description
	}
	if len(overrides.IncludeOnly) > 0 {
		merged.IncludeOnly = cloneStrings(overrides.IncludeOnly)
	}

	if len(base.Anonymize) > 0 || len(overrides.Anonymize) > 0 {
		merged.Anonymize = make(anonymize.RawRules, len(base.Anonymize)+len(overrides.Anonymize))
		for table, columns := range base.Anonymize {
			merged.Anonymize[table] = columns
		}
		for table, columns := range overrides.Anonymize {
			merged.Anonymize[table] = columns
		}
	}
	return merged
}

// Register adds or replaces a profile
func (pm *ProfileManager) Register(name string, p Profile) {
	pm.profiles[name] = p
}

// Extend registers name as base merged with overrides
func (pm *ProfileManager) Extend(name, base string, overrides Profile) (Profile, error) {
	baseProfile, err := pm.Get(base)
	if err != nil {
		return Profile{}, err
	}
	p := pm.Merge(baseProfile, overrides)
	pm.Register(name, p)
	return p, nil
}

// DefaultProfiles returns the built-in profile catalog
func DefaultProfiles() map[string]Profile {
	noise := []string{
		"telescope_*", "pulse_*", "sessions", "cache", "cache_locks",
		"jobs", "job_batches", "failed_jobs", "*_logs",
	}
	clean := append(cloneStrings(noise), "password_reset_tokens", "personal_access_tokens")

	return map[string]Profile{
		"default": {
			Description:   "Full database export with no exclusions",
			Exclude:       []string{},
			StructureOnly: []string{},
		},
		"clean": {
			Description:   "Export without logs, sessions, and cache tables",
			Exclude:       clean,
			StructureOnly: []string{"audits"},
		},
		"inspection": {
			Description:   "Export only telescope and audit data for debugging",
			Exclude:       []string{},
			StructureOnly: []string{},
			IncludeOnly:   []string{"telescope_*", "audits"},
		},
		"minimal": {
			Description:   "Minimal export with structure-only for large tables",
			Exclude:       cloneStrings(noise),
			StructureOnly: []string{"activity_log", "notifications", "audits"},
		},
		"schema": {
			Description:   "Structure-only export (no data)",
			Exclude:       []string{},
			StructureOnly: []string{"*"},
		},
		"anonymized": {
			Description:   "Clean export with anonymized PII data",
			Exclude:       cloneStrings(clean),
			StructureOnly: []string{},
			Anonymize: anonymize.RawRules{
				"users": {
					"name":           {"strategy": "faker", "method": "name"},
					"email":          {"strategy": "faker", "method": "safeEmail"},
					"password":       {"strategy": "hash", "value": "password"},
					"phone":          {"strategy": "faker", "method": "phoneNumber"},
					"remember_token": {"strategy": "null"},
				},
			},
		},
	}
}

func unique(lists ...[]string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, list := range lists {
		for _, item := range list {
			if !seen[item] {
				seen[item] = true
				out = append(out, item)
			}
		}
	}
	return out
}

// includeOnly keeps "no restriction" as nil so an empty list from a
// config file does not select zero tables
func includeOnly(patterns []string) []string {
	if len(patterns) == 0 {
		return nil
	}
	return cloneStrings(patterns)
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string{}, s...)
}

func joinNames(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	sorted := append([]string{}, names...)
	sort.Strings(sorted)
	return strings.Join(sorted, ", ")
}
