package rawfile

import (
	"fmt"
	"strings"
)

// ValidatePairs verifies that every two-part primary candidate has its
// companion file present in the set. Companion names are matched
// case-insensitively against the primary's stem plus the required companion
// suffix. The returned problems are ordered like the input; pairing gaps are
// reportable conditions, never an error, because a dataset may legitimately be
// processed partially.
func ValidatePairs(candidates []Candidate) []string {
	namesLower := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		namesLower[strings.ToLower(c.Name)] = struct{}{}
	}

	var problems []string
	for _, c := range candidates {
		if c.Directory || c.Companion {
			continue
		}
		companionSuffix, ok := RequiresCompanion(c.Family)
		if !ok {
			continue
		}
		companionName := c.Stem() + companionSuffix
		if _, found := namesLower[strings.ToLower(companionName)]; !found {
			problems = append(problems, fmt.Sprintf("Missing pair for %s: expected %s", c.Name, companionName))
		}
	}
	return problems
}

// WantedSet computes, from a remote file listing, the names worth
// downloading: every name matching a known format family plus, transitively,
// the companion of any matched two-part primary. The result preserves the
// original casing of the listing and is returned in no particular order.
func WantedSet(remote []string) map[string]struct{} {
	remoteLower := make(map[string]string, len(remote))
	for _, name := range remote {
		remoteLower[strings.ToLower(name)] = name
	}

	wanted := make(map[string]struct{})
	for _, name := range remote {
		if _, ok := Suffix(name); !ok {
			continue
		}
		wanted[name] = struct{}{}

		family, _ := Resolve(name, false)
		companionSuffix, needs := RequiresCompanion(family)
		if !needs {
			continue
		}
		companion := Stem(name) + companionSuffix
		if original, found := remoteLower[strings.ToLower(companion)]; found {
			wanted[original] = struct{}{}
		}
	}
	return wanted
}
