package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"
)

// maxLevenshteinDistance is the maximum edit distance for "did you mean?"
// suggestions when unknown config keys are detected.
const maxLevenshteinDistance = 3

// knownKeys lists the valid keys of every config section.
var knownKeys = map[string]map[string]bool{
	"webdav": {"base_url": true, "domain": true, "username": true, "password": true},
	"seafile": {
		"api_url": true, "repo_id": true, "username": true, "password": true, "token_file": true,
	},
	"provisioning": {"enable_content_sync": true, "template_folder": true, "sentinel": true},
	"network": {
		"connect_timeout": true, "data_timeout": true, "user_agent": true,
		"max_retries": true, "requests_per_second": true,
	},
	"logging": {"log_level": true, "log_file": true, "log_format": true},
	"store":   {"path": true},
	"server": {
		"listen": true, "rate_limit": true, "rate_burst": true, "shutdown_timeout": true, "pid_file": true,
	},
}

// sortedKeys returns the keys of m in sorted order, for deterministic
// suggestions when two candidates have the same edit distance.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// checkUnknownKeys inspects TOML metadata for undecoded keys and returns an
// error with "did you mean?" suggestions for each unknown key.
func checkUnknownKeys(md *toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}

	var errs []error

	for _, key := range undecoded {
		if err := buildKeyError(key); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// buildKeyError describes one undecoded key. A top-level key is matched
// against section names; a nested key against its section's keys.
func buildKeyError(key toml.Key) error {
	if len(key) == 0 {
		return nil
	}

	section := key[0]

	keys, ok := knownKeys[section]
	if !ok {
		if suggestion := closestMatch(section, sortedKeys(knownKeys)); suggestion != "" {
			return fmt.Errorf("unknown config section %q, did you mean %q?", section, suggestion)
		}

		return fmt.Errorf("unknown config section %q", section)
	}

	if len(key) < 2 {
		return nil
	}

	field := key[1]
	if keys[field] {
		return nil
	}

	if suggestion := closestMatch(field, sortedKeys(keys)); suggestion != "" {
		return fmt.Errorf("unknown key %q in [%s], did you mean %q?", field, section, suggestion)
	}

	return fmt.Errorf("unknown key %q in [%s]", field, section)
}

// closestMatch finds the closest known key by Levenshtein distance.
// Returns empty string if no match is within maxLevenshteinDistance.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		d := levenshtein(unknown, k)
		if d < bestDist {
			bestDist = d
			best = k
		}
	}

	if bestDist <= maxLevenshteinDistance {
		return best
	}

	return ""
}

// levenshtein computes the edit distance between two strings.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}

	if b == "" {
		return len(a)
	}

	// Use single-row optimization to avoid allocating a full matrix.
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := range len(a) {
		curr[0] = i + 1

		for j := range len(b) {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}

			curr[j+1] = minOf(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}

// minOf returns the minimum of three integers.
func minOf(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}

	if c < m {
		m = c
	}

	return m
}
