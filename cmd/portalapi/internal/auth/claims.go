package auth

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// ExtractStrings reads a claim holding either a string or a list of strings.
// Missing or malformed claims yield an empty list; non-string items are skipped.
func ExtractStrings(claims map[string]any, claimField string) []string {
	rawValue, ok := claims[claimField]
	if !ok {
		return nil
	}

	if s, ok := rawValue.(string); ok {
		if s == "" {
			return nil
		}
		return []string{s}
	}

	var items []any
	if err := mapstructure.Decode(rawValue, &items); err != nil {
		return nil
	}

	result := make([]string, 0, len(items))
	for _, item := range items {
		if str, ok := item.(string); ok && str != "" {
			result = append(result, str)
		}
	}
	return result
}

// ExtractClaimString extracts a required, non-empty string claim.
func ExtractClaimString(claims map[string]any, claimField string) (string, error) {
	rawValue, ok := claims[claimField]
	if !ok {
		return "", fmt.Errorf("claim field %s not found", claimField)
	}

	value, ok := rawValue.(string)
	if !ok {
		return "", fmt.Errorf("claim field %s is not a string", claimField)
	}

	if value == "" {
		return "", fmt.Errorf("claim field %s is empty", claimField)
	}

	return value, nil
}
