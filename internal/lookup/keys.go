package lookup

import (
	"fmt"
	"strings"
)

// Cache keys are derived deterministically from the operation and its
// parameters so every instance reads and writes the same entries. The
// store-level namespace prefix is applied by the store itself.

// KeyVersion is the mirror marker. It is written last during a sync so a
// partially mirrored dataset never looks complete.
const KeyVersion = "v1:meta:version"

func KeyCountry(code string) string {
	return "v1:country:" + strings.ToUpper(strings.TrimSpace(code))
}

func KeyStates(code string) string {
	return "v1:states:" + strings.ToUpper(strings.TrimSpace(code))
}

func KeyCities(code, state string) string {
	return "v1:cities:" + strings.ToUpper(strings.TrimSpace(code)) + ":" + strings.ToUpper(strings.TrimSpace(state))
}

func KeyRegions() string {
	return "v1:regions"
}

func KeyRegionCountries(region string) string {
	return "v1:region:" + strings.ToLower(strings.TrimSpace(region))
}

func KeyCountries(limit, offset int) string {
	return fmt.Sprintf("v1:countries:l=%d:o=%d", limit, offset)
}

func KeySearch(kind, query string, limit, offset int) string {
	return fmt.Sprintf("v1:search:%s:q=%s:l=%d:o=%d", kind, strings.ToLower(strings.TrimSpace(query)), limit, offset)
}

func KeyPhoneCode(code string) string {
	code = strings.TrimSpace(code)
	if !strings.HasPrefix(code, "+") {
		code = "+" + code
	}
	return "v1:phone:" + code
}
