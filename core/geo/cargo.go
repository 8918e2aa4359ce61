package geo

import "strings"

// compatibility lists, per cargo type, the types it may share a truck with.
// Lookups go from the first type's entry only.
var compatibility = map[string][]string{
	"GENERAL":     {"ELECTRONICS", "CLOTHING", "FURNITURE", "INDUSTRIAL", "FOOD"},
	"ELECTRONICS": {"GENERAL", "CLOTHING", "FRAGILE"},
	"CLOTHING":    {"FRAGILE"},
	"FRAGILE":     {"ELECTRONICS", "CLOTHING"},
	"FOOD":        {"PHARMA", "PERISHABLE", "GENERAL"},
	"PHARMA":      {"PERISHABLE"},
	"PERISHABLE":  {"FOOD"},
	"CHEMICALS":   {"INDUSTRIAL"},
	"INDUSTRIAL":  {"GENERAL", "FURNITURE"},
	"FURNITURE":   {"GENERAL", "INDUSTRIAL"},
}

// Compatible reports whether cargo of type a may travel with cargo of type
// b, as seen from a's entry. Empty types are compatible.
func Compatible(a, b string) bool {
	a = strings.ToUpper(strings.TrimSpace(a))
	b = strings.ToUpper(strings.TrimSpace(b))
	if a == "" || b == "" || a == b {
		return true
	}
	for _, t := range compatibility[a] {
		if t == b {
			return true
		}
	}
	return false
}
