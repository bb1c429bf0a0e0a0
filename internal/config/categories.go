package config

import (
	"sort"
	"strings"
	"unicode"
)

// Category describes one expense category of the synthetic dataset.
type Category struct {
	Name  string  // column name as written to the history table
	Label string  // English display label
	Share float64 // target share of the total monthly expense
}

// DefaultCategories lists the categories in table order.
var DefaultCategories = []Category{
	{Name: "Temel gıda", Label: "Basic Food", Share: 0.35},
	{Name: "Giyim ve aksesuar", Label: "Clothing", Share: 0.15},
	{Name: "Akaryakıt", Label: "Fuel", Share: 0.10},
	{Name: "Sağlık ve kişisel bakım", Label: "Healthcare", Share: 0.12},
	{Name: "Faturalar", Label: "Bills", Share: 0.20},
	{Name: "Diğer", Label: "Other", Share: 0.08},
}

const totalLabel = "Total Expense"

func normalizeKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r == '_' || r == '-' || unicode.IsSpace(r):
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// NormalizeCategoryName maps a column name or English label onto the
// canonical category name. Unknown names are returned trimmed.
// e.g., "basic_food" -> "Temel gıda"
func NormalizeCategoryName(raw string) string {
	key := normalizeKey(raw)
	for _, c := range DefaultCategories {
		if normalizeKey(c.Name) == key || normalizeKey(c.Label) == key {
			return c.Name
		}
	}
	return strings.TrimSpace(raw)
}

// LookupCategory returns the catalog entry for a category name or label.
func LookupCategory(name string) (Category, bool) {
	canonical := NormalizeCategoryName(name)
	for _, c := range DefaultCategories {
		if c.Name == canonical {
			return c, true
		}
	}
	return Category{}, false
}

// DisplayName returns the English label for a series, falling back to the
// name itself for categories outside the catalog.
func DisplayName(name string) string {
	if name == "Total_Expense" {
		return totalLabel
	}
	if c, ok := LookupCategory(name); ok {
		return c.Label
	}
	return name
}

// GeneratorCategories returns the default categories with any share
// overrides from the config applied. Overrides for names outside the
// catalog are appended in sorted order.
func GeneratorCategories(cfg GeneratorConfig) []Category {
	out := make([]Category, 0, len(DefaultCategories))
	seen := make(map[string]bool, len(cfg.Shares))
	for _, c := range DefaultCategories {
		for name, share := range cfg.Shares {
			if NormalizeCategoryName(name) == c.Name {
				c.Share = share
				seen[name] = true
			}
		}
		out = append(out, c)
	}

	var extra []string
	for name := range cfg.Shares {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		out = append(out, Category{Name: strings.TrimSpace(name), Label: strings.TrimSpace(name), Share: cfg.Shares[name]})
	}
	return out
}
