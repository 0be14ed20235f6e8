package scoring

import "strings"

// BrandIcon overrides the category icon when Match occurs in the sender or subject.
type BrandIcon struct {
	Match string `yaml:"match" json:"match"`
	Icon  string `yaml:"icon" json:"icon"`
}

// IconSet maps a category, or a known brand, to a display icon identifier.
type IconSet struct {
	Brands     []BrandIcon       `yaml:"brands" json:"brands"`
	Categories map[string]string `yaml:"categories" json:"categories"`
	Default    string            `yaml:"default" json:"default"`
}

// DefaultIconSet returns the built-in brand and category icons.
func DefaultIconSet() IconSet {
	return IconSet{
		Brands: []BrandIcon{
			{Match: "amazon", Icon: "amazon"},
			{Match: "target", Icon: "target"},
			{Match: "costco", Icon: "costco"},
			{Match: "walmart", Icon: "walmart"},
			{Match: "netflix", Icon: "netflix"},
			{Match: "spotify", Icon: "spotify"},
			{Match: "uber", Icon: "uber"},
			{Match: "doordash", Icon: "doordash"},
			{Match: "delta", Icon: "plane"},
			{Match: "united", Icon: "plane"},
			{Match: "chase", Icon: "bank"},
			{Match: "paypal", Icon: "paypal"},
			{Match: "venmo", Icon: "venmo"},
		},
		Categories: map[string]string{
			"school":        "graduation-cap",
			"education":     "graduation-cap",
			"family":        "home-heart",
			"medical":       "stethoscope",
			"finance":       "wallet",
			"travel":        "plane",
			"sports":        "trophy",
			"shopping":      "shopping-bag",
			"home":          "home",
			"work":          "briefcase",
			"technology":    "laptop",
			"food":          "utensils",
			"entertainment": "film",
			"general":       "mail",
		},
		Default: "mail",
	}
}

// Icon resolves the display icon. Brand overrides win over the category table.
func (s *Scorer) Icon(category, sender, subject string) string {
	sender = strings.ToLower(sender)
	subject = strings.ToLower(subject)
	for _, b := range s.icons.Brands {
		m := strings.ToLower(b.Match)
		if m == "" {
			continue
		}
		if strings.Contains(sender, m) || strings.Contains(subject, m) {
			return b.Icon
		}
	}
	if icon, ok := s.icons.Categories[canonicalCategory(category)]; ok {
		return icon
	}
	return s.icons.Default
}
