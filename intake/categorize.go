package intake

import (
	"strings"

	"sahayak/grievance"
)

// categoryKeywords maps free-text cues to categories. Order matters: earlier
// entries win when a message mentions several issues.
var categoryKeywords = []struct {
	category grievance.Category
	words    []string
}{
	{grievance.CategorySewage, []string{"sewage", "sewer", "drain", "gutter", "nala"}},
	{grievance.CategoryWater, []string{"water", "pipe", "leak", "pani", "tanker"}},
	{grievance.CategoryGarbage, []string{"garbage", "trash", "waste", "kachra", "dump"}},
	{grievance.CategoryStreetlight, []string{"streetlight", "street light", "lamp", "bulb", "pole"}},
	{grievance.CategoryRoad, []string{"road", "pothole", "sadak", "footpath"}},
	{grievance.CategoryPestControl, []string{"mosquito", "pest", "dengue", "rat", "fogging"}},
	{grievance.CategoryTrees, []string{"tree", "branch", "pruning"}},
}

// categorizeText guesses a category from raw complaint text. Returns
// CategoryOther when nothing matches; a citizen-facing channel never drops a
// complaint for lack of a category.
func categorizeText(text string) grievance.Category {
	lowered := strings.ToLower(text)
	for _, entry := range categoryKeywords {
		for _, w := range entry.words {
			if strings.Contains(lowered, w) {
				return entry.category
			}
		}
	}
	return grievance.CategoryOther
}

// normalizeCategory accepts an adapter-supplied category when it is valid and
// falls back to keyword matching over the raw text.
func normalizeCategory(supplied string, text string) grievance.Category {
	c := grievance.Category(strings.ToLower(strings.TrimSpace(supplied)))
	if c != "" && grievance.ValidCategory(c) {
		return c
	}
	return categorizeText(text)
}

// titleFor derives the short display title shown in the operator inbox.
func titleFor(category grievance.Category, location string) string {
	name := strings.ReplaceAll(string(category), "-", " ")
	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	if seg, _, found := strings.Cut(location, ","); found || seg != "" {
		seg = strings.TrimSpace(seg)
		if seg != "" {
			return name + " report @ " + seg
		}
	}
	return name + " report"
}
