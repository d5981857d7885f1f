package ctxbuilder

import (
	"regexp"
	"sort"
	"strings"
)

var (
	capitalizedRun = regexp.MustCompile(`\b([A-ZÀ-Ü][a-zà-ÿ]+(?:\s+[A-ZÀ-Ü][a-zà-ÿ]+){0,3})\b`)
	orgKeywords    = []string{"Inc", "Corp", "Ltd", "LLC", "Group", "Agency", "Organization", "Agence", "Groupe", "Société"}
	placePrepositions = []string{"in", "at", "near", "from", "à", "en", "près de", "depuis"}
	stopWords         = map[string]bool{
		"The": true, "This": true, "That": true, "These": true, "Those": true,
		"It": true, "They": true, "We": true, "He": true, "She": true,
		"Le": true, "La": true, "Les": true, "Ce": true, "Cette": true,
	}
)

// ExtractedEntities groups the pattern-based extraction results by kind.
type ExtractedEntities struct {
	Persons       []string
	Organizations []string
	Locations     []string
	Dates         []string
}

// Extract runs 4.L step 4's pattern-based entity extraction.
func Extract(text string) ExtractedEntities {
	var persons, orgs, locations []string
	seen := map[string]bool{}

	matches := capitalizedRun.FindAllStringIndex(text, -1)
	for _, m := range matches {
		candidate := strings.TrimSpace(text[m[0]:m[1]])
		if candidate == "" || stopWords[candidate] || seen[candidate] {
			continue
		}

		tail := text[m[1]:]
		tail = strings.TrimLeft(tail, " ")
		isOrg := false
		for _, kw := range orgKeywords {
			if strings.HasPrefix(tail, kw) {
				isOrg = true
				break
			}
		}
		if isOrg {
			seen[candidate] = true
			orgs = append(orgs, candidate)
			continue
		}

		head := text[:m[0]]
		isLocation := false
		for _, prep := range placePrepositions {
			if strings.HasSuffix(strings.TrimRight(head, " "), prep) {
				isLocation = true
				break
			}
		}
		if isLocation {
			seen[candidate] = true
			locations = append(locations, candidate)
			continue
		}

		seen[candidate] = true
		persons = append(persons, candidate)
	}

	dates := dedupe(datePattern.FindAllString(text, -1))
	sort.Strings(persons)
	sort.Strings(orgs)
	sort.Strings(locations)

	return ExtractedEntities{Persons: persons, Organizations: orgs, Locations: locations, Dates: dates}
}

func dedupe(items []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, i := range items {
		if !seen[i] {
			seen[i] = true
			out = append(out, i)
		}
	}
	return out
}
