package source

import (
	"regexp"
	"slices"
	"sort"
	"strings"
)

// Form is an SEC periodic report type.
type Form string

const (
	Form10K Form = "10-K"
	Form10Q Form = "10-Q"
)

// Section is one item of a filing.
type Section struct {
	Name string // "Item 7" for a 10-K, "Part I, Item 2" for a 10-Q
	Text string
}

var (
	tenKItems = []string{
		"1", "1A", "1B", "1C", "2", "3", "4", "5", "6", "7", "7A",
		"8", "9", "9A", "9B", "9C", "10", "11", "12", "13", "14", "15", "16",
	}
	tenQPartI  = []string{"1", "2", "3", "4"}
	tenQPartII = []string{"1", "1A", "2", "3", "4", "5", "6"}
)

var (
	itemHeading = regexp.MustCompile(`(?im)^\s*item\s+(\d{1,2}[a-c]?)\b`)
	partHeading = regexp.MustCompile(`(?im)^\s*part\s+(ii|i)\b`)
	nameNoise   = regexp.MustCompile(`[\s,.:]+`)
)

// ItemNames lists the item names of a form in filing order.
func ItemNames(form Form) []string {
	var names []string
	switch form {
	case Form10K:
		for _, n := range tenKItems {
			names = append(names, "Item "+n)
		}
	case Form10Q:
		for _, n := range tenQPartI {
			names = append(names, "Part I, Item "+n)
		}
		for _, n := range tenQPartII {
			names = append(names, "Part II, Item "+n)
		}
	}
	return names
}

// ResolveItemNames maps user-supplied names ("item 1a", "Item 7A.",
// "Part II Item 1A") to canonical names. For a 10-Q an unqualified item
// resolves to Part I when Part I has it, otherwise Part II. Unknown names
// are ErrInvalidInput.
func ResolveItemNames(form Form, names []string) ([]string, error) {
	known := make(map[string]string)
	for _, n := range ItemNames(form) {
		known[nameKey(n)] = n
	}

	out := make([]string, 0, len(names))
	for _, raw := range names {
		key := nameKey(raw)
		canon, ok := known[key]
		if !ok && form == Form10Q && strings.HasPrefix(key, "item") {
			if canon, ok = known["parti"+key]; !ok {
				canon, ok = known["partii"+key]
			}
		}
		if !ok {
			return nil, invalid("unknown %s item %q", form, raw)
		}
		if !slices.Contains(out, canon) {
			out = append(out, canon)
		}
	}
	return out, nil
}

func nameKey(s string) string {
	return nameNoise.ReplaceAllString(strings.ToLower(s), "")
}

type heading struct {
	name  string
	start int
}

// SplitItems cuts filing text into its items. Headings repeat in the table
// of contents, so for each item the occurrence that opens the longest
// segment wins. Sections are returned in document order and include their
// heading line.
func SplitItems(form Form, text string) []Section {
	known := make(map[string]bool)
	for _, n := range ItemNames(form) {
		known[n] = true
	}

	var parts [][]int
	if form == Form10Q {
		parts = partHeading.FindAllStringSubmatchIndex(text, -1)
	}

	matches := itemHeading.FindAllStringSubmatchIndex(text, -1)
	heads := make([]heading, 0, len(matches))
	for _, m := range matches {
		num := strings.ToUpper(text[m[2]:m[3]])
		name := "Item " + num
		if form == Form10Q {
			name = partOf(text, parts, m[0]) + ", " + name
		}
		heads = append(heads, heading{name: name, start: m[0]})
	}

	type best struct {
		start, end int
	}
	chosen := make(map[string]best)
	for i, h := range heads {
		if !known[h.name] {
			continue
		}
		end := len(text)
		if i+1 < len(heads) {
			end = heads[i+1].start
		}
		// A part heading also closes an item.
		for _, p := range parts {
			if p[0] > h.start && p[0] < end {
				end = p[0]
				break
			}
		}
		if cur, ok := chosen[h.name]; !ok || end-h.start > cur.end-cur.start {
			chosen[h.name] = best{start: h.start, end: end}
		}
	}

	sections := make([]Section, 0, len(chosen))
	for name, b := range chosen {
		sections = append(sections, Section{Name: name, Text: strings.TrimSpace(text[b.start:b.end])})
	}
	sort.Slice(sections, func(i, j int) bool {
		return chosen[sections[i].Name].start < chosen[sections[j].Name].start
	})
	return sections
}

// partOf names the part whose heading most recently precedes pos. Text
// before any part heading counts as Part I.
func partOf(text string, parts [][]int, pos int) string {
	part := "Part I"
	for _, p := range parts {
		if p[0] > pos {
			break
		}
		if strings.EqualFold(text[p[2]:p[3]], "ii") {
			part = "Part II"
		} else {
			part = "Part I"
		}
	}
	return part
}

// SelectSections filters sections to the given canonical names, in the
// order requested. An empty names list keeps everything.
func SelectSections(sections []Section, names []string) []Section {
	if len(names) == 0 {
		return sections
	}
	byName := make(map[string]Section, len(sections))
	for _, s := range sections {
		byName[s.Name] = s
	}
	out := make([]Section, 0, len(names))
	for _, n := range names {
		if s, ok := byName[n]; ok {
			out = append(out, s)
		}
	}
	return out
}
