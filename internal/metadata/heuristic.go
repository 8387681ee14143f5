// Package metadata guesses paper metadata from extracted text using
// positional and lexical heuristics. Extraction is best-effort and
// never fails; every field degrades to its empty default.
package metadata

import "strings"

// Metadata holds the best-effort metadata of a paper. All fields may be
// empty; absence of a value never blocks processing.
type Metadata struct {
	Title    string   `json:"title"`
	Authors  []string `json:"authors"`
	Abstract string   `json:"abstract"`
	Keywords []string `json:"keywords"`
}

// titleRejects are case-insensitive substrings that disqualify a line
// from being the title.
var titleRejects = []string{"abstract", "introduction", "doi:", "http"}

// Extract scans the text for a title and an abstract.
//
// Title: the first of the leading 10 non-empty lines whose trimmed
// length is strictly between 10 and 200 characters and that contains
// none of the reject substrings.
//
// Abstract: lines following the first line containing "abstract"
// (case-insensitive), collected until a line starting with "Keywords:"
// or "1.", joined with single spaces.
//
// Authors and keywords are not populated by the current heuristics and
// stay empty.
func Extract(text string) Metadata {
	meta := Metadata{
		Authors:  []string{},
		Keywords: []string{},
	}

	lines := strings.Split(text, "\n")

	meta.Title = findTitle(lines)
	meta.Abstract = findAbstract(lines)

	return meta
}

func findTitle(lines []string) string {
	seen := 0
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		seen++
		if seen > 10 {
			break
		}
		if len(line) <= 10 || len(line) >= 200 {
			continue
		}
		lower := strings.ToLower(line)
		rejected := false
		for _, substr := range titleRejects {
			if strings.Contains(lower, substr) {
				rejected = true
				break
			}
		}
		if !rejected {
			return line
		}
	}
	return ""
}

func findAbstract(lines []string) string {
	anchor := -1
	for i, line := range lines {
		if strings.Contains(strings.ToLower(line), "abstract") {
			anchor = i
			break
		}
	}
	if anchor == -1 {
		return ""
	}

	var collected []string
	for _, line := range lines[anchor+1:] {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Keywords:") || strings.HasPrefix(line, "1.") {
			break
		}
		if line != "" {
			collected = append(collected, line)
		}
	}
	return strings.Join(collected, " ")
}
