package util

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/weiwei-tsao/myroom/apps/api/pkg/model"
)

var (
	// htmlTagPattern matches HTML tags like <span>, </span>, <script>, etc.
	htmlTagPattern = regexp.MustCompile(`<[^>]*>`)
	// multiSpacePattern matches multiple consecutive whitespace characters
	multiSpacePattern = regexp.MustCompile(`\s+`)
	// inlineSpacePattern matches runs of spaces and tabs only, keeping line breaks
	inlineSpacePattern = regexp.MustCompile(`[ \t]+`)
)

// CleanDraft removes markup and normalizes whitespace in owner-entered listing fields.
// Single-line fields are collapsed to one line; the description keeps its line breaks.
func CleanDraft(d model.ListingDraft) model.ListingDraft {
	return model.ListingDraft{
		Title:       CleanText(d.Title),
		Rent:        model.Rent(CleanText(string(d.Rent))),
		Amenities:   CleanText(d.Amenities),
		ContactInfo: CleanText(d.ContactInfo),
		Location:    CleanText(d.Location),
		PhotoURL:    CleanURL(d.PhotoURL),
		Description: CleanMultiline(d.Description),
	}
}

// CleanText removes HTML tags, decodes common entities and collapses whitespace.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	s = stripMarkup(s)
	s = multiSpacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// CleanMultiline is CleanText without joining lines.
func CleanMultiline(s string) string {
	if s == "" {
		return ""
	}
	s = stripMarkup(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(inlineSpacePattern.ReplaceAllString(line, " "))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// CleanURL fixes escaped URLs (e.g., https:\/\/ -> https://)
func CleanURL(link string) string {
	link = strings.ReplaceAll(link, `\/`, `/`)
	return strings.TrimSpace(link)
}

func stripMarkup(s string) string {
	// Fix escaped closing tags first so the parser sees real tags.
	s = strings.ReplaceAll(s, `<\/`, `</`)
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return htmlTagPattern.ReplaceAllString(s, "")
	}
	return strings.ReplaceAll(doc.Text(), "\u00a0", " ")
}

// NeedsCleanup checks if a stored listing carries markup or untrimmed text.
func NeedsCleanup(l model.Listing) bool {
	fields := []string{l.Title, string(l.Rent), l.Amenities, l.ContactInfo, l.Location}
	for _, f := range fields {
		if htmlTagPattern.MatchString(f) || f != strings.TrimSpace(f) || strings.Contains(f, "  ") {
			return true
		}
	}
	return false
}
