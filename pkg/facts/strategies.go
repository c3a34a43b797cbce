package facts

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/fitgraph/backend/pkg/evidence"
	"github.com/fitgraph/backend/pkg/extract"
)

// Strategies run in this order; the tier decides which facts survive the cap.
const (
	tierDoDont = iota
	tierHeadedBullets
	tierDriverScores
	tierPhrasePatterns
	tierFallbackBullets
	tierCount
)

var (
	reDoDontLine = regexp.MustCompile(`(?i)^\s*(do|don'?t)\s*:\s*(.+)$`)
	reBulletLine = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+(.+)$`)

	// Driving-force score lines: "Intellectual (82)" or "Intellectual 82".
	reDriverParen = regexp.MustCompile(`^\s*([A-Z][A-Za-z][A-Za-z /-]{0,38}?)\s*\((\d{2,3})\)\s*\.?\s*$`)
	reDriverBare  = regexp.MustCompile(`^\s*([A-Z][A-Za-z][A-Za-z /-]{0,38}?)\s+(\d{2,3})\s*$`)
)

// Section headings that introduce collectible bullet lists.
var sectionHeadings = []string{
	"checklist for communicating",
	"behavioral characteristics",
	"driving forces",
	"communication",
	"strengths",
	"areas for improvement",
	"checklist",
	"motivators",
	"preferences",
	"do's and don'ts",
	"do and don't",
	"key traits",
	"risks",
}

// Names that look like driver score lines but never are.
var driverNameStoplist = map[string]struct{}{
	"page":      {},
	"copyright": {},
	"section":   {},
	"figure":    {},
	"table":     {},
	"chapter":   {},
}

// Generic phrase patterns, lowest-confidence strategy before the bullet
// fallback. The evidence is the matched phrase alone so surrounding
// boilerplate never bleeds into citations.
var (
	traitPhrases = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\btends to\s+[^.\n]{3,150}`),
		regexp.MustCompile(`(?i)\bprefers\s+[^.\n]{3,150}`),
		regexp.MustCompile(`(?i)\btypically\s+[^.\n]{3,150}`),
		regexp.MustCompile(`(?i)\blikes to\s+[^.\n]{3,150}`),
	}
	driverPhrases = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bmotivated by\s+[^.\n]{3,150}`),
		regexp.MustCompile(`(?i)\bdriven by\s+[^.\n]{3,150}`),
		regexp.MustCompile(`(?i)\bvalues\s+[^.\n]{3,150}`),
	}
	riskPhrases = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bavoids?\s+[^.\n]{3,150}`),
		regexp.MustCompile(`(?i)\brisks?\s*:\s*[^.\n]{3,150}`),
		regexp.MustCompile(`(?i)\bwatch (?:out for|for)\s+[^.\n]{3,150}`),
		regexp.MustCompile(`(?i)\btendency to\s+[^.\n]{3,150}`),
	}
)

func upperFirst(s string) string {
	for i, r := range s {
		return string(unicode.ToUpper(r)) + s[i+len(string(r)):]
	}
	return s
}

func capLabel(s string) string {
	if len(s) > MaxLabelLen {
		return s[:MaxLabelLen]
	}
	return s
}

// pageCounters accumulates diagnostics across strategies.
type pageCounters struct {
	headings  int
	bullets   int
	doLines   int
	dontLines int
}

// extractDoDontLines finds Do:/Don't: lines (and the common Dont misspelling),
// strips the prefix, cleans the remainder, and re-prefixes it. Highest
// priority: these are the most reliable facts in TTI-style reports.
func extractDoDontLines(p extract.Page, counters *pageCounters) []Fact {
	var out []Fact
	for _, line := range strings.Split(p.Text, "\n") {
		m := reDoDontLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		prefix := "Do"
		factType := FactTraitDo
		if strings.HasPrefix(strings.ToLower(m[1]), "don") {
			prefix = "Don't"
			factType = FactTraitDont
		}
		body := evidence.CleanSnippet(m[2], evidence.MaxSnippetLen-10)
		if body == "" {
			continue
		}
		label := capLabel(prefix + ": " + body)
		if !evidence.IsAcceptable(label) {
			continue
		}
		if factType == FactTraitDo {
			counters.doLines++
		} else {
			counters.dontLines++
		}
		out = append(out, Fact{
			Type:     factType,
			Label:    label,
			Evidence: Evidence{Page: p.Page, Snippet: label},
		})
	}
	return out
}

func matchHeading(line string) (matched bool, communication bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || len(trimmed) > 60 {
		return false, false
	}
	lower := strings.ToLower(trimmed)
	for _, h := range sectionHeadings {
		if strings.Contains(lower, h) {
			isComm := strings.Contains(lower, "communicat") || strings.Contains(lower, "checklist")
			return true, isComm
		}
	}
	return false, false
}

// extractHeadedBullets collects bullet/numbered lines under known section
// headings. Communication-flavored sections yield communication_do/dont
// facts, all other sections strengths_do/risks_dont, with the negative
// variant chosen when the bullet mentions avoidance.
func extractHeadedBullets(p extract.Page, counters *pageCounters) []Fact {
	var out []Fact
	inSection := false
	communication := false

	for _, line := range strings.Split(p.Text, "\n") {
		if matched, isComm := matchHeading(line); matched {
			inSection = true
			communication = isComm
			counters.headings++
			continue
		}

		m := reBulletLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		counters.bullets++
		if !inSection {
			continue
		}
		content := strings.TrimSpace(m[1])
		if len(content) < 15 || len(content) > 150 {
			continue
		}
		// Do:/Don't: bullets belong to the higher-priority strategy.
		if reDoDontLine.MatchString(content) {
			continue
		}
		cleaned, ok := evidence.PrepareForDisplay(content, evidence.MaxSnippetLen)
		if !ok {
			continue
		}

		lower := strings.ToLower(cleaned)
		negative := strings.Contains(lower, "avoid") ||
			strings.Contains(lower, "don't") ||
			strings.Contains(lower, "do not")

		var factType FactType
		switch {
		case communication && negative:
			factType = FactCommunicationDont
		case communication:
			factType = FactCommunicationDo
		case negative:
			factType = FactRisksDont
		default:
			factType = FactStrengthsDo
		}

		out = append(out, Fact{
			Type:     factType,
			Label:    capLabel(cleaned),
			Evidence: Evidence{Page: p.Page, Snippet: cleaned},
		})
	}
	return out
}

// extractDriverScores finds driving-force score lines like "Intellectual (82)".
// The numeric score is kept on the fact; the evidence always contains the
// literal matched line.
func extractDriverScores(p extract.Page) []Fact {
	var out []Fact
	for _, line := range strings.Split(p.Text, "\n") {
		m := reDriverParen.FindStringSubmatch(line)
		if m == nil {
			m = reDriverBare.FindStringSubmatch(line)
		}
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		if _, stop := driverNameStoplist[strings.ToLower(name)]; stop {
			continue
		}
		score, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}

		raw := evidence.NormalizeWhitespace(line)
		snippet := evidence.CleanSnippet(raw, evidence.MaxSnippetLen)
		if !evidence.IsAcceptable(snippet) {
			// Score lines are short; frame them so the citation still names
			// its section and keeps the literal line.
			snippet = evidence.CleanSnippet("Driving forces: "+raw, evidence.MaxSnippetLen)
		}
		if !evidence.IsAcceptable(snippet) {
			continue
		}

		out = append(out, Fact{
			Type:     FactDriver,
			Label:    capLabel(name),
			Evidence: Evidence{Page: p.Page, Snippet: snippet},
			Score:    score,
		})
	}
	return out
}

func phraseFacts(p extract.Page, patterns []*regexp.Regexp, factType FactType) []Fact {
	var out []Fact
	for _, re := range patterns {
		for _, match := range re.FindAllString(p.Text, -1) {
			phrase := upperFirst(evidence.NormalizeWhitespace(match))
			cleaned, ok := evidence.PrepareForDisplay(phrase, evidence.MaxSnippetLen)
			if !ok {
				continue
			}
			out = append(out, Fact{
				Type:     factType,
				Label:    capLabel(cleaned),
				Evidence: Evidence{Page: p.Page, Snippet: cleaned},
			})
		}
	}
	return out
}

// extractPhrasePatterns maps generic report phrasing onto trait/driver/risk
// facts.
func extractPhrasePatterns(p extract.Page) []Fact {
	out := phraseFacts(p, traitPhrases, FactTrait)
	out = append(out, phraseFacts(p, driverPhrases, FactDriver)...)
	out = append(out, phraseFacts(p, riskPhrases, FactRisk)...)
	return out
}

// extractFallbackBullets takes the first bullets from the first pages as
// generic traits. Only used when every other strategy came up empty, so odd
// layouts still produce something reviewable.
func extractFallbackBullets(pages []extract.Page) []Fact {
	const (
		maxPages   = 5
		maxBullets = 10
	)
	var out []Fact
	for i, p := range pages {
		if i >= maxPages || len(out) >= maxBullets {
			break
		}
		for _, line := range strings.Split(p.Text, "\n") {
			if len(out) >= maxBullets {
				break
			}
			m := reBulletLine.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			content := upperFirst(strings.TrimSpace(m[1]))
			if len(content) < 4 || len(content) > 120 {
				continue
			}
			cleaned, ok := evidence.PrepareForDisplay(content, evidence.MaxSnippetLen)
			if !ok {
				continue
			}
			out = append(out, Fact{
				Type:     FactTrait,
				Label:    capLabel(cleaned),
				Evidence: Evidence{Page: p.Page, Snippet: cleaned},
			})
		}
	}
	return out
}
