// Package advisor produces decision-support answers from graph context only.
// It never invents facts: with no evidence in the pack the recommendation is
// exactly "Not enough evidence in graph.", a hard rule rather than a
// best-effort fallback.
package advisor

import (
	"regexp"
	"strings"

	"github.com/fitgraph/backend/pkg/contextpack"
)

// NoEvidenceRecommendation is returned verbatim when the pack is empty.
const NoEvidenceRecommendation = "Not enough evidence in graph."

// Advice is one structured answer.
type Advice struct {
	Recommendation      string   `json:"recommendation"`
	Why                 string   `json:"why"`
	SignalsStillMissing []string `json:"signals_still_missing"`
	SuggestedNextStep   string   `json:"suggested_next_step"`
}

// Intent classifies what the question is after.
type Intent string

const (
	IntentApproach Intent = "approach"
	IntentRisk     Intent = "risk"
	IntentNeed     Intent = "need"
	IntentNextStep Intent = "next_step"
	IntentMoney    Intent = "money"
	IntentDecision Intent = "decision"
	IntentGeneral  Intent = "general"
)

var intentPatterns = []struct {
	re     *regexp.Regexp
	intent Intent
}{
	{regexp.MustCompile(`\b(how\s+should\s+i\s+approach|approach\s+them|best\s+way\s+to)\b`), IntentApproach},
	{regexp.MustCompile(`\b(risk|watch\s+out|avoid|pitfall)\b`), IntentRisk},
	{regexp.MustCompile(`\b(need|want|motivat|driver|value)\b`), IntentNeed},
	{regexp.MustCompile(`\b(next\s+step|what\s+to\s+do|suggested\s+action)\b`), IntentNextStep},
	{regexp.MustCompile(`\b(money|financial|investment|price)\b`), IntentMoney},
	{regexp.MustCompile(`\b(decision|decide|commit)\b`), IntentDecision},
}

// ClassifyIntent maps a free-text question onto an intent, first match wins.
func ClassifyIntent(question string) Intent {
	q := strings.ToLower(strings.TrimSpace(question))
	if q == "" {
		return IntentGeneral
	}
	for _, p := range intentPatterns {
		if p.re.MatchString(q) {
			return p.intent
		}
	}
	return IntentGeneral
}

func labels(entries []contextpack.FactEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		label := strings.TrimSpace(e.Label)
		if label != "" {
			out = append(out, label)
		}
	}
	return out
}

func cite(labelList []string, kind string) string {
	if len(labelList) == 0 {
		return ""
	}
	if len(labelList) > 5 {
		labelList = labelList[:5]
	}
	return kind + "(s): " + strings.Join(labelList, "; ") + "."
}

func head(list []string, n int) []string {
	if len(list) > n {
		return list[:n]
	}
	return list
}

func anyContains(list []string, substrings ...string) bool {
	for _, s := range list {
		lower := strings.ToLower(s)
		for _, sub := range substrings {
			if strings.Contains(lower, sub) {
				return true
			}
		}
	}
	return false
}

func filterContains(list []string, substrings ...string) []string {
	var out []string
	for _, s := range list {
		lower := strings.ToLower(s)
		for _, sub := range substrings {
			if strings.Contains(lower, sub) {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// Advise builds a recommendation from the pack for the given question.
func Advise(pack contextpack.Pack, question string) Advice {
	if pack.Empty() {
		return Advice{
			Recommendation:      NoEvidenceRecommendation,
			Why:                 "",
			SignalsStillMissing: []string{"Upload a personality report or build insights for this client."},
			SuggestedNextStep:   "Upload a PDF and build insights, then ask again.",
		}
	}

	traits := labels(pack.Traits)
	drivers := labels(pack.Drivers)
	risks := labels(pack.Risks)

	var (
		recommendation string
		whyParts       []string
		missing        []string
		nextStep       string
	)
	addWhy := func(part string) {
		if part != "" {
			whyParts = append(whyParts, part)
		}
	}

	switch ClassifyIntent(question) {
	case IntentApproach:
		if len(drivers) > 0 {
			recommendation = "Lead with what motivates them: frame the conversation around " + drivers[0] + "."
			addWhy(cite(head(drivers, 2), "Driver"))
		}
		if len(risks) > 0 {
			if recommendation != "" {
				recommendation += " Avoid triggering: " + risks[0] + "."
			} else {
				recommendation = "Avoid triggering: " + risks[0] + ". Adjust tone and pace accordingly."
			}
			addWhy(cite(head(risks, 2), "Risk"))
		}
		if recommendation == "" && len(traits) > 0 {
			recommendation = "Match their style: " + traits[0] + ". Use that to shape your ask."
			addWhy(cite(head(traits, 2), "Trait"))
		}
		if recommendation == "" {
			recommendation = "Use the traits and drivers above to tailor your opening; keep the ask clear and time-bound."
			addWhy(cite(append(append([]string{}, traits...), drivers...), "Trait/Driver"))
		}

	case IntentRisk:
		if len(risks) > 0 {
			recommendation = "Primary risk in graph: " + risks[0] + ". Plan to mitigate (e.g. reframe, small step, or name it gently)."
			addWhy(cite(risks, "Risk"))
			missing = []string{"Specific situations that trigger the risk."}
		} else {
			recommendation = "No explicit risks in graph. Stay alert to hesitation or avoidance in the conversation."
			addWhy(cite(head(traits, 2), "Trait"))
			missing = []string{"What they tend to avoid or fear."}
		}

	case IntentNeed:
		if len(drivers) > 0 {
			recommendation = "Address their drivers: " + strings.Join(head(drivers, 3), ", ") + ". Tie your recommendation to how it serves these."
			addWhy(cite(drivers, "Driver"))
			missing = []string{"How strongly each driver ranks."}
		} else {
			recommendation = "No drivers in graph. Ask in the next call: 'What would make this a clear yes for you?'"
			addWhy("No drivers extracted yet.")
			missing = []string{"What they value most."}
		}

	case IntentNextStep:
		switch {
		case anyContains(risks, "decision", "overthink", "avoid"):
			recommendation = "Give one clear next step and one deadline. Avoid open-ended options."
			addWhy(cite(risks, "Risk"))
		case len(drivers) > 0:
			recommendation = "Frame the next step as something they own: e.g. 'You choose the date' or 'You set the outcome.'"
			addWhy(cite(head(drivers, 2), "Driver"))
		default:
			recommendation = "Propose one concrete action and one short-term checkpoint (e.g. 48 hours)."
			addWhy(cite(head(traits, 2), "Trait"))
		}
		nextStep = "In the next call: state the one action, the deadline, and ask: 'What would need to be true for you to do this by then?'"

	case IntentMoney:
		moneyRisks := filterContains(risks, "money", "financial")
		if len(moneyRisks) > 0 {
			recommendation = "Introduce money early and calmly; confirm comfort level before numbers. Use their language."
			addWhy(cite(moneyRisks, "Risk"))
		} else {
			recommendation = "No money-specific risk in graph. Still: name the investment and the return in their terms (drivers/traits)."
			addWhy(cite(append(append([]string{}, drivers...), head(traits, 1)...), "Driver/Trait"))
			missing = []string{"Their past experience with money conversations."}
		}

	case IntentDecision:
		decisionRisks := filterContains(risks, "decision", "overthink", "paralysis")
		if len(decisionRisks) > 0 {
			recommendation = "Limit options to 2 and set a decision deadline. Offer: 'A or B by [date].'"
			addWhy(cite(decisionRisks, "Risk"))
		} else {
			recommendation = "Be explicit: 'I need a yes or no by X.' Then pause. Use traits to choose tone."
			addWhy(cite(head(traits, 2), "Trait"))
		}
		nextStep = "Ask: 'What would need to be true for you to decide by [date]?'"

	default:
		recommendation = "Use traits to match style, drivers to motivate, and risks to avoid pitfalls. Keep one clear ask and one deadline."
		addWhy(cite(head(traits, 2), "Trait"))
		addWhy(cite(head(drivers, 2), "Driver"))
		if len(risks) > 0 {
			addWhy(cite(head(risks, 2), "Risk"))
		}
		if !anyContains(append(append([]string{}, risks...), traits...), "time", "deadline") {
			missing = []string{"Their timeline."}
		}
	}

	why := "Based on the traits, drivers, and risks in the graph."
	if len(whyParts) > 0 {
		why = strings.Join(whyParts, " ")
	}
	if nextStep == "" {
		nextStep = "In the next call: one clear ask, one deadline, and one check for blockers."
	}
	if recommendation == "" {
		recommendation = NoEvidenceRecommendation
	}
	if missing == nil {
		missing = []string{}
	}

	return Advice{
		Recommendation:      recommendation,
		Why:                 why,
		SignalsStillMissing: missing,
		SuggestedNextStep:   nextStep,
	}
}
