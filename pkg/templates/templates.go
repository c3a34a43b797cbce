// Package templates renders deterministic advisor artifacts from normalized
// signals: a call plan, a client summary, and a follow-up email draft. No
// model is involved; the same signals always render the same text.
package templates

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fitgraph/backend/pkg/signals"
)

// NotEnoughSignalsMessage is returned by RenderClientSummary when the graph
// holds no signals for the client.
const NotEnoughSignalsMessage = "Not enough signals to summarize. Add more insights from the report."

type agendaSlot struct {
	slot string
	desc string
}

// 20-minute call structure, fixed across clients.
var callPlanAgenda = []agendaSlot{
	{"0-2 min", "Check-in and set outcome for the call"},
	{"2-6 min", "Review progress or blockers since last touchpoint"},
	{"6-12 min", "Main topic: decision, next step, or exploration"},
	{"12-18 min", "Clarify next actions and ownership"},
	{"18-20 min", "Confirm next contact and close"},
}

type signalQuestion struct {
	tag      string
	question string
}

// One suggested question per broad signal theme. Matched by substring in
// either direction so near-miss tag labels still land a question.
var questionMap = []signalQuestion{
	{"People-oriented", "What would make this a win for you and your team?"},
	{"Big-picture thinker", "Where do you see this fitting in your priorities over the next 6 months?"},
	{"Autonomy-seeking", "What would you want to own vs. have support on?"},
	{"Needs clear decisions (yes/no closure)", "What's the one decision we can nail down today?"},
	{"Competitive / challenge-driven", "What's the biggest challenge we should tackle first?"},
	{"Security / stability-seeking", "What would need to be in place for you to feel comfortable moving forward?"},
	{"Creative / flexible", "What would an ideal outcome look like if we had no constraints?"},
	{"Relationship-focused", "Who else should we loop in so this sticks?"},
}

type rankedSignal struct {
	tag   string
	score float64
}

func rankedSignals(set signals.Set) []rankedSignal {
	ranked := make([]rankedSignal, 0, len(set))
	for tag, sig := range set {
		ranked = append(ranked, rankedSignal{tag: tag, score: sig.Score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].tag < ranked[j].tag
	})
	return ranked
}

func topSignalLabels(set signals.Set, n int) []string {
	ranked := rankedSignals(set)
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	labels := make([]string, 0, len(ranked))
	for _, r := range ranked {
		labels = append(labels, r.tag)
	}
	return labels
}

// RenderCallPlan renders a one-page 20-minute call plan: the fixed agenda
// plus 3-5 suggested questions derived from the client's top signals. Stage
// and profile are optional context footnotes.
func RenderCallPlan(set signals.Set, stage, profile string) string {
	lines := []string{"## Call plan (20 min)", "", "**Agenda**"}
	for _, a := range callPlanAgenda {
		lines = append(lines, "- **"+a.slot+"** - "+a.desc)
	}
	lines = append(lines, "", "**Suggested questions (use 2-3 based on fit)**")

	used := map[string]struct{}{}
	questions := 0
	for _, tag := range topSignalLabels(set, 5) {
		for _, q := range questionMap {
			if !strings.Contains(tag, q.tag) && !strings.Contains(q.tag, tag) {
				continue
			}
			if _, dup := used[q.question]; !dup {
				lines = append(lines, "- "+q.question)
				used[q.question] = struct{}{}
				questions++
			}
			break
		}
	}
	// Thin signal sets still get a usable plan: pad to five questions.
	if questions < 3 {
		for _, q := range questionMap {
			if _, dup := used[q.question]; dup {
				continue
			}
			lines = append(lines, "- "+q.question)
			used[q.question] = struct{}{}
			if len(used) >= 5 {
				break
			}
		}
	}

	lines = append(lines, "")
	if stage != "" || profile != "" {
		if stage == "" {
			stage = "-"
		}
		if profile == "" {
			profile = "-"
		}
		lines = append(lines, "*Context: stage="+stage+", profile="+profile+"*")
	}
	return strings.Join(lines, "\n")
}

// RenderClientSummary renders up to ten signal bullets, strongest first, each
// with one shortened evidence citation.
func RenderClientSummary(set signals.Set) string {
	ranked := rankedSignals(set)
	if len(ranked) == 0 {
		return NotEnoughSignalsMessage
	}
	if len(ranked) > 10 {
		ranked = ranked[:10]
	}

	lines := []string{"## Client summary", ""}
	for _, r := range ranked {
		lines = append(lines, fmt.Sprintf("- **%s** (strength: %.0f)", r.tag, r.score))
		sig := set[r.tag]
		if sig == nil || len(sig.Evidence) == 0 {
			continue
		}
		ev := sig.Evidence[0]
		snippet := strings.TrimSpace(ev.Snippet)
		if snippet == "" {
			continue
		}
		if len(snippet) > 120 {
			snippet = snippet[:120]
		}
		lines = append(lines, fmt.Sprintf("  - p.%d: %s...", ev.Page, snippet))
	}
	return strings.Join(lines, "\n")
}

// RenderFollowupEmail renders a follow-up email draft. OutcomeText, when
// present, is inserted verbatim as the call recap paragraph.
func RenderFollowupEmail(set signals.Set, outcomeText, clientName string) string {
	if strings.TrimSpace(clientName) == "" {
		clientName = "there"
	}
	lines := []string{
		"Hi " + clientName + ",",
		"",
		"Following up on our conversation.",
	}
	if outcome := strings.TrimSpace(outcomeText); outcome != "" {
		lines = append(lines, "", outcome)
	}
	lines = append(lines, "")
	if len(topSignalLabels(set, 3)) > 0 {
		lines = append(lines, "Next step: I'll send a short summary and one clear ask by [date]. If anything shifts on your side, just reply to this thread.")
	} else {
		lines = append(lines, "Next step: I'll follow up with [specific item] by [date]. Feel free to reply with any questions.")
	}
	lines = append(lines,
		"",
		"Best,",
		"[Your name]",
		"",
		"*Draft generated from stored client insights; review before sending.*",
	)
	return strings.Join(lines, "\n")
}
