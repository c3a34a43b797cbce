// Package chat answers a fixed set of client questions from templated,
// deterministic text built on fit results and normalized signals. An optional
// text model may rephrase the answer but never contributes facts.
package chat

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/fitgraph/backend/pkg/ai"
	"github.com/fitgraph/backend/pkg/fit"
	"github.com/fitgraph/backend/pkg/logger"
	"github.com/fitgraph/backend/pkg/signals"
)

const (
	// MaxFitRefs caps fit cards carried into chat context per list.
	MaxFitRefs = 5

	// MaxEvidenceQuotes caps quotes cited in one answer.
	MaxEvidenceQuotes = 2

	polishMaxTokens = 400
)

// FallbackMessage is returned verbatim when the question matches no known
// intent. Free-form answering is out of scope on purpose.
const FallbackMessage = "For now, please choose one of the suggested questions to keep results consistent."

// Quote is a page-cited evidence quote.
type Quote struct {
	Page  int    `json:"page"`
	Quote string `json:"quote"`
}

// FitRef is a summarized fit card: enough for an answer, no raw report text.
type FitRef struct {
	Rank               int      `json:"rank"`
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	Why                string   `json:"why"`
	WatchOuts          []string `json:"watch_outs"`
	Evidence           []Quote  `json:"evidence"`
	RecommendedActions []string `json:"recommended_actions"`
}

// Context is the only material the answer engine sees.
type Context struct {
	ClientName   string   `json:"client_name"`
	BusinessType string   `json:"business_type"`
	SignalLabels []string `json:"signal_labels"`
	CareerFit    []FitRef `json:"career_fit"`
	BusinessFit  []FitRef `json:"business_fit"`
}

func summarizeFits(scores []fit.Score) []FitRef {
	out := make([]FitRef, 0, MaxFitRefs)
	for i, s := range scores {
		if i >= MaxFitRefs {
			break
		}
		quotes := make([]Quote, 0, MaxEvidenceQuotes)
		for _, ev := range s.EvidenceUsed {
			if len(quotes) >= MaxEvidenceQuotes {
				break
			}
			snippet := strings.TrimSpace(ev.Snippet)
			if snippet == "" {
				continue
			}
			quotes = append(quotes, Quote{Page: ev.Page, Quote: snippet})
		}
		watchOuts := s.WatchOuts
		if len(watchOuts) > 2 {
			watchOuts = watchOuts[:2]
		}
		actions := s.RecommendedActions
		if len(actions) > 2 {
			actions = actions[:2]
		}
		out = append(out, FitRef{
			Rank:               i + 1,
			Name:               s.Name,
			Description:        strings.TrimSpace(s.Description),
			Why:                strings.TrimSpace(s.Rationale),
			WatchOuts:          watchOuts,
			Evidence:           quotes,
			RecommendedActions: actions,
		})
	}
	return out
}

// BuildContext assembles chat context from normalized signals and ranked fit
// lists. Signal labels are ordered by score descending, name breaking ties,
// so the same graph always yields the same context.
func BuildContext(
	set signals.Set,
	careerFit []fit.Score,
	businessFit []fit.Score,
	clientName string,
	businessType string,
) Context {
	labels := make([]string, 0, len(set))
	for tag := range set {
		labels = append(labels, tag)
	}
	sort.Slice(labels, func(i, j int) bool {
		si, sj := set[labels[i]].Score, set[labels[j]].Score
		if si != sj {
			return si > sj
		}
		return labels[i] < labels[j]
	})

	return Context{
		ClientName:   clientName,
		BusinessType: strings.TrimSpace(businessType),
		SignalLabels: labels,
		CareerFit:    summarizeFits(careerFit),
		BusinessFit:  summarizeFits(businessFit),
	}
}

// Intent identifiers for the supported question templates.
const (
	IntentBestCareer         = "best_career"
	IntentBestBusiness       = "best_business"
	IntentAvoid              = "avoid"
	IntentSpouse             = "spouse"
	Intent30DayPlan          = "30day_plan"
	IntentDiscoveryQuestions = "discovery_questions"
)

type intentKeywords struct {
	intent   string
	keywords []string
}

// Keyword order matters: the first intent whose keyword appears wins.
var intentTable = []intentKeywords{
	{IntentBestCareer, []string{"best career", "which career", "top career", "career fits me", "fits me best", "best fit career"}},
	{IntentBestBusiness, []string{"best business", "which business", "top business", "business fits me", "best fit business"}},
	{IntentAvoid, []string{"avoid", "watch out", "what to avoid", "should not", "steer clear", "red flag"}},
	{IntentSpouse, []string{"spouse", "partner", "explain to", "share with", "tell my"}},
	{Intent30DayPlan, []string{"30-day", "30 day", "action plan", "next steps", "explore", "first steps"}},
	{IntentDiscoveryQuestions, []string{"discovery call", "questions to ask", "ask on a call", "next call", "discovery"}},
}

// DetectIntent maps a free-text question to one of the supported intents.
// Returns "" when no keyword matches.
func DetectIntent(question string) string {
	q := strings.ToLower(strings.TrimSpace(question))
	if q == "" {
		return ""
	}
	for _, entry := range intentTable {
		for _, kw := range entry.keywords {
			if strings.Contains(q, kw) {
				return entry.intent
			}
		}
	}
	return ""
}

func evidenceLines(ctx Context, maxQuotes int) []string {
	var lines []string
	appendFrom := func(items []FitRef) {
		if len(items) == 0 || len(lines) >= maxQuotes {
			return
		}
		for _, q := range items[0].Evidence {
			if len(lines) >= maxQuotes {
				return
			}
			quote := strings.TrimSpace(q.Quote)
			if quote == "" {
				continue
			}
			lines = append(lines, `(p.`+pageRef(q.Page)+`) "`+quote+`"`)
		}
	}
	appendFrom(ctx.CareerFit)
	appendFrom(ctx.BusinessFit)
	return lines
}

// pageRef formats a page citation; unknown pages show as "?".
func pageRef(n int) string {
	if n <= 0 {
		return "?"
	}
	return strconv.Itoa(n)
}

func evidenceBlock(ctx Context) string {
	ev := evidenceLines(ctx, MaxEvidenceQuotes)
	if len(ev) == 0 {
		return "**Evidence:** Evidence not available; re-run extraction."
	}
	return "**Evidence:** " + strings.Join(ev, "; ")
}

func topSignals(ctx Context, n int) []string {
	if len(ctx.SignalLabels) <= n {
		return ctx.SignalLabels
	}
	return ctx.SignalLabels[:n]
}

func answerBestCareer(ctx Context) string {
	name := "your top career match"
	why := "Based on your report signals."
	if len(ctx.CareerFit) > 0 {
		if ctx.CareerFit[0].Name != "" {
			name = ctx.CareerFit[0].Name
		}
		if ctx.CareerFit[0].Why != "" {
			why = ctx.CareerFit[0].Why
		}
	}
	return strings.Join([]string{
		"**Best career fit:** " + name + ".",
		"Why: " + why,
		evidenceBlock(ctx),
		"**Next step:** Discuss this option with a coach or try one of the recommended actions from the fit card.",
	}, "\n\n")
}

func answerBestBusiness(ctx Context) string {
	name := "your top business match"
	why := "Based on your report signals."
	if len(ctx.BusinessFit) > 0 {
		if ctx.BusinessFit[0].Name != "" {
			name = ctx.BusinessFit[0].Name
		}
		if ctx.BusinessFit[0].Why != "" {
			why = ctx.BusinessFit[0].Why
		}
	}
	return strings.Join([]string{
		"**Best business fit:** " + name + ".",
		"Why: " + why,
		evidenceBlock(ctx),
		"**Next step:** Review watch-outs for this business type and plan one concrete action from the recommendations.",
	}, "\n\n")
}

func answerAvoid(ctx Context) string {
	var watchOuts []string
	collect := func(items []FitRef, maxItems int) {
		for i, item := range items {
			if i >= maxItems {
				break
			}
			for j, w := range item.WatchOuts {
				if j >= 2 {
					break
				}
				if w != "" {
					watchOuts = append(watchOuts, w)
				}
			}
		}
	}
	collect(ctx.CareerFit, 2)
	collect(ctx.BusinessFit, 2)
	if len(watchOuts) == 0 {
		watchOuts = []string{
			"Roles with little autonomy.",
			"Businesses that rely on strict hierarchy or rigid processes.",
		}
	}
	if len(watchOuts) > 4 {
		watchOuts = watchOuts[:4]
	}

	parts := []string{"**What to avoid (from your report):**"}
	for _, w := range watchOuts {
		parts = append(parts, "- "+w)
	}
	parts = append(parts,
		evidenceBlock(ctx),
		"**Next step:** Use these watch-outs as a checklist when evaluating roles or business opportunities.",
	)
	return strings.Join(parts, "\n\n")
}

func answerSpouse(ctx Context) string {
	cName := "your top career fit"
	if len(ctx.CareerFit) > 0 && ctx.CareerFit[0].Name != "" {
		cName = ctx.CareerFit[0].Name
	}
	bName := "your top business fit"
	if len(ctx.BusinessFit) > 0 && ctx.BusinessFit[0].Name != "" {
		bName = ctx.BusinessFit[0].Name
	}
	themes := strings.Join(topSignals(ctx, 3), ", ")
	if themes == "" {
		themes = "See the Why section above."
	}
	return strings.Join([]string{
		"**How to explain these results:**",
		"- Your report points to strengths that align with careers like **" + cName + "** and businesses like **" + bName + "**.",
		"- Key themes: " + themes,
		"- You can say: 'The report suggests I'm a good fit for [X] because [Why]. I'd like to explore that next.'",
		"**Next step:** Share the top 2 fit cards and the 'Why' lines; keep it to 2-3 minutes.",
	}, "\n\n")
}

func answer30DayPlan(ctx Context) string {
	var names []string
	collect := func(items []FitRef, maxItems int) {
		for i, item := range items {
			if i >= maxItems || len(names) >= 2 {
				break
			}
			if item.Name != "" {
				names = append(names, item.Name)
			}
		}
	}
	collect(ctx.CareerFit, 2)
	collect(ctx.BusinessFit, 2)

	first := "your top fit"
	if len(names) > 0 {
		first = names[0]
	}
	second := "your second option"
	if len(names) > 1 {
		second = names[1]
	}
	return strings.Join([]string{
		"**30-day action plan to explore your top options:**",
		"- Week 1: Write down 2-3 specific aspects of " + first + " you want to learn more about.",
		"- Week 2: Find one person (or resource) who works in that space and schedule a short conversation.",
		"- Week 3: Do the same for " + second + ".",
		"- Week 4: Compare notes and choose one next step (e.g. a course, a trial project, or another call).",
		evidenceBlock(ctx),
		"**Next step:** Block 30 minutes this week to complete Week 1.",
	}, "\n\n")
}

func answerDiscoveryQuestions(ctx Context) string {
	signalLine := "- 'Where could someone with my profile add the most value?'"
	if top := topSignals(ctx, 3); len(top) > 0 {
		signalLine = "- 'Where do you see someone with strengths in " + top[0] + " adding the most value?'"
	}
	return strings.Join([]string{
		"**Questions to ask on your next discovery call:**",
		"- 'What does a typical day look like for someone in this role/business?'",
		"- 'How much autonomy is there in decision-making?'",
		signalLine,
		"- 'What would you want me to have achieved in the first 90 days?'",
		"**Next step:** Pick 2-3 of these and add one of your own based on your top fit watch-outs.",
	}, "\n\n")
}

var templates = map[string]func(Context) string{
	IntentBestCareer:         answerBestCareer,
	IntentBestBusiness:       answerBestBusiness,
	IntentAvoid:              answerAvoid,
	IntentSpouse:             answerSpouse,
	Intent30DayPlan:          answer30DayPlan,
	IntentDiscoveryQuestions: answerDiscoveryQuestions,
}

// Answer returns the templated answer for the question, or FallbackMessage
// when the question matches no supported intent.
func Answer(question string, ctx Context) string {
	intent := DetectIntent(question)
	tmpl, ok := templates[intent]
	if !ok {
		return FallbackMessage
	}
	return tmpl(ctx)
}

const polishSystemPrompt = "You rephrase the user's text in a slightly warmer, conversational tone. " +
	"Do not add any new facts or recommendations. Keep the same structure (bullets, Evidence, Next step). " +
	"Output only the rephrased text, nothing else."

// PolishWithGenerator asks the text model to rephrase a templated answer in a
// warmer tone. The deterministic answer is returned unchanged when no model
// is configured, the call fails, or the model returns nothing.
func PolishWithGenerator(ctx context.Context, gen ai.TextGenerator, answer string) string {
	if gen == nil || answer == "" {
		return answer
	}
	out, err := gen.Generate(ctx, polishSystemPrompt, answer, polishMaxTokens)
	if err != nil {
		if !errors.Is(err, ai.ErrUnavailable) {
			logger.Warn("answer polish failed, using template output", "error", err)
		}
		return answer
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return answer
	}
	return out
}
