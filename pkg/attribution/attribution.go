// Package attribution computes per-provider contribution, survival,
// influence, and novelty metrics from a completed debate, plus
// round-over-round diffs, purely by comparing sentence text with the
// sequence-matching ratio defined in pkg/simtext.
package attribution

import (
	"github.com/jpollock/mars/pkg/debate"
	"github.com/jpollock/mars/pkg/simtext"
)

// MatchThreshold is the similarity ratio above which two sentences are
// considered the same contribution, distinct from the (generally
// higher) convergence threshold a debate config supplies.
const MatchThreshold = 0.6

// SynthesizerNovelBucket names the virtual attribution destination for
// final-answer sentences with no match anywhere in the debate.
const SynthesizerNovelBucket = "synthesizer-novel"

// ProviderAttribution holds the four per-provider metrics spec.md §3
// defines.
type ProviderAttribution struct {
	Provider         string
	Contribution     float64
	Survival         float64
	Influence        float64
	NovelInSynthesis float64
}

// RoundDiff records how one provider's sentences changed between two
// consecutive rounds.
type RoundDiff struct {
	Provider           string
	FromRound          int
	ToRound            int
	Similarity         float64
	SentencesAdded     int
	SentencesRemoved   int
	SentencesUnchanged int
}

// Report is the complete attribution analysis for one debate.
type Report struct {
	Providers []ProviderAttribution
	RoundDiff []RoundDiff
}

// sentenceOrigin pairs an extracted sentence with the provider and
// round it came from.
type sentenceOrigin struct {
	provider string
	round    int
	text     string
}

// Analyze computes a Report from a completed debate result.
// providerOrder breaks attribution ties by registration order, and
// defines the order Providers appears in.
func Analyze(result *debate.DebateResult, providerOrder []string) Report {
	finalSentences := simtext.Sentences(result.FinalAnswer)

	var allSentences []sentenceOrigin
	roundOneSentences := make(map[string][]string)
	perProviderRounds := make(map[string]map[int][]string)

	for _, round := range result.Rounds {
		for provider, resp := range round.Answers {
			sentences := simtext.Sentences(resp.Content)
			for _, s := range sentences {
				allSentences = append(allSentences, sentenceOrigin{provider: provider, round: round.Index, text: s})
			}
			if round.Index == 1 {
				roundOneSentences[provider] = sentences
			}
			if perProviderRounds[provider] == nil {
				perProviderRounds[provider] = make(map[int][]string)
			}
			perProviderRounds[provider][round.Index] = sentences
		}
		for provider, resp := range round.Critiques {
			sentences := simtext.Sentences(resp.Content)
			for _, s := range sentences {
				allSentences = append(allSentences, sentenceOrigin{provider: provider, round: round.Index, text: s})
			}
		}
	}

	orderIndex := make(map[string]int, len(providerOrder))
	for i, p := range providerOrder {
		orderIndex[p] = i
	}

	attributedTo := make([]string, len(finalSentences))
	contributionCount := make(map[string]int)
	novelCount := 0

	for i, fs := range finalSentences {
		best := -1.0
		bestProvider := ""
		bestOrder := len(providerOrder) + 1
		for _, origin := range allSentences {
			r := simtext.Ratio(fs, origin.text)
			if r < MatchThreshold {
				continue
			}
			if r > best || (r == best && orderIndex[origin.provider] < bestOrder) {
				best = r
				bestProvider = origin.provider
				bestOrder = orderIndex[origin.provider]
			}
		}

		if best >= MatchThreshold {
			attributedTo[i] = bestProvider
			contributionCount[bestProvider]++
		} else {
			attributedTo[i] = SynthesizerNovelBucket
			novelCount++
		}
	}

	total := len(finalSentences)

	providers := make([]ProviderAttribution, 0, len(providerOrder))
	for _, p := range providerOrder {
		pa := ProviderAttribution{Provider: p}

		if total > 0 {
			pa.Contribution = float64(contributionCount[p]) / float64(total)
			pa.NovelInSynthesis = float64(novelCount) / float64(total)
		}

		pa.Survival = survival(p, roundOneSentences[p], finalSentences)
		pa.Influence = influence(p, result, perProviderRounds)

		providers = append(providers, pa)
	}

	diffs := roundDiffs(result, providerOrder)

	return Report{Providers: providers, RoundDiff: diffs}
}

// survival computes the fraction of a provider's round-1 sentences
// that have at least one match >= MatchThreshold among the final
// answer's sentences.
func survival(_ string, roundOne []string, final []string) float64 {
	if len(roundOne) == 0 {
		return 0
	}
	matched := 0
	for _, s := range roundOne {
		for _, f := range final {
			if simtext.Ratio(s, f) >= MatchThreshold {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(roundOne))
}

// influence measures, for provider P, how many of P's sentences in
// round r were adopted (matched) by some other provider Q's round r+1
// answer without having appeared in Q's round r answer, normalized by
// P's total sentence count across all rounds.
func influence(provider string, result *debate.DebateResult, perProviderRounds map[string]map[int][]string) float64 {
	pRounds := perProviderRounds[provider]

	var allP []string
	for _, sentences := range pRounds {
		allP = append(allP, sentences...)
	}
	totalP := len(uniqueStrings(allP))
	if totalP == 0 {
		return 0
	}

	adopted := 0
	lastRound := 0
	for _, r := range result.Rounds {
		if r.Index > lastRound {
			lastRound = r.Index
		}
	}

	for r := 1; r < lastRound; r++ {
		pSentences := uniqueStrings(pRounds[r])
		if len(pSentences) == 0 {
			continue
		}
		for other, otherRounds := range perProviderRounds {
			if other == provider {
				continue
			}
			prevQ := otherRounds[r]
			nextQ := otherRounds[r+1]
			if len(nextQ) == 0 {
				continue
			}
			for _, ps := range pSentences {
				if sentenceMatchesAny(ps, prevQ) {
					continue
				}
				if sentenceMatchesAny(ps, nextQ) {
					adopted++
				}
			}
		}
	}

	v := float64(adopted) / float64(totalP)
	if v > 1 {
		v = 1
	}
	return v
}

func sentenceMatchesAny(s string, pool []string) bool {
	for _, p := range pool {
		if simtext.Ratio(s, p) >= MatchThreshold {
			return true
		}
	}
	return false
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// roundDiffs emits, for each provider and each consecutive round pair
// in which that provider has sentences, the similarity ratio and
// added/removed/unchanged sentence counts.
func roundDiffs(result *debate.DebateResult, providerOrder []string) []RoundDiff {
	byProviderRound := make(map[string]map[int][]string)
	for _, round := range result.Rounds {
		for provider, resp := range round.Answers {
			if byProviderRound[provider] == nil {
				byProviderRound[provider] = make(map[int][]string)
			}
			byProviderRound[provider][round.Index] = simtext.Sentences(resp.Content)
		}
	}

	var diffs []RoundDiff
	for _, provider := range providerOrder {
		rounds := byProviderRound[provider]
		if rounds == nil {
			continue
		}

		indices := sortedRoundIndices(rounds)
		for i := 0; i+1 < len(indices); i++ {
			from, to := indices[i], indices[i+1]
			fromS, toS := rounds[from], rounds[to]

			unchanged := 0
			matchedTo := make([]bool, len(toS))
			for _, fs := range fromS {
				for j, ts := range toS {
					if matchedTo[j] {
						continue
					}
					if simtext.Ratio(fs, ts) >= MatchThreshold {
						unchanged++
						matchedTo[j] = true
						break
					}
				}
			}

			added := 0
			for _, m := range matchedTo {
				if !m {
					added++
				}
			}
			removed := len(fromS) - unchanged

			similarity := simtext.Ratio(joinSentences(fromS), joinSentences(toS))

			diffs = append(diffs, RoundDiff{
				Provider:           provider,
				FromRound:          from,
				ToRound:            to,
				Similarity:         similarity,
				SentencesAdded:     added,
				SentencesRemoved:   removed,
				SentencesUnchanged: unchanged,
			})
		}
	}

	return diffs
}

func sortedRoundIndices(m map[int][]string) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func joinSentences(sentences []string) string {
	out := ""
	for i, s := range sentences {
		if i > 0 {
			out += " "
		}
		out += s
	}
	return out
}
