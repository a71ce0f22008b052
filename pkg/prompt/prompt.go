// Package prompt builds the message lists sent to providers at each
// phase of a debate: the initial round, critique rounds, synthesis,
// and judging.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jpollock/mars/pkg/message"
)

// Initial builds the first-round prompt: the raw prompt, optionally
// preceded by labelled context blocks folded into a system message.
func Initial(text string, context []string) []message.Message {
	var msgs []message.Message
	if len(context) > 0 {
		var b strings.Builder
		b.WriteString("You are given the following context:\n\n")
		for i, c := range context {
			fmt.Fprintf(&b, "[Context %d]\n%s\n\n", i+1, c)
		}
		msgs = append(msgs, message.NewSystem(b.String()))
	}
	msgs = append(msgs, message.NewUser(text))
	return msgs
}

// Critique builds the round ≥ 2 prompt for a single provider: its own
// previous answer, every other provider's previous answer labelled by
// name, and an instruction to critique and then produce an improved
// answer in the same response.
func Critique(providerName string, own message.LLMResponse, others map[string]message.LLMResponse) []message.Message {
	var b strings.Builder
	b.WriteString("Here is your previous answer:\n\n")
	b.WriteString(own.Content)
	b.WriteString("\n\nHere are the other participants' previous answers:\n\n")

	for _, name := range sortedKeys(others) {
		if name == providerName {
			continue
		}
		fmt.Fprintf(&b, "[%s]\n%s\n\n", name, others[name].Content)
	}

	b.WriteString("Critique your own answer and the others', noting any errors, ")
	b.WriteString("omissions, or disagreements. Then produce an improved answer. ")
	b.WriteString("Include both the critique and the improved answer in your response.")

	return []message.Message{message.NewUser(b.String())}
}

// Synthesis builds the prompt for the chosen synthesizer: every
// provider's latest answer, with an instruction to close with the
// `## Final Answer` heading.
func Synthesis(latest map[string]message.LLMResponse) []message.Message {
	var b strings.Builder
	b.WriteString("The following participants have each produced an answer ")
	b.WriteString("after a round of debate and critique:\n\n")

	for _, name := range sortedKeys(latest) {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", name, latest[name].Content)
	}

	b.WriteString(synthesisInstruction)

	return []message.Message{message.NewUser(b.String())}
}

// Judge builds the prompt for the judge provider: every participant's
// initial answer, with the same closing instruction as Synthesis.
func Judge(initial map[string]message.LLMResponse) []message.Message {
	var b strings.Builder
	b.WriteString("The following participants have each independently answered ")
	b.WriteString("the same question:\n\n")

	for _, name := range sortedKeys(initial) {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", name, initial[name].Content)
	}

	b.WriteString("Weigh the answers, resolve any disagreements, and decide the ")
	b.WriteString("best response. ")
	b.WriteString(synthesisInstruction)

	return []message.Message{message.NewUser(b.String())}
}

const synthesisInstruction = "Reason through your resolution, then close your response " +
	"with a line containing exactly \"" + message.FinalAnswerHeading + "\" followed by the final answer."

func sortedKeys(m map[string]message.LLMResponse) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
