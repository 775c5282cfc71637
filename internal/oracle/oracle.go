// Package oracle produces single-word answers for synthetic players.
// It asks a remote text generator first and falls back through
// deterministic pattern matchers, so an answer is always produced no
// matter what the remote side does.
package oracle

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/similarity"
)

const minAnswerLength = 2

type Oracle struct {
	gen Generator
	rng *rand.Rand
	log zerolog.Logger
}

// New builds an oracle. gen may be nil, in which case only the
// deterministic chain runs.
func New(gen Generator, rng *rand.Rand, log zerolog.Logger) *Oracle {
	return &Oracle{
		gen: gen,
		rng: rng,
		log: log.With().Str("component", "oracle").Logger(),
	}
}

// Answer returns a non-empty lowercase single token for the question.
// Remote failures are recovered locally and never propagate.
func (o *Oracle) Answer(ctx context.Context, question, category string) string {
	if o.gen != nil {
		raw, err := o.gen.Generate(ctx, buildPrompt(question, category))
		if err == nil {
			answer, verr := validate(raw)
			if verr == nil {
				return o.applyCategoryWhitelist(answer, category)
			}
			o.log.Debug().Str("raw", raw).Err(verr).Msg("generator output rejected")
		} else {
			o.log.Debug().Err(err).Msg("generator call failed, using fallback chain")
		}
	}
	return o.fallbackAnswer(question, category)
}

// PairedAnswers returns two intentionally correlated answers for two
// bots on the same team, so synthetic teams score non-trivially without
// a second generator call.
func (o *Oracle) PairedAnswers(ctx context.Context, question, category string) (string, string) {
	base := o.Answer(ctx, question, category)
	return base, o.similarTo(base)
}

// applyCategoryWhitelist overrides an answer that falls outside a
// recognized closed category with that category's canonical default.
func (o *Oracle) applyCategoryWhitelist(answer, category string) string {
	words, ok := similarity.CategoryWords[category]
	if !ok {
		return answer
	}
	for _, w := range words {
		if w == answer {
			return answer
		}
	}
	def := categoryDefaults[category]
	o.log.Debug().Str("answer", answer).Str("category", category).Str("override", def).
		Msg("answer outside category whitelist, overriding")
	return def
}

// fallbackAnswer walks the deterministic chain: explicit category,
// category keyword in the question, basic regex patterns, then the
// universal list.
func (o *Oracle) fallbackAnswer(question, category string) string {
	if words, ok := similarity.CategoryWords[category]; ok {
		return o.pick(words)
	}
	q := strings.ToLower(question)
	for _, cat := range advancedCategories {
		if strings.Contains(q, cat) {
			return o.pick(similarity.CategoryWords[cat])
		}
	}
	for _, bp := range basicPatterns {
		if bp.pattern.MatchString(question) {
			return o.pick(bp.answers)
		}
	}
	return o.pick(universalAnswers)
}

// similarTo derives a correlated second answer: near-synonym table,
// then genre alternates, then a different word from the same category,
// else the base answer itself.
func (o *Oracle) similarTo(base string) string {
	if alts := similarity.Synonyms[base]; len(alts) > 0 {
		return o.pick(alts)
	}
	if alts := filmSimilar[base]; len(alts) > 0 {
		return o.pick(alts)
	}
	if cat := similarity.FindCategory(base); cat != "" {
		var others []string
		for _, w := range similarity.CategoryWords[cat] {
			if w != base {
				others = append(others, w)
			}
		}
		if len(others) > 0 {
			return o.pick(others)
		}
	}
	return base
}

func (o *Oracle) pick(words []string) string {
	return words[o.rng.Intn(len(words))]
}

// buildPrompt embeds the question in a strict single-word-only
// instruction: no sentences, no punctuation, no grammatical suffixes.
func buildPrompt(question, category string) string {
	var b strings.Builder
	b.WriteString("SADECE TEK KELİME CEVAP VER.\n")
	b.WriteString("KURALLAR:\n")
	b.WriteString("- Cümle kurmak yasak\n")
	b.WriteString("- Açıklama yapmak yasak\n")
	b.WriteString("- Noktalama işareti yasak\n")
	b.WriteString("- -dır -dir -tır -tir ekleri yasak\n")
	b.WriteString("- Kelimenin yalın halini kullan\n")
	if category != "" {
		fmt.Fprintf(&b, "KATEGORİ: %s\n", category)
	}
	fmt.Fprintf(&b, "SORU: %s\n", question)
	b.WriteString("CEVAP:")
	return b.String()
}

var punctuationReplacer = strings.NewReplacer(
	".", "", ",", "", "!", "", "?", "", ";", "", ":", "",
	"(", "", ")", "", "'", "", `"`, "", "-", "", "_", "", "*", "",
)

var grammarSuffixes = []string{"dir", "dır", "tir", "tır", "dur", "dür", "tur", "tür"}

// validate reduces raw generator output to a single clean token:
// first whitespace-delimited token, punctuation stripped, lowercased,
// one trailing grammatical suffix removed. Anything shorter than two
// characters is rejected.
func validate(raw string) (string, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return "", fmt.Errorf("empty generator output")
	}
	token := strings.ToLower(punctuationReplacer.Replace(fields[0]))
	for _, suffix := range grammarSuffixes {
		if trimmed, ok := strings.CutSuffix(token, suffix); ok && len([]rune(trimmed)) >= minAnswerLength {
			token = trimmed
			break
		}
	}
	if len([]rune(token)) < minAnswerLength {
		return "", fmt.Errorf("answer %q too short", token)
	}
	return token, nil
}
