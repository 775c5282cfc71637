package oracle

import (
	"regexp"

	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/similarity"
)

// Deterministic answer sources, tried in order after the remote
// generator fails. The last tier is unconditional so the chain always
// produces a word.

type basicPattern struct {
	pattern *regexp.Regexp
	answers []string
}

var basicPatterns = []basicPattern{
	{regexp.MustCompile(`(?i)kahvaltı`), similarity.CategoryWords["kahvaltilik"]},
	{regexp.MustCompile(`(?i)içecek`), similarity.CategoryWords["icecek"]},
	{regexp.MustCompile(`(?i)meyve`), similarity.CategoryWords["meyve"]},
	{regexp.MustCompile(`(?i)şehir|il`), similarity.CategoryWords["sehir"]},
	{regexp.MustCompile(`(?i)renk`), similarity.CategoryWords["renk"]},
	{regexp.MustCompile(`(?i)hayvan`), similarity.CategoryWords["hayvan"]},
	{regexp.MustCompile(`(?i)film`), similarity.CategoryWords["film"]},
}

// advancedCategories is the keyword order for the category matcher.
var advancedCategories = []string{
	"kahvaltilik", "icecek", "meyve", "sehir", "renk", "hayvan", "film",
}

// filmSimilar pairs a film genre with genres close enough to count as a
// correlated teammate answer.
var filmSimilar = map[string][]string{
	"komedi":     {"drama", "aksiyon"},
	"aksiyon":    {"macera", "gerilim"},
	"drama":      {"komedi", "romantik"},
	"korku":      {"gerilim", "aksiyon"},
	"bilimkurgu": {"fantastik", "aksiyon"},
}

// categoryDefaults is the canonical answer per closed category, used to
// override generator output that falls outside the category whitelist.
var categoryDefaults = map[string]string{
	"kahvaltilik": "ekmek",
	"icecek":      "su",
	"meyve":       "elma",
	"sehir":       "istanbul",
	"renk":        "mavi",
	"hayvan":      "kedi",
	"film":        "komedi",
}

// universalAnswers is the unconditional last tier; one word per
// category so any question gets something plausible.
var universalAnswers = []string{"ekmek", "su", "elma", "istanbul", "kedi", "mavi"}

// EmergencyAnswers is a short fixed list the controller writes directly
// when the whole generation path fails, so a round can never stall
// waiting on bot answers.
var EmergencyAnswers = []string{"su", "ekmek", "elma", "kedi"}
