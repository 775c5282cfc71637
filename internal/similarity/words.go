package similarity

// Word data shared by the similarity engine and the bot answer
// generators. Categories are keyed by their unaccented form because
// that is how questions reference them.

// CategoryWords maps a semantic category to its member words.
var CategoryWords = map[string][]string{
	"kahvaltilik": {"ekmek", "peynir", "zeytin", "yumurta", "bal", "simit", "çay"},
	"icecek":      {"su", "çay", "kahve", "ayran", "kola", "meşrubat"},
	"meyve":       {"elma", "muz", "portakal", "çilek", "karpuz", "üzüm"},
	"sehir":       {"istanbul", "ankara", "izmir", "bursa", "antalya"},
	"renk":        {"mavi", "kırmızı", "yeşil", "sarı", "beyaz", "siyah"},
	"hayvan":      {"kedi", "köpek", "kuş", "at", "balık", "aslan"},
	"film":        {"komedi", "aksiyon", "drama", "korku", "bilimkurgu"},
}

// Synonyms maps a word to words considered directly interchangeable
// with it for scoring.
var Synonyms = map[string][]string{
	"su":    {"içecek", "ayran"},
	"ekmek": {"simit", "poğaça"},
	"kedi":  {"hayvan", "pisi"},
	"köpek": {"hayvan", "can"},
	"mavi":  {"lacivert", "gökyüzü"},
}

// FindCategory returns the category a word belongs to, or "".
func FindCategory(word string) string {
	for category, words := range CategoryWords {
		for _, w := range words {
			if w == word {
				return category
			}
		}
	}
	return ""
}

func isSynonym(a, b string) bool {
	for _, s := range Synonyms[a] {
		if s == b {
			return true
		}
	}
	for _, s := range Synonyms[b] {
		if s == a {
			return true
		}
	}
	return false
}
