package keywords

// StopwordsVersion identifies the bundled stopword table
const StopwordsVersion = "en-ko/2024.1"

// Set is a set of normalised tokens
type Set map[string]struct{}

// NewSet builds a Set from words, normalising each one
func NewSet(words ...string) Set {
	s := make(Set, len(words))
	for _, w := range words {
		if n := Normalize(w); n != "" {
			s[n] = struct{}{}
		}
	}
	return s
}

// With returns a copy of s extended with words
func (s Set) With(words ...string) Set {
	out := make(Set, len(s)+len(words))
	for w := range s {
		out[w] = struct{}{}
	}
	for w := range NewSet(words...) {
		out[w] = struct{}{}
	}
	return out
}

// Has reports whether word is in the set
func (s Set) Has(word string) bool {
	_, ok := s[word]
	return ok
}

var englishStopwords = []string{
	"about", "above", "after", "again", "against", "all", "also", "and", "any", "are",
	"because", "been", "before", "being", "below", "between", "both", "but", "can", "could",
	"did", "does", "doing", "down", "during", "each", "few", "for", "from", "further",
	"had", "has", "have", "having", "her", "here", "hers", "herself", "him", "himself",
	"his", "how", "into", "its", "itself", "just", "more", "most", "much", "must",
	"myself", "nor", "not", "now", "off", "once", "only", "other", "our", "ours",
	"ourselves", "out", "over", "own", "same", "she", "should", "some", "such", "than",
	"that", "the", "their", "theirs", "them", "themselves", "then", "there", "these", "they",
	"this", "those", "through", "too", "under", "until", "very", "was", "were", "what",
	"when", "where", "which", "while", "who", "whom", "why", "will", "with", "would",
	"you", "your", "yours", "yourself", "yourselves", "get", "got", "may", "like", "via",
}

var koreanStopwords = []string{
	"그리고", "그러나", "하지만", "그래서", "또는", "또한", "그런데", "따라서", "즉", "및",
	"있는", "있다", "있습니다", "없는", "없다", "합니다", "하는", "하고", "하여", "해서",
	"위한", "위해", "대한", "대해", "통해", "통한", "이런", "저런", "그런", "이것",
	"저것", "그것", "우리", "여러분", "것이", "것은", "것을", "수가", "수도", "때문",
	"경우", "이상", "이하", "같은", "같이", "모든", "어떤", "무엇", "입니다", "됩니다",
}

// DefaultStopwords returns a fresh copy of the bundled English/Korean table
func DefaultStopwords() Set {
	return NewSet(append(append([]string{}, englishStopwords...), koreanStopwords...)...)
}
