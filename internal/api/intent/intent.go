package intent

import (
	"regexp"
	"strings"

	"github.com/FACorreiaa/go-safe-assist/internal/types"
)

type Kind string

const (
	KindGreeting     Kind = "greeting"
	KindHelp         Kind = "help"
	KindCategory     Kind = "category"
	KindUnclassified Kind = "unclassified"
)

// Intent is the classification of a raw user message. Category is only set
// when Kind is KindCategory.
type Intent struct {
	Kind     Kind
	Category types.Category
}

var (
	greetingRe = regexp.MustCompile(`\b(hi|hello|hey|howdy|good morning|good afternoon|good evening)\b`)
	helpRe     = regexp.MustCompile(`\b(help|what can you do|how do(es)? (you|this) work)\b`)
)

// synonyms maps message substrings to a category. The slice is scanned in
// declaration order and the first key contained anywhere in the message wins,
// regardless of where it appears in the text. Order is observable behavior:
// keep new entries at the end of their group.
var synonyms = []struct {
	key      string
	category types.Category
}{
	{"hospital", types.CategoryHospital},
	{"clinic", types.CategoryHospital},
	{"emergency", types.CategoryHospital},
	{"doctor", types.CategoryHospital},
	{"pharmacy", types.CategoryPharmacy},
	{"chemist", types.CategoryPharmacy},
	{"drugstore", types.CategoryPharmacy},
	{"medicine", types.CategoryPharmacy},
	{"police station", types.CategoryPoliceStation},
	{"police", types.CategoryPoliceStation},
	{"cops", types.CategoryPoliceStation},
	{"security", types.CategoryPoliceStation},
	// "er" is deliberately last: as a bare substring it matches inside words
	// like "nearest", so every earlier key must get its chance first.
	{"er", types.CategoryHospital},
}

// Classify maps free text to an intent. It is pure and total: any string in,
// deterministic intent out, no side effects.
func Classify(message string) Intent {
	text := strings.ToLower(strings.TrimSpace(message))

	if greetingRe.MatchString(text) {
		return Intent{Kind: KindGreeting}
	}
	if helpRe.MatchString(text) {
		return Intent{Kind: KindHelp}
	}
	for _, s := range synonyms {
		if strings.Contains(text, s.key) {
			return Intent{Kind: KindCategory, Category: s.category}
		}
	}
	return Intent{Kind: KindUnclassified}
}
