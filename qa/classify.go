package qa

import "strings"

// Question categories. Classification is case-insensitive keyword matching
// with a fixed priority order; the first matching category wins even when a
// question mixes vocabulary ("what is this about and why" is overview).
type Category int

const (
	CategoryDefault Category = iota
	CategoryOverview
	CategoryPerson
	CategoryCausal
	CategoryQuote
	CategoryList
)

func (c Category) String() string {
	switch c {
	case CategoryOverview:
		return "overview"
	case CategoryPerson:
		return "person"
	case CategoryCausal:
		return "causal"
	case CategoryQuote:
		return "quote"
	case CategoryList:
		return "list"
	default:
		return "default"
	}
}

func containsAny(s string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// retrievalCategory drives how the Context Assembler retrieves and reorders.
// Only three retrieval behaviors exist: overview, causal, default.
func retrievalCategory(question string) Category {
	q := strings.ToLower(question)
	switch {
	case containsAny(q, "about", "summary", "what is this"):
		return CategoryOverview
	case containsAny(q, "why", "reason"):
		return CategoryCausal
	default:
		return CategoryDefault
	}
}

// promptCategory selects the generation system prompt.
func promptCategory(question string) Category {
	q := strings.ToLower(question)
	switch {
	case containsAny(q, "about", "summary"):
		return CategoryOverview
	case containsAny(q, "who", "person"):
		return CategoryPerson
	case containsAny(q, "why", "explain"):
		return CategoryCausal
	case containsAny(q, "what did he say", "what did she say"):
		return CategoryQuote
	case containsAny(q, "points", "list", "bullet"):
		return CategoryList
	default:
		return CategoryDefault
	}
}

// fallbackCategory selects the extractive synthesis strategy. Its keyword set
// differs slightly from the prompt rule ("what is" alone is a summary here,
// "tell me more" is an explanation); both orders are part of the contract.
func fallbackCategory(question string) Category {
	q := strings.ToLower(question)
	switch {
	case containsAny(q, "about", "summary", "what is"):
		return CategoryOverview
	case containsAny(q, "who", "person"):
		return CategoryPerson
	case containsAny(q, "tell me more", "explain", "why"):
		return CategoryCausal
	case containsAny(q, "what did he say", "what did she say"):
		return CategoryQuote
	default:
		return CategoryDefault
	}
}
