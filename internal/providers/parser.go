package providers

import "strings"

// ProviderRef is one entry of a provider list such as "openai:primary|ollama:nomic".
// KeyAlias selects the API key (openai, groq) or the model (ollama).
type ProviderRef struct {
	Raw      string
	Name     string
	KeyAlias string
}

func (r ProviderRef) String() string {
	if r.KeyAlias == "" {
		return r.Name
	}
	return r.Name + ":" + r.KeyAlias
}

// ParseProviderList splits on "|" or ",", lowercases provider names and drops
// duplicates. An empty list yields the mock provider.
func ParseProviderList(raw string) []ProviderRef {
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == '|' || r == ',' })
	out := make([]ProviderRef, 0, len(parts))
	seen := map[string]struct{}{}
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		ref := ProviderRef{Raw: p}
		name, alias, _ := strings.Cut(p, ":")
		ref.Name = strings.ToLower(strings.TrimSpace(name))
		ref.KeyAlias = strings.TrimSpace(alias)
		if ref.Name == "" {
			continue
		}
		if _, dup := seen[ref.String()]; dup {
			continue
		}
		seen[ref.String()] = struct{}{}
		out = append(out, ref)
	}
	if len(out) == 0 {
		out = append(out, ProviderRef{Raw: "mock", Name: "mock"})
	}
	return out
}
