package llm

// ModelSpec describes one entry in the model catalog shown to users and
// walked by the fallback chain.
type ModelSpec struct {
	Name        string
	DisplayName string
	Description string
}

// catalog lists the supported Gemini models in fallback order. The first
// entry is the default; later entries are tried when an earlier model is
// decommissioned or unavailable for the account.
var catalog = []ModelSpec{
	{
		Name:        "gemini-1.5-flash-latest",
		DisplayName: "Gemini 1.5 Flash",
		Description: "Fast, cost-effective model for SQL generation",
	},
	{
		Name:        "gemini-1.5-flash-8b",
		DisplayName: "Gemini 1.5 Flash 8B",
		Description: "Smaller Flash variant, lowest latency",
	},
	{
		Name:        "gemini-1.5-pro-latest",
		DisplayName: "Gemini 1.5 Pro",
		Description: "Higher quality reasoning for complex schemas",
	},
	{
		Name:        "gemini-1.0-pro",
		DisplayName: "Gemini 1.0 Pro",
		Description: "Legacy model kept as a last resort",
	},
}

// Catalog returns a copy of the model catalog.
func Catalog() []ModelSpec {
	out := make([]ModelSpec, len(catalog))
	copy(out, catalog)
	return out
}

// DefaultModel returns the name of the first catalog entry.
func DefaultModel() string {
	return catalog[0].Name
}

// Chain returns the ordered list of model names to try. A non-empty
// preferred model goes first; catalog entries follow, minus the duplicate.
func Chain(preferred string) []string {
	var chain []string
	if preferred != "" {
		chain = append(chain, preferred)
	}
	for _, spec := range catalog {
		if spec.Name != preferred {
			chain = append(chain, spec.Name)
		}
	}
	return chain
}
