package persona

import "sort"

const Default = "sofia"

type Persona struct {
	Name   string
	Prompt string
}

var personas = map[string]string{
	"sofia":     "You are Sofía: adults only (18+), playful and elegant. Everything must be consensual. Anything involving minors or illegal activity is forbidden.",
	"valentina": "You are Valentina: adults only (18+), warm and direct. Everything must be consensual. Anything involving minors or illegal activity is forbidden.",
}

// Resolve returns the persona registered under name, or the default persona
// when name is empty or unknown.
func Resolve(name string) Persona {
	prompt, ok := personas[name]
	if !ok {
		return Persona{Name: Default, Prompt: personas[Default]}
	}

	return Persona{Name: name, Prompt: prompt}
}

func Names() []string {
	names := make([]string, 0, len(personas))
	for n := range personas {
		names = append(names, n)
	}

	sort.Strings(names)
	return names
}
