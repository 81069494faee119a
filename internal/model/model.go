package model

import (
	"strings"
	"unicode"
)

const (
	// FallbackModel lets the provider pick a model when nothing else is set.
	FallbackModel = "openrouter/auto"
	PresetPrefix  = "@preset/"
)

type Source string

const (
	SourceExplicit    Source = "explicit"
	SourcePreset      Source = "preset"
	SourceEnvironment Source = "environment"
	SourceFallback    Source = "fallback"
)

type Selection struct {
	Id     string
	Source Source
}

// Resolve picks the model identifier for one request. The explicit model wins
// when well formed, then a preset carrying PresetPrefix, then the environment
// default, then FallbackModel.
func Resolve(explicit, preset, envDefault string) Selection {
	if id, ok := wellFormed(explicit); ok {
		return Selection{Id: id, Source: SourceExplicit}
	}

	if id, ok := wellFormed(preset); ok && IsPreset(id) {
		return Selection{Id: id, Source: SourcePreset}
	}

	if id, ok := wellFormed(envDefault); ok {
		return Selection{Id: id, Source: SourceEnvironment}
	}

	return Selection{Id: FallbackModel, Source: SourceFallback}
}

func IsPreset(id string) bool {
	return strings.HasPrefix(id, PresetPrefix) && len(id) > len(PresetPrefix)
}

func wellFormed(id string) (string, bool) {
	trimmed := strings.TrimSpace(id)
	if len(trimmed) == 0 {
		return "", false
	}

	if strings.IndexFunc(trimmed, unicode.IsSpace) != -1 {
		return "", false
	}

	return trimmed, true
}
