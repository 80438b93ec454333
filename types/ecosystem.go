package types

import (
	"fmt"
	"strings"
)

// Ecosystem identifies one language test toolchain.
type Ecosystem string

const (
	EcosystemJava       Ecosystem = "java"
	EcosystemGo         Ecosystem = "go"
	EcosystemJavaScript Ecosystem = "javascript"
	EcosystemKotlin     Ecosystem = "kotlin"
	EcosystemDotNet     Ecosystem = "dotnet"
	EcosystemPHP        Ecosystem = "php"
	EcosystemRuby       Ecosystem = "ruby"
	EcosystemRust       Ecosystem = "rust"
	EcosystemCPP        Ecosystem = "cpp"
)

// AllEcosystems lists every supported ecosystem in a stable order.
var AllEcosystems = []Ecosystem{
	EcosystemJava,
	EcosystemGo,
	EcosystemJavaScript,
	EcosystemKotlin,
	EcosystemDotNet,
	EcosystemPHP,
	EcosystemRuby,
	EcosystemRust,
	EcosystemCPP,
}

// IsValid reports whether e is a known ecosystem.
func (e Ecosystem) IsValid() bool {
	for _, known := range AllEcosystems {
		if e == known {
			return true
		}
	}
	return false
}

func (e Ecosystem) String() string {
	return string(e)
}

// ParseEcosystem converts user input into an Ecosystem. Matching is case-insensitive.
func ParseEcosystem(s string) (Ecosystem, error) {
	e := Ecosystem(strings.ToLower(strings.TrimSpace(s)))
	if !e.IsValid() {
		return "", fmt.Errorf("unknown ecosystem %q, must be one of: %s", s, EcosystemNames())
	}
	return e, nil
}

// EcosystemNames returns a comma separated list of the known ecosystems.
func EcosystemNames() string {
	names := make([]string, len(AllEcosystems))
	for i, e := range AllEcosystems {
		names[i] = string(e)
	}
	return strings.Join(names, ", ")
}
