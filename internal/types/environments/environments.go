package environments

import "strings"

type Environment string

const (
	Production  Environment = "production"
	Staging     Environment = "staging"
	Development Environment = "development"
	Test        Environment = "test"
)

// Parse maps APP_ENV to an Environment. Unknown or empty values fall back
// to Development.
func Parse(s string) Environment {
	switch env := Environment(strings.ToLower(strings.TrimSpace(s))); env {
	case Production, Staging, Development, Test:
		return env
	case "prod":
		return Production
	default:
		return Development
	}
}

func (e Environment) String() string {
	return string(e)
}
