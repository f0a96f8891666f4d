package flakechartview

import (
	"strings"
)

// DefaultHashLinkTemplate points at the integration test report of a master commit.
const DefaultHashLinkTemplate = "https://storage.googleapis.com/minikube-builds/logs/master/{shortHash}/{env}.html"

// HashLinker returns the report link of a commit (or root job) on an environment.
type HashLinker func(hash, environment string) string

// NewHashLinker expands {hash}, {shortHash} and {env} in template. An empty template selects
// DefaultHashLinkTemplate.
func NewHashLinker(template string) HashLinker {
	if len(template) == 0 {
		template = DefaultHashLinkTemplate
	}
	return func(hash, environment string) string {
		return strings.NewReplacer(
			"{hash}", hash,
			"{shortHash}", shortHash(hash),
			"{env}", environment,
		).Replace(template)
	}
}

// HashLink is the default linker.
func HashLink(hash, environment string) string {
	return NewHashLinker("")(hash, environment)
}

func shortHash(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}
