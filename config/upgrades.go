package config

// UpgradeFunc advances a document by exactly one schema version. It may
// modify doc in place and returns the upgraded document.
type UpgradeFunc func(doc map[string]any) map[string]any

// Step is one link of the upgrade chain, taking documents at From to From+1.
type Step struct {
	From        int
	Description string
	Apply       UpgradeFunc
}

// Steps returns the default upgrade chain, indexed by source version.
func Steps() []Step {
	return []Step{
		{From: 0, Description: "rename token to gitlab-token", Apply: renameLegacyToken},
		{From: 1, Description: "move GitLab settings into backend", Apply: externalizeBackend},
	}
}

func renameLegacyToken(doc map[string]any) map[string]any {
	doc["gitlab-token"] = doc[LegacyTokenField]
	delete(doc, LegacyTokenField)
	return doc
}

func externalizeBackend(doc map[string]any) map[string]any {
	backend := map[string]any{"name": BackendGitLab}
	if token, ok := doc["gitlab-token"]; ok {
		backend["token"] = token
		delete(doc, "gitlab-token")
	}
	if host, ok := doc["gitlab-host"]; ok {
		backend["host"] = host
		delete(doc, "gitlab-host")
	}

	doc[VersionField] = 2
	doc["backend"] = backend
	return doc
}
