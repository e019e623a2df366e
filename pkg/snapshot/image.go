package snapshot

import "github.com/distribution/reference"

// parseImageRef splits a container image reference into its familiar
// repository name and tag. Unparseable references yield empty strings; the
// verbatim image string is kept on the entity either way.
func parseImageRef(image string) (repo, tag string) {
	named, err := reference.ParseNormalizedNamed(image)
	if err != nil {
		return "", ""
	}
	repo = reference.FamiliarName(named)
	if tagged, ok := named.(reference.Tagged); ok {
		tag = tagged.Tag()
	}
	return repo, tag
}
