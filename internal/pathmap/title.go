package pathmap

import "path"

// TitleFromPath derives a push-side title from a local relative path: an
// index file takes its title from the containing directory's basename,
// any other file takes its basename without the ".md" extension. The path
// is the source of truth for title on push; front-matter is never
// consulted (spec.md §6).
func TitleFromPath(relPath string, isIndex bool) string {
	if isIndex {
		return path.Base(path.Dir(relPath))
	}
	base := path.Base(relPath)
	return base[:len(base)-len(".md")]
}
