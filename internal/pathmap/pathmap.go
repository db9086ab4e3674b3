package pathmap

import (
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/eykd/outlinesync/internal/model"
)

var disallowedRunRE = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
var dashRunRE = regexp.MustCompile(`-+`)

// Sanitize implements spec.md §3's PathAssignment sanitization rule:
// replace every character outside [A-Za-z0-9_-] with '-', collapse runs,
// trim leading/trailing '-'. Empty result becomes "untitled". Case is
// preserved.
func Sanitize(title string) string {
	s := disallowedRunRE.ReplaceAllString(title, "-")
	s = dashRunRE.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "untitled"
	}
	return s
}

// Assign computes the id -> relPath mapping for every document in h. It is
// a pure function of h: the result does not depend on the order documents
// were listed in (spec.md §8 property 2), and collision suffixes are
// assigned in id-ascending order so that adding a new, non-colliding
// sibling never renumbers an existing sibling's suffix (spec.md §8
// property 3).
func Assign(h *model.Hierarchy) model.PathAssignment {
	out := model.PathAssignment{}
	assignChildren(h, "", "", out)
	return out
}

// assignChildren assigns paths for all direct children of parentID (""
// means root) given the already-assigned directory prefix for parentID,
// and recurses into any child that is itself a parent.
func assignChildren(h *model.Hierarchy, parentID, prefix string, out model.PathAssignment) {
	var childIDs []string
	if parentID == "" {
		childIDs = append(childIDs, h.Roots...)
	} else if e := h.Entries[parentID]; e != nil {
		childIDs = append(childIDs, e.Children...)
	}
	sort.Strings(childIDs)

	used := map[string]int{}
	for _, id := range childIDs {
		e := h.Entries[id]
		if e == nil {
			continue
		}
		base := Sanitize(e.Doc.Title)
		name := dedupe(base, used)

		if e.IsParent {
			dirPath := path.Join(prefix, name)
			out[id] = path.Join(dirPath, model.IndexFilename)
			assignChildren(h, id, dirPath, out)
		} else {
			out[id] = path.Join(prefix, name+".md")
		}
	}
}

// dedupe returns base, or base with a "-2", "-3", ... suffix if base has
// already been used at this sibling level, recording the choice in used.
func dedupe(base string, used map[string]int) string {
	count := used[base]
	used[base] = count + 1
	if count == 0 {
		return base
	}
	return base + "-" + strconv.Itoa(count+1)
}
