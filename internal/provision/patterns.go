package provision

import "strings"

// MatchKind selects how a RenamePattern compares against a base name.
type MatchKind int

// Match kinds.
const (
	MatchPrefix MatchKind = iota
	MatchContains
)

// folderIDPlaceholder is replaced by the folder identifier in templates.
const folderIDPlaceholder = "{id}"

// RenamePattern maps a matching base name to a new base name built from
// Template. The file extension is carried over unchanged.
type RenamePattern struct {
	Match    MatchKind
	Needle   string
	Template string
}

func (p RenamePattern) matches(base string) bool {
	switch p.Match {
	case MatchPrefix:
		return strings.HasPrefix(base, p.Needle)
	case MatchContains:
		return strings.Contains(base, p.Needle)
	default:
		return false
	}
}

// DefaultPatterns is the ordered table applied to template documents. Prefix
// rules come first so "Auftrag_x_Pruefanweisung" is treated as an order.
var DefaultPatterns = []RenamePattern{
	{Match: MatchPrefix, Needle: "Auftrag_", Template: "Auftrag_{id}"},
	{Match: MatchPrefix, Needle: "Verfahrensanweisung_", Template: "Verfahrensanweisung_{id}"},
	{Match: MatchContains, Needle: "_Pruefanweisung", Template: "{id}_Pruefanweisung"},
}

// SplitExt splits name at its last dot. ext is empty when there is no dot or
// the dot is the last character.
func SplitExt(name string) (base, ext string) {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return name, ""
	}

	return name[:i], name[i+1:]
}

// HasExtension reports whether name carries a non-empty file extension.
func HasExtension(name string) bool {
	_, ext := SplitExt(name)

	return ext != ""
}

// NewName returns the renamed form of name under folderID using the first
// matching pattern, or ok=false when no pattern matches.
func NewName(patterns []RenamePattern, name, folderID string) (newName string, ok bool) {
	base, ext := SplitExt(name)

	for _, p := range patterns {
		if !p.matches(base) {
			continue
		}

		newName = strings.ReplaceAll(p.Template, folderIDPlaceholder, folderID)
		if ext != "" {
			newName += "." + ext
		}

		return newName, true
	}

	return "", false
}
