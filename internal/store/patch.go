package store

import "sort"

// Assignment sets the value at Path. Paths are attribute names, optionally followed by map keys.
type Assignment struct {
	Path  []string
	Value any
}

// Patch is the field-level difference between two records. Ensure lists map paths that must exist,
// as empty maps if absent, before the nested assignments under them apply.
type Patch struct {
	Ensure [][]string
	Set    []Assignment
	Remove [][]string
}

func (p Patch) Empty() bool {
	return len(p.Set) == 0 && len(p.Remove) == 0
}

// Attributes lists the top-level attributes the patch touches, in first-touch order.
func (p Patch) Attributes() []string {
	seen := make(map[string]struct{})
	var attributes []string
	visit := func(path []string) {
		if _, ok := seen[path[0]]; ok {
			return
		}
		seen[path[0]] = struct{}{}
		attributes = append(attributes, path[0])
	}
	for _, path := range p.Ensure {
		visit(path)
	}
	for _, assignment := range p.Set {
		visit(assignment.Path)
	}
	for _, path := range p.Remove {
		visit(path)
	}
	return attributes
}

// Diff computes the patch that turns oldRecord into newRecord. Map attributes are diffed per entry,
// and highlights per field, so concurrent edits to unrelated links do not overwrite each other.
func Diff(oldRecord, newRecord Record) Patch {
	var patch Patch
	if oldRecord.Title != newRecord.Title {
		patch.Set = append(patch.Set, Assignment{Path: []string{AttributeTitle}, Value: newRecord.Title})
	}
	if oldRecord.Version != newRecord.Version {
		patch.Set = append(patch.Set, Assignment{Path: []string{AttributeVersion}, Value: newRecord.Version})
	}
	if !equalStrings(oldRecord.Tags, newRecord.Tags) {
		if len(newRecord.Tags) == 0 {
			patch.Remove = append(patch.Remove, []string{AttributeTags})
		} else {
			patch.Set = append(patch.Set, Assignment{Path: []string{AttributeTags}, Value: newRecord.Tags})
		}
	}
	if oldRecord.ContentType != newRecord.ContentType {
		patch.Set = append(patch.Set, Assignment{Path: []string{AttributeContentType}, Value: newRecord.ContentType})
	}
	if oldRecord.ContentID != newRecord.ContentID {
		patch.Set = append(patch.Set, Assignment{Path: []string{AttributeContentID}, Value: newRecord.ContentID})
	}
	diffMap(&patch, []string{AttributeLinks}, oldRecord.Links, newRecord.Links, LinkRecord.Equal)
	diffMap(&patch, []string{AttributeBacklinks}, oldRecord.Backlinks, newRecord.Backlinks, BacklinkRecord.Equal)
	diffHighlights(&patch, oldRecord.Highlights, newRecord.Highlights)
	return patch
}

func diffMap[V any](patch *Patch, path []string, oldEntries, newEntries map[string]V, equal func(V, V) bool) {
	if len(oldEntries) == 0 && len(newEntries) > 0 {
		patch.Ensure = append(patch.Ensure, path)
	}
	for _, key := range sortedKeys(newEntries) {
		value := newEntries[key]
		previous, ok := oldEntries[key]
		if ok && equal(previous, value) {
			continue
		}
		patch.Set = append(patch.Set, Assignment{Path: childPath(path, key), Value: value})
	}
	for _, key := range sortedKeys(oldEntries) {
		if _, ok := newEntries[key]; !ok {
			patch.Remove = append(patch.Remove, childPath(path, key))
		}
	}
}

// diffHighlights writes new highlights whole and descends into highlights present on both sides.
func diffHighlights(patch *Patch, oldEntries, newEntries map[string]HighlightRecord) {
	root := []string{AttributeHighlights}
	if len(oldEntries) == 0 && len(newEntries) > 0 {
		patch.Ensure = append(patch.Ensure, root)
	}
	for _, key := range sortedKeys(newEntries) {
		current := newEntries[key]
		previous, ok := oldEntries[key]
		if !ok {
			patch.Set = append(patch.Set, Assignment{Path: childPath(root, key), Value: current})
			continue
		}
		if previous.Equal(current) {
			continue
		}
		path := childPath(root, key)
		if previous.Location != current.Location {
			patch.Set = append(patch.Set, Assignment{Path: childPath(path, HighlightLocation), Value: current.Location})
		}
		diffOptional(patch, childPath(path, HighlightNoteBody), previous.NoteBody, current.NoteBody)
		diffOptional(patch, childPath(path, HighlightLinkPreviewText), previous.LinkPreviewText, current.LinkPreviewText)
		diffMap(patch, childPath(path, AttributeLinks), previous.Links, current.Links, LinkRecord.Equal)
		diffMap(patch, childPath(path, AttributeBacklinks), previous.Backlinks, current.Backlinks, BacklinkRecord.Equal)
	}
	for _, key := range sortedKeys(oldEntries) {
		if _, ok := newEntries[key]; !ok {
			patch.Remove = append(patch.Remove, childPath(root, key))
		}
	}
}

func diffOptional(patch *Patch, path []string, previous, current *string) {
	if equalOptional(previous, current) {
		return
	}
	if current == nil {
		patch.Remove = append(patch.Remove, path)
		return
	}
	patch.Set = append(patch.Set, Assignment{Path: path, Value: *current})
}

func childPath(path []string, key string) []string {
	child := make([]string, len(path)+1)
	copy(child, path)
	child[len(path)] = key
	return child
}

func sortedKeys[V any](entries map[string]V) []string {
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
