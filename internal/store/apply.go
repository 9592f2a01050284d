package store

import (
	"errors"
	"fmt"
)

// ErrPatchPath reports a patch path that does not address an attribute of the stored record.
var ErrPatchPath = errors.New("patch path does not match record")

// Apply merges patch into record, entry by entry, and returns the result. The maps of record are
// modified in place.
func Apply(record Record, patch Patch) (Record, error) {
	for _, path := range patch.Ensure {
		if err := ensureMap(&record, path); err != nil {
			return Record{}, err
		}
	}
	for _, assignment := range patch.Set {
		if err := setPath(&record, assignment.Path, assignment.Value); err != nil {
			return Record{}, err
		}
	}
	for _, path := range patch.Remove {
		if err := removePath(&record, path); err != nil {
			return Record{}, err
		}
	}
	return record, nil
}

func pathError(path []string) error {
	return fmt.Errorf("%w: %v", ErrPatchPath, path)
}

func ensureMap(record *Record, path []string) error {
	switch {
	case len(path) == 1 && path[0] == AttributeLinks:
		if record.Links == nil {
			record.Links = make(map[string]LinkRecord)
		}
	case len(path) == 1 && path[0] == AttributeBacklinks:
		if record.Backlinks == nil {
			record.Backlinks = make(map[string]BacklinkRecord)
		}
	case len(path) == 1 && path[0] == AttributeHighlights:
		if record.Highlights == nil {
			record.Highlights = make(map[string]HighlightRecord)
		}
	case len(path) == 3 && path[0] == AttributeHighlights:
		highlight, ok := record.Highlights[path[1]]
		if !ok {
			return pathError(path)
		}
		switch path[2] {
		case AttributeLinks:
			if highlight.Links == nil {
				highlight.Links = make(map[string]LinkRecord)
			}
		case AttributeBacklinks:
			if highlight.Backlinks == nil {
				highlight.Backlinks = make(map[string]BacklinkRecord)
			}
		default:
			return pathError(path)
		}
		record.Highlights[path[1]] = highlight
	default:
		return pathError(path)
	}
	return nil
}

func setPath(record *Record, path []string, value any) error {
	var ok bool
	switch {
	case len(path) == 1:
		switch path[0] {
		case AttributeTitle:
			record.Title, ok = value.(string)
		case AttributeVersion:
			record.Version, ok = value.(int64)
		case AttributeTags:
			record.Tags, ok = value.([]string)
		case AttributeContentType:
			record.ContentType, ok = value.(string)
		case AttributeContentID:
			record.ContentID, ok = value.(string)
		}
	case len(path) == 2 && path[0] == AttributeLinks && record.Links != nil:
		var link LinkRecord
		if link, ok = value.(LinkRecord); ok {
			record.Links[path[1]] = link
		}
	case len(path) == 2 && path[0] == AttributeBacklinks && record.Backlinks != nil:
		var backlink BacklinkRecord
		if backlink, ok = value.(BacklinkRecord); ok {
			record.Backlinks[path[1]] = backlink
		}
	case len(path) == 2 && path[0] == AttributeHighlights && record.Highlights != nil:
		var highlight HighlightRecord
		if highlight, ok = value.(HighlightRecord); ok {
			record.Highlights[path[1]] = highlight
		}
	case len(path) >= 3 && path[0] == AttributeHighlights:
		return updateHighlight(record, path, func(highlight *HighlightRecord) bool {
			return setHighlightField(highlight, path[2:], value)
		})
	}
	if !ok {
		return pathError(path)
	}
	return nil
}

func setHighlightField(highlight *HighlightRecord, path []string, value any) bool {
	switch {
	case len(path) == 1 && path[0] == HighlightLocation:
		location, ok := value.(string)
		highlight.Location = location
		return ok
	case len(path) == 1 && path[0] == HighlightNoteBody:
		text, ok := value.(string)
		highlight.NoteBody = &text
		return ok
	case len(path) == 1 && path[0] == HighlightLinkPreviewText:
		text, ok := value.(string)
		highlight.LinkPreviewText = &text
		return ok
	case len(path) == 2 && path[0] == AttributeLinks && highlight.Links != nil:
		link, ok := value.(LinkRecord)
		if ok {
			highlight.Links[path[1]] = link
		}
		return ok
	case len(path) == 2 && path[0] == AttributeBacklinks && highlight.Backlinks != nil:
		backlink, ok := value.(BacklinkRecord)
		if ok {
			highlight.Backlinks[path[1]] = backlink
		}
		return ok
	}
	return false
}

func removePath(record *Record, path []string) error {
	switch {
	case len(path) == 1 && path[0] == AttributeTags:
		record.Tags = nil
	case len(path) == 1 && path[0] == AttributeLinks:
		record.Links = nil
	case len(path) == 1 && path[0] == AttributeBacklinks:
		record.Backlinks = nil
	case len(path) == 1 && path[0] == AttributeHighlights:
		record.Highlights = nil
	case len(path) == 2 && path[0] == AttributeLinks:
		delete(record.Links, path[1])
	case len(path) == 2 && path[0] == AttributeBacklinks:
		delete(record.Backlinks, path[1])
	case len(path) == 2 && path[0] == AttributeHighlights:
		delete(record.Highlights, path[1])
	case len(path) >= 3 && path[0] == AttributeHighlights:
		return updateHighlight(record, path, func(highlight *HighlightRecord) bool {
			return removeHighlightField(highlight, path[2:])
		})
	default:
		return pathError(path)
	}
	return nil
}

func removeHighlightField(highlight *HighlightRecord, path []string) bool {
	switch {
	case len(path) == 1 && path[0] == HighlightNoteBody:
		highlight.NoteBody = nil
	case len(path) == 1 && path[0] == HighlightLinkPreviewText:
		highlight.LinkPreviewText = nil
	case len(path) == 2 && path[0] == AttributeLinks:
		delete(highlight.Links, path[1])
	case len(path) == 2 && path[0] == AttributeBacklinks:
		delete(highlight.Backlinks, path[1])
	default:
		return false
	}
	return true
}

// updateHighlight edits the highlight named by path[1]; a highlight removed meanwhile is a path error.
func updateHighlight(record *Record, path []string, edit func(*HighlightRecord) bool) error {
	highlight, ok := record.Highlights[path[1]]
	if !ok || !edit(&highlight) {
		return pathError(path)
	}
	record.Highlights[path[1]] = highlight
	return nil
}
