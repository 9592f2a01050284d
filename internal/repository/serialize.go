package repository

import (
	"sort"

	"github.com/MarcoPoloResearchLab/thlink/backend/internal/document"
	"github.com/MarcoPoloResearchLab/thlink/backend/internal/store"
)

// serialize renders the persisted form of a document. Deleted links and highlights are already
// unregistered, so only live children appear.
func serialize(doc *document.Document, contentID string) store.Record {
	record := store.Record{
		ID:          doc.ID().String(),
		Workspace:   doc.Workspace().String(),
		Title:       doc.Title(),
		Version:     doc.Version(),
		Tags:        doc.Tags(),
		ContentType: string(doc.Content().Type()),
		ContentID:   contentID,
		Links:       linkRecords(doc.Links()),
		Backlinks:   backlinkRecords(doc.Backlinks()),
	}
	highlights := doc.Highlights()
	if len(highlights) > 0 {
		record.Highlights = make(map[string]store.HighlightRecord, len(highlights))
		for _, highlight := range highlights {
			record.Highlights[highlight.ID().String()] = highlightRecord(highlight)
		}
	}
	return record
}

func highlightRecord(highlight *document.Highlight) store.HighlightRecord {
	record := store.HighlightRecord{
		Location:        highlight.Location().String(),
		LinkPreviewText: highlight.LinkPreview().OptionalText(),
		Backlinks:       backlinkRecords(highlight.Backlinks()),
	}
	if note := highlight.Note(); note != nil {
		body, _ := note.LoadedBody()
		text := string(body)
		record.NoteBody = &text
		record.Links = linkRecords(highlight.Links())
	}
	return record
}

func linkRecords(links []*document.Link) map[string]store.LinkRecord {
	if len(links) == 0 {
		return nil
	}
	records := make(map[string]store.LinkRecord, len(links))
	for _, link := range links {
		target := document.DescribeEndpoint(link.Target().Ref(), link.TargetPreview())
		records[link.ID().String()] = store.LinkRecord{
			Location:                           link.Location().String(),
			TargetDocumentID:                   target.DocumentID.String(),
			TargetDocumentHighlightID:          target.HighlightID.String(),
			TargetDocumentPreviewText:          target.DocumentPreviewText,
			TargetDocumentHighlightPreviewText: target.HighlightPreviewText,
		}
	}
	return records
}

func backlinkRecords(links []*document.Link) map[string]store.BacklinkRecord {
	if len(links) == 0 {
		return nil
	}
	records := make(map[string]store.BacklinkRecord, len(links))
	for _, link := range links {
		source := document.DescribeEndpoint(link.Source().Ref(), link.SourcePreview())
		records[link.ID().String()] = store.BacklinkRecord{
			Location:                           link.Location().String(),
			SourceDocumentID:                   source.DocumentID.String(),
			SourceDocumentHighlightID:          source.HighlightID.String(),
			SourceDocumentPreviewText:          source.DocumentPreviewText,
			SourceDocumentHighlightPreviewText: source.HighlightPreviewText,
		}
	}
	return records
}

func targetEndpoint(record store.LinkRecord) document.Endpoint {
	return document.Endpoint{
		DocumentID:           document.ID(record.TargetDocumentID),
		HighlightID:          document.ID(record.TargetDocumentHighlightID),
		DocumentPreviewText:  record.TargetDocumentPreviewText,
		HighlightPreviewText: record.TargetDocumentHighlightPreviewText,
	}
}

func sourceEndpoint(record store.BacklinkRecord) document.Endpoint {
	return document.Endpoint{
		DocumentID:           document.ID(record.SourceDocumentID),
		HighlightID:          document.ID(record.SourceDocumentHighlightID),
		DocumentPreviewText:  record.SourceDocumentPreviewText,
		HighlightPreviewText: record.SourceDocumentHighlightPreviewText,
	}
}

func sameText(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sortedKeys[V any](entries map[string]V) []string {
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
