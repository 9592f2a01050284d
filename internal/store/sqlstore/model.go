package sqlstore

import "github.com/MarcoPoloResearchLab/thlink/backend/internal/store"

// DocumentRow is the sqlite table backing the document store.
type DocumentRow struct {
	Workspace        string                           `gorm:"column:workspace;primaryKey;size:190;not null"`
	DocumentID       string                           `gorm:"column:document_id;primaryKey;size:190;not null"`
	Title            string                           `gorm:"column:title;type:text;not null"`
	Version          int64                            `gorm:"column:version;not null"`
	Tags             []string                         `gorm:"column:tags;type:text;serializer:json"`
	ContentType      string                           `gorm:"column:content_type;size:64;not null"`
	ContentID        string                           `gorm:"column:content_id;size:190;not null"`
	Links            map[string]store.LinkRecord      `gorm:"column:links;type:text;serializer:json"`
	Backlinks        map[string]store.BacklinkRecord  `gorm:"column:backlinks;type:text;serializer:json"`
	Highlights       map[string]store.HighlightRecord `gorm:"column:highlights;type:text;serializer:json"`
	UpdatedAtSeconds int64                            `gorm:"column:updated_at_s;not null"`
}

func (DocumentRow) TableName() string {
	return "documents"
}

// columnsByAttribute maps record attributes onto table columns.
var columnsByAttribute = map[string]string{
	store.AttributeTitle:       "title",
	store.AttributeVersion:     "version",
	store.AttributeTags:        "tags",
	store.AttributeContentType: "content_type",
	store.AttributeContentID:   "content_id",
	store.AttributeLinks:       "links",
	store.AttributeBacklinks:   "backlinks",
	store.AttributeHighlights:  "highlights",
}

func newDocumentRow(key store.Key, record store.Record, updatedAtSeconds int64) DocumentRow {
	return DocumentRow{
		Workspace:        key.Workspace,
		DocumentID:       key.ID,
		Title:            record.Title,
		Version:          record.Version,
		Tags:             record.Tags,
		ContentType:      record.ContentType,
		ContentID:        record.ContentID,
		Links:            record.Links,
		Backlinks:        record.Backlinks,
		Highlights:       record.Highlights,
		UpdatedAtSeconds: updatedAtSeconds,
	}
}

func (r DocumentRow) record() store.Record {
	return store.Record{
		ID:          r.DocumentID,
		Workspace:   r.Workspace,
		Title:       r.Title,
		Version:     r.Version,
		Tags:        r.Tags,
		ContentType: r.ContentType,
		ContentID:   r.ContentID,
		Links:       r.Links,
		Backlinks:   r.Backlinks,
		Highlights:  r.Highlights,
	}
}
