package documents

import (
	"context"

	"github.com/MarcoPoloResearchLab/thlink/backend/internal/document"
	"github.com/MarcoPoloResearchLab/thlink/backend/internal/repository"
)

// Model is the read view of a document returned by every operation.
type Model struct {
	ID             string
	Workspace      string
	Title          string
	Tags           []string
	ContentType    string
	ContentBodyURL string
	Version        int64
	Links          []LinkModel
	Backlinks      []LinkModel
	Highlights     []HighlightModel
}

type EndpointModel struct {
	DocumentID           string
	HighlightID          string
	DocumentPreviewText  string
	HighlightPreviewText *string
}

type LinkModel struct {
	ID       string
	Location string
	Source   EndpointModel
	Target   EndpointModel
	Broken   bool
}

type HighlightModel struct {
	ID        string
	Location  string
	NoteBody  *string
	Links     []LinkModel
	Backlinks []LinkModel
}

func render(ctx context.Context, repo *repository.DocumentRepository, doc *document.Document) (Model, error) {
	url, err := repo.ContentURL(ctx, doc)
	if err != nil {
		return Model{}, err
	}
	model := Model{
		ID:             doc.ID().String(),
		Workspace:      doc.Workspace().String(),
		Title:          doc.Title(),
		Tags:           doc.Tags(),
		ContentType:    string(doc.Content().Type()),
		ContentBodyURL: url,
		Version:        doc.Version(),
		Links:          renderLinks(ctx, doc.Links()),
		Backlinks:      renderLinks(ctx, doc.Backlinks()),
	}
	for _, highlight := range doc.Highlights() {
		rendered := HighlightModel{
			ID:        highlight.ID().String(),
			Location:  highlight.Location().String(),
			Links:     renderLinks(ctx, highlight.Links()),
			Backlinks: renderLinks(ctx, highlight.Backlinks()),
		}
		if note := highlight.Note(); note != nil {
			if body, ok := note.LoadedBody(); ok {
				text := string(body)
				rendered.NoteBody = &text
			}
		}
		model.Highlights = append(model.Highlights, rendered)
	}
	return model, nil
}

func renderLinks(ctx context.Context, links []*document.Link) []LinkModel {
	rendered := make([]LinkModel, 0, len(links))
	for _, link := range links {
		rendered = append(rendered, LinkModel{
			ID:       link.ID().String(),
			Location: link.Location().String(),
			Source:   renderEndpoint(document.DescribeEndpoint(link.Source().Ref(), link.SourcePreview())),
			Target:   renderEndpoint(document.DescribeEndpoint(link.Target().Ref(), link.TargetPreview())),
			Broken:   link.Broken(ctx),
		})
	}
	return rendered
}

func renderEndpoint(endpoint document.Endpoint) EndpointModel {
	return EndpointModel{
		DocumentID:           endpoint.DocumentID.String(),
		HighlightID:          endpoint.HighlightID.String(),
		DocumentPreviewText:  endpoint.DocumentPreviewText,
		HighlightPreviewText: endpoint.HighlightPreviewText,
	}
}
