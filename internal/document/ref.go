package document

import "fmt"

type NodeKind int

const (
	NodeDocument NodeKind = iota + 1
	NodeHighlight
)

// NodeRef names a link endpoint: either a document, or a highlight inside a document.
type NodeRef struct {
	Kind        NodeKind
	DocumentID  ID
	HighlightID ID
}

func DocumentRef(documentID ID) NodeRef {
	return NodeRef{Kind: NodeDocument, DocumentID: documentID}
}

func HighlightRef(documentID, highlightID ID) NodeRef {
	return NodeRef{Kind: NodeHighlight, DocumentID: documentID, HighlightID: highlightID}
}

func (r NodeRef) IsHighlight() bool {
	return r.Kind == NodeHighlight
}

// NodeID is the id of the endpoint itself.
func (r NodeRef) NodeID() ID {
	if r.IsHighlight() {
		return r.HighlightID
	}
	return r.DocumentID
}

func (r NodeRef) String() string {
	if r.IsHighlight() {
		return fmt.Sprintf("highlight(%s/%s)", r.DocumentID, r.HighlightID)
	}
	return fmt.Sprintf("document(%s)", r.DocumentID)
}

// Endpoint is the flattened view of one side of a link, as stored and rendered.
type Endpoint struct {
	DocumentID           ID
	HighlightID          ID
	DocumentPreviewText  string
	HighlightPreviewText *string
}

// DescribeEndpoint flattens a node reference and the preview a link holds for it.
func DescribeEndpoint(ref NodeRef, preview *LinkPreview) Endpoint {
	if ref.IsHighlight() {
		documentText, _ := preview.Parent().Text()
		return Endpoint{
			DocumentID:           ref.DocumentID,
			HighlightID:          ref.HighlightID,
			DocumentPreviewText:  documentText,
			HighlightPreviewText: preview.OptionalText(),
		}
	}
	documentText, _ := preview.Text()
	return Endpoint{DocumentID: ref.DocumentID, DocumentPreviewText: documentText}
}

// Ref reconstructs the endpoint reference.
func (e Endpoint) Ref() NodeRef {
	if e.HighlightID != "" {
		return HighlightRef(e.DocumentID, e.HighlightID)
	}
	return DocumentRef(e.DocumentID)
}
