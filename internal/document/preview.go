package document

// LinkPreview is the label rendered for a link endpoint. A document preview carries the title;
// a highlight preview carries the note body and chains to its document's preview.
//
// Previews are shared by pointer: every link holding one sees text changes immediately.
type LinkPreview struct {
	text   *string
	parent *LinkPreview
}

func NewLinkPreview(text *string, parent *LinkPreview) *LinkPreview {
	preview := &LinkPreview{parent: parent}
	if text != nil {
		preview.SetText(*text)
	}
	return preview
}

func (p *LinkPreview) Text() (string, bool) {
	if p == nil || p.text == nil {
		return "", false
	}
	return *p.text, true
}

// OptionalText returns a copy of the text, or nil when unset.
func (p *LinkPreview) OptionalText() *string {
	text, ok := p.Text()
	if !ok {
		return nil
	}
	return &text
}

func (p *LinkPreview) Parent() *LinkPreview {
	if p == nil {
		return nil
	}
	return p.parent
}

func (p *LinkPreview) SetText(text string) {
	p.text = &text
}

func (p *LinkPreview) ClearText() {
	p.text = nil
}
