package models

// Recipient is one row from the ingestion boundary: a raw phone identifier
// plus the remaining columns as free-form attributes for parameter binding.
// Recipients are created by ingestion and consumed read-only afterwards.
type Recipient struct {
	Phone      string            `json:"phone"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Attribute returns the named attribute or an empty string.
func (r Recipient) Attribute(name string) string {
	if r.Attributes == nil {
		return ""
	}
	return r.Attributes[name]
}

// Parameter placement constants. Placement decides which message component a
// parameter is rendered into.
const (
	PlacementHeader = "header"
	PlacementBody   = "body"
)

// Parameter content type constants.
const (
	ParamTypeText     = "text"
	ParamTypeDocument = "document"
	ParamTypeImage    = "image"
	ParamTypeCurrency = "currency"
)

// DocumentRef points at a document asset referenced by a header parameter.
type DocumentRef struct {
	Link     string `json:"link"`
	Filename string `json:"filename,omitempty"`
}

// TemplateParameter is one tagged value bound into a message template. A
// message carries an ordered sequence of these; order is significant because
// the provider matches parameters to template placeholders positionally.
type TemplateParameter struct {
	Placement string       `json:"placement"`
	Type      string       `json:"type"`
	Name      string       `json:"name,omitempty"`
	Value     string       `json:"value,omitempty"`
	Document  *DocumentRef `json:"document,omitempty"`
}

// Button describes one interactive button attached to a campaign message.
// Identifiers are assigned by the dispatcher, not the caller.
type Button struct {
	Title string `json:"title,omitempty"`
}

// TemplateRef identifies a pre-approved provider-side template.
type TemplateRef struct {
	Name     string `json:"name"`
	Language string `json:"language"`
}
