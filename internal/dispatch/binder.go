package dispatch

import "github.com/example/campaign-dispatcher/internal/models"

// ParamBinder maps one recipient to the ordered parameter sequence a given
// template expects. It is an injected strategy because template shape varies
// per campaign; the dispatcher never validates parameter count against the
// provider's template definition, so mismatches surface as provider-side
// failures.
type ParamBinder interface {
	Bind(recipient models.Recipient) []models.TemplateParameter
}

// BinderFunc adapts a plain function to the ParamBinder interface.
type BinderFunc func(recipient models.Recipient) []models.TemplateParameter

// Bind calls the wrapped function.
func (f BinderFunc) Bind(recipient models.Recipient) []models.TemplateParameter {
	return f(recipient)
}

// AttributeBinder builds text body parameters from named recipient
// attributes, in the order the names are given. It covers the common case of
// templates whose placeholders map one-to-one onto CSV columns.
func AttributeBinder(names ...string) ParamBinder {
	return BinderFunc(func(recipient models.Recipient) []models.TemplateParameter {
		params := make([]models.TemplateParameter, 0, len(names))
		for _, name := range names {
			params = append(params, models.TemplateParameter{
				Placement: models.PlacementBody,
				Type:      models.ParamTypeText,
				Name:      name,
				Value:     recipient.Attribute(name),
			})
		}
		return params
	})
}
