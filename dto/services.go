package dto

// CustomASService is a script-backed service of the application server.
type CustomASService struct {
	Code        *CustomASServiceCode `json:"code,omitempty"`
	Label       string               `json:"label,omitempty"`
	Description string               `json:"description,omitempty"`
}

func (*CustomASService) TypeName() string { return "as.dto.service.CustomASService" }

// CustomASServiceExecutionOptions holds the parameters passed to a custom
// service.
type CustomASServiceExecutionOptions struct {
	Parameters map[string]any `json:"parameters"`
}

func (*CustomASServiceExecutionOptions) TypeName() string {
	return "as.dto.service.execute.CustomASServiceExecutionOptions"
}

// WithParameter sets parameter name and returns o.
func (o *CustomASServiceExecutionOptions) WithParameter(name string, value any) *CustomASServiceExecutionOptions {
	if o.Parameters == nil {
		o.Parameters = make(map[string]any)
	}
	o.Parameters[name] = value
	return o
}

// RightsFetch returns fetch options for getRights.
func RightsFetch() *FetchOptions {
	return NewFetchOptions("as.dto.rights.fetchoptions.RightsFetchOptions")
}
