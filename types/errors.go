package types

import "fmt"

// ConfigurationError reports an object that was set up with missing or
// invalid parameters. It is only ever returned before assembly starts.
type ConfigurationError struct {
	Object string // name of the object being built, e.g. "Kernels/diff_u"
	Param  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if len(e.Param) == 0 {
		return fmt.Sprintf("%s: %s", e.Object, e.Reason)
	}
	return fmt.Sprintf("%s: parameter %q: %s", e.Object, e.Param, e.Reason)
}

func NewConfigurationError(object, param, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{
		Object: object,
		Param:  param,
		Reason: fmt.Sprintf(format, args...),
	}
}

// LookupError reports a name that could not be resolved: a variable, a
// material property, a property derivative or an enum value.
type LookupError struct {
	Kind    string // "variable", "material property", ...
	Name    string
	Context string
}

func (e *LookupError) Error() string {
	if len(e.Context) == 0 {
		return fmt.Sprintf("unknown %s %q", e.Kind, e.Name)
	}
	return fmt.Sprintf("unknown %s %q (%s)", e.Kind, e.Name, e.Context)
}
