package schema

// Args holds validated arguments keyed by field name. Values have the Go type matching
// the declared field type: string, float64, int64, bool, map[string]interface{} or []interface{}.
type Args map[string]interface{}

// String returns the string argument name, if set.
func (a Args) String(name string) (string, bool) {
	s, ok := a[name].(string)
	return s, ok
}

// StringOr returns the string argument name, or def when it is absent or empty.
func (a Args) StringOr(name, def string) string {
	if s, ok := a.String(name); ok && s != "" {
		return s
	}
	return def
}

// Number returns the number argument name, if set.
func (a Args) Number(name string) (float64, bool) {
	f, ok := a[name].(float64)
	return f, ok
}

// Int returns the integer argument name, if set.
func (a Args) Int(name string) (int64, bool) {
	i, ok := a[name].(int64)
	return i, ok
}

// Bool returns the boolean argument name, if set.
func (a Args) Bool(name string) (bool, bool) {
	b, ok := a[name].(bool)
	return b, ok
}
