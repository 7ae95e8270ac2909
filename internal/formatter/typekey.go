package formatter

import "reflect"

// TypeKeyOf derives the registry type key for a value: the string form of
// its runtime type with pointer indirections stripped, so a *T and a T share
// one key. Callers are free to ignore this helper and register any stable
// string of their own as the type key.
func TypeKeyOf(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.String()
}
