package utils

import "reflect"

// GetStructName returns the type name of i, looking through pointers.
func GetStructName(i interface{}) string {
	t := reflect.TypeOf(i)
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
