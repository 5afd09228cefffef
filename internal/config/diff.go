// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"reflect"
	"sort"
	"strings"
)

// Diff returns the YAML paths of the settings that differ between old and
// next, sorted.
func Diff(old, next Config) []string {
	var changed []string
	compareStruct("", reflect.ValueOf(old), reflect.ValueOf(next), &changed)
	sort.Strings(changed)
	return changed
}

func compareStruct(prefix string, ov, nv reflect.Value, changed *[]string) {
	t := ov.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		path := fieldName(f)
		if prefix != "" {
			path = prefix + "." + path
		}

		o, n := ov.Field(i), nv.Field(i)
		if o.Kind() == reflect.Struct {
			compareStruct(path, o, n, changed)
			continue
		}
		if o.Kind() == reflect.Slice && o.Len() == 0 && n.Len() == 0 {
			continue
		}
		if !reflect.DeepEqual(o.Interface(), n.Interface()) {
			*changed = append(*changed, path)
		}
	}
}

func fieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
	if name == "" || name == "-" {
		return strings.ToLower(f.Name)
	}
	return name
}
