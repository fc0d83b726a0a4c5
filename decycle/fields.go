package decycle

import (
	"reflect"
	"sort"
	"strings"
	"sync"
)

// Field describes one JSON member of a struct type.
type Field struct {
	name      string
	index     []int
	typ       reflect.Type
	omitEmpty bool
	quoted    bool
	tagged    bool
}

// Name is the JSON member name.
func (f Field) Name() string { return f.name }

// Index is the reflect index sequence, suitable for FieldByIndex.
func (f Field) Index() []int { return f.index }

// Type is the Go type of the field.
func (f Field) Type() reflect.Type { return f.typ }

// Quoted reports the ",string" option on a scalar field.
func (f Field) Quoted() bool { return f.quoted }

var fieldCache sync.Map // map[reflect.Type][]Field

// Fields returns the JSON members of struct type t sorted by name, following
// the encoding/json rules for tags and embedded structs.
func Fields(t reflect.Type) []Field {
	return cachedFields(t)
}

func cachedFields(t reflect.Type) []Field {
	if f, ok := fieldCache.Load(t); ok {
		return f.([]Field)
	}
	f, _ := fieldCache.LoadOrStore(t, typeFields(t))
	return f.([]Field)
}

func typeFields(t reflect.Type) []Field {
	type queued struct {
		typ   reflect.Type
		index []int
	}

	var fields []Field
	current := []queued{}
	next := []queued{{typ: t}}
	visited := map[reflect.Type]bool{}

	// Breadth-first over embedding depth so shallower fields win.
	for len(next) > 0 {
		current, next = next, current[:0]
		count := map[string]int{}
		var level []Field

		for _, q := range current {
			if visited[q.typ] {
				continue
			}
			visited[q.typ] = true

			for i := 0; i < q.typ.NumField(); i++ {
				sf := q.typ.Field(i)
				if !sf.IsExported() && !sf.Anonymous {
					continue
				}
				tag := sf.Tag.Get("json")
				if tag == "-" {
					continue
				}
				name, opts, _ := strings.Cut(tag, ",")
				index := append(append([]int(nil), q.index...), i)

				ft := sf.Type
				if ft.Name() == "" && ft.Kind() == reflect.Pointer {
					ft = ft.Elem()
				}
				if sf.Anonymous && name == "" && ft.Kind() == reflect.Struct {
					next = append(next, queued{typ: ft, index: index})
					continue
				}
				if !sf.IsExported() {
					continue
				}

				f := Field{
					name:      name,
					index:     index,
					typ:       sf.Type,
					omitEmpty: hasOption(opts, "omitempty"),
					quoted:    hasOption(opts, "string") && isScalarKind(sf.Type.Kind()),
					tagged:    name != "",
				}
				if f.name == "" {
					f.name = sf.Name
				}
				count[f.name]++
				level = append(level, f)
			}
		}

		for _, f := range level {
			if count[f.name] > 1 && !uniqueTagged(level, f.name) {
				continue
			}
			if count[f.name] > 1 && !f.tagged {
				continue
			}
			if containsName(fields, f.name) {
				continue
			}
			fields = append(fields, f)
		}
	}

	sort.Slice(fields, func(i, j int) bool { return fields[i].name < fields[j].name })
	return fields
}

func uniqueTagged(level []Field, name string) bool {
	n := 0
	for _, f := range level {
		if f.name == name && f.tagged {
			n++
		}
	}
	return n == 1
}

func containsName(fields []Field, name string) bool {
	for _, f := range fields {
		if f.name == name {
			return true
		}
	}
	return false
}

func hasOption(opts, want string) bool {
	for opts != "" {
		var o string
		o, opts, _ = strings.Cut(opts, ",")
		if o == want {
			return true
		}
	}
	return false
}

func isScalarKind(k reflect.Kind) bool {
	switch k {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
