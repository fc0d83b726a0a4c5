package endpoint

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
)

// FormFile is one file part of a multipart request body.
type FormFile struct {
	// Name is the file name sent by the client, without its directory.
	Name        string
	ContentType string
	Content     []byte
}

const defaultFieldLimit = 16 * 1024

var (
	sources       = []string{"path", "query", "body", "file"}
	formFilesType = reflect.TypeFor[[]FormFile]()
)

// Unmarshal fills the struct dst points to from r. Each field takes its
// value from the one source named by its tag:
//
//	path:"name"   the path value matched by the ServeMux pattern
//	query:"name"  the first value of the query parameter
//	body:""       the whole body, into a string or []byte
//	file:"name"   the file parts of a multipart body with that form name,
//	              into a []FormFile
//
// An empty name means the field name in lower case. Path and query fields
// may be strings, booleans or numbers. A field whose source has no value is
// left unchanged, and untagged fields are ignored.
//
// Values are limited to 16KB, or to the byte count of the field's maxLength
// tag. maxLength:"" removes the limit.
//
// Malformed requests give a 400 *EndpointError, and a file field on a
// request that is not multipart gives a 415. Badly tagged structs give a 500.
func Unmarshal(r *http.Request, dst any) error {
	v := reflect.ValueOf(dst)
	if r == nil || v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return newEndpointError(http.StatusInternalServerError, "",
			fmt.Errorf("endpoint: decode: need a request and a pointer to a struct, got %T", dst))
	}
	sv := v.Elem()
	fields, err := taggedFields(sv.Type())
	if err != nil {
		return newEndpointError(http.StatusInternalServerError, "", err)
	}

	query := r.URL.Query()
	for _, f := range fields {
		fv := sv.Field(f.index)
		switch f.source {
		case "path":
			if s := r.PathValue(f.name); s != "" {
				err = f.setText(fv, s)
			}
		case "query":
			if vs := query[f.name]; len(vs) > 0 {
				err = f.setText(fv, vs[0])
			}
		case "body":
			err = f.setBody(fv, r)
		case "file":
			err = f.setFiles(fv, r)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

type taggedField struct {
	index  int
	field  string
	source string
	name   string
	limit  int
}

func taggedFields(t reflect.Type) ([]taggedField, error) {
	var out []taggedField
	readsBody := ""
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		f := taggedField{index: i, field: sf.Name}
		for _, src := range sources {
			name, ok := sf.Tag.Lookup(src)
			if !ok {
				continue
			}
			if f.source != "" {
				return nil, fmt.Errorf("endpoint: decode: field %s has both %s and %s tags", sf.Name, f.source, src)
			}
			f.source, f.name = src, strings.TrimSpace(name)
		}
		if f.source == "" {
			continue
		}
		if f.name == "" {
			f.name = strings.ToLower(sf.Name)
		}

		switch f.source {
		case "body", "file":
			if readsBody != "" {
				return nil, fmt.Errorf("endpoint: decode: fields %s and %s both read the body", readsBody, sf.Name)
			}
			readsBody = sf.Name
		}
		if err := checkFieldType(f.source, sf.Type); err != nil {
			return nil, fmt.Errorf("endpoint: decode: field %s: %w", sf.Name, err)
		}

		f.limit = defaultFieldLimit
		if l, ok := sf.Tag.Lookup("maxLength"); ok {
			if l = strings.TrimSpace(l); l == "" {
				f.limit = 0
			} else if n, err := strconv.Atoi(l); err != nil || n < 0 {
				return nil, fmt.Errorf("endpoint: decode: field %s: invalid maxLength %q", sf.Name, l)
			} else {
				f.limit = n
			}
		}
		out = append(out, f)
	}
	return out, nil
}

func checkFieldType(source string, t reflect.Type) error {
	switch source {
	case "body":
		if t.Kind() == reflect.String || t == reflect.TypeFor[[]byte]() {
			return nil
		}
		return fmt.Errorf("body needs a string or []byte, not %v", t)
	case "file":
		if t == formFilesType {
			return nil
		}
		return fmt.Errorf("file needs a []FormFile, not %v", t)
	}
	switch t.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return nil
	}
	return fmt.Errorf("%s needs a string, bool or number, not %v", source, t)
}

func (f taggedField) badRequest(err error) error {
	return newEndpointError(http.StatusBadRequest, "",
		fmt.Errorf("endpoint: decode: %s %q -> %s: %w", f.source, f.name, f.field, err))
}

func (f taggedField) tooLong() error {
	return f.badRequest(fmt.Errorf("value exceeds max length %d", f.limit))
}

func (f taggedField) setText(v reflect.Value, s string) error {
	if f.limit > 0 && len(s) > f.limit {
		return f.tooLong()
	}
	var err error
	switch v.Kind() {
	case reflect.String:
		v.SetString(s)
	case reflect.Bool:
		var b bool
		if b, err = strconv.ParseBool(s); err == nil {
			v.SetBool(b)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		var n int64
		if n, err = strconv.ParseInt(s, 10, v.Type().Bits()); err == nil {
			v.SetInt(n)
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		var n uint64
		if n, err = strconv.ParseUint(s, 10, v.Type().Bits()); err == nil {
			v.SetUint(n)
		}
	case reflect.Float32, reflect.Float64:
		var x float64
		if x, err = strconv.ParseFloat(s, v.Type().Bits()); err == nil {
			v.SetFloat(x)
		}
	}
	if err != nil {
		return f.badRequest(err)
	}
	return nil
}

// read returns all of rd, failing when it holds more than the field limit.
func (f taggedField) read(rd io.Reader) ([]byte, error) {
	if f.limit > 0 {
		rd = io.LimitReader(rd, int64(f.limit)+1)
	}
	b, err := io.ReadAll(rd)
	if err != nil {
		return nil, f.badRequest(err)
	}
	if f.limit > 0 && len(b) > f.limit {
		return nil, f.tooLong()
	}
	return b, nil
}

func (f taggedField) setBody(v reflect.Value, r *http.Request) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	b, err := f.read(r.Body)
	if err != nil {
		return err
	}
	if v.Kind() == reflect.String {
		v.SetString(string(b))
	} else {
		v.SetBytes(b)
	}
	return nil
}

func (f taggedField) setFiles(v reflect.Value, r *http.Request) error {
	mr, err := r.MultipartReader()
	if err != nil {
		return newEndpointError(http.StatusUnsupportedMediaType, "multipart body expected", err)
	}
	var files []FormFile
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return f.badRequest(err)
		}
		if part.FormName() != f.name || part.FileName() == "" {
			continue
		}
		content, err := f.read(part)
		if err != nil {
			return err
		}
		files = append(files, FormFile{
			Name:        part.FileName(),
			ContentType: part.Header.Get("Content-Type"),
			Content:     content,
		})
	}
	if files != nil {
		v.Set(reflect.ValueOf(files))
	}
	return nil
}
