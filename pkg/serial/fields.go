package serial

import "strings"

// Field is one named value in declared order. Present is false for an
// optional field that was absent from the wire.
type Field struct {
	Name    string
	Value   any
	Present bool

	// Token is the name as spelled in the stream when that differs from
	// Name. Encoders write it back in place of Name.
	Token string
}

// Fields is an ordered name to value mapping. Struct values decode to Fields
// as well.
type Fields []Field

// Lookup finds a field by case-insensitive name.
func (fs Fields) Lookup(name string) (Field, bool) {
	for _, f := range fs {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return Field{}, false
}

// Get returns the value of a present field, or nil.
func (fs Fields) Get(name string) any {
	f, ok := fs.Lookup(name)
	if !ok || !f.Present {
		return nil
	}
	return f.Value
}

// Set stores v under name, replacing an existing field in place or appending.
func (fs *Fields) Set(name string, v any) {
	for i := range *fs {
		if strings.EqualFold((*fs)[i].Name, name) {
			(*fs)[i].Value = v
			(*fs)[i].Present = true
			return
		}
	}
	*fs = append(*fs, Field{Name: name, Value: v, Present: true})
}

// Unset marks name as absent and forgets its stream spelling.
func (fs Fields) Unset(name string) {
	for i := range fs {
		if strings.EqualFold(fs[i].Name, name) {
			fs[i].Value = nil
			fs[i].Present = false
			fs[i].Token = ""
			return
		}
	}
}

func (fs Fields) Names() []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Name
	}
	return out
}
