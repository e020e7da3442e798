package query

// Param is one synthesized placeholder and the value it binds. Names carry
// no leading "@"; the SQL text spells placeholders as "@name".
type Param struct {
	Name  string
	Value any
}

// Params is an ordered parameter list. Order matches the left-to-right
// placeholder synthesis order of the SQL fragment that produced it.
type Params []Param

// Map returns the parameters as a lookup map. The ordered form remains the
// authoritative representation.
func (ps Params) Map() map[string]any {
	m := make(map[string]any, len(ps))
	for _, p := range ps {
		m[p.Name] = p.Value
	}
	return m
}

// With appends a named parameter and returns the extended list.
func (ps Params) With(name string, value any) Params {
	return append(ps, Param{Name: name, Value: value})
}
