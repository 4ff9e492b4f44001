package movefcg

import "encoding/json"

// ResultJSON is the serialized form of a QueryResult. Consumers rely on
// calls[].file being "" for unresolved calls and on empty lists being [].
type ResultJSON struct {
	Contract   string          `json:"contract"`
	Function   string          `json:"function"`
	Source     string          `json:"source"`
	Location   LocationJSON    `json:"location"`
	Parameters []ParameterJSON `json:"parameter"`
	Calls      []CallJSON      `json:"calls"`
}

type LocationJSON struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

type ParameterJSON struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type CallJSON struct {
	File     string `json:"file"`
	Function string `json:"function"`
	Module   string `json:"module"`
}

// JSON converts r to its serialized shape.
func (r *QueryResult) JSON() ResultJSON {
	fn := r.Function
	out := ResultJSON{
		Contract: fn.Module.Name,
		Function: fn.Module.Name + "::" + fn.Name,
		Source:   fn.Span.Text,
		Location: LocationJSON{
			File:      fn.Span.File,
			StartLine: fn.Span.StartLine,
			EndLine:   fn.Span.EndLine,
		},
		Parameters: make([]ParameterJSON, 0, len(fn.Parameters)),
		Calls:      make([]CallJSON, 0, len(r.Calls)),
	}
	for _, p := range fn.Parameters {
		out.Parameters = append(out.Parameters, ParameterJSON{Name: p.Name, Type: p.Type})
	}
	for _, c := range r.Calls {
		out.Calls = append(out.Calls, CallJSON{File: c.File, Function: c.Function, Module: c.Module})
	}
	return out
}

// MarshalJSON encodes r in the ResultJSON shape.
func (r *QueryResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.JSON())
}
