package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/janelia-flyem/neuprep/neuprep"
	"github.com/janelia-flyem/neuprep/skeleton"
)

const requestSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["kind"],
	"properties": {
		"kind": {"enum": ["ids", "coordinates", "neurons"]},
		"mirror": {"type": "boolean"}
	},
	"oneOf": [
		{
			"properties": {
				"kind": {"const": "ids"},
				"ids": {
					"type": "array", "minItems": 1,
					"items": {"type": ["string", "integer"]}
				}
			},
			"required": ["ids"],
			"not": {"anyOf": [{"required": ["points"]}, {"required": ["neurons"]}]}
		},
		{
			"properties": {
				"kind": {"const": "coordinates"},
				"template": {"type": "string", "minLength": 1},
				"points": {
					"type": "array", "minItems": 1,
					"items": {"type": "array", "items": {"type": "number"}, "minItems": 3, "maxItems": 3}
				}
			},
			"required": ["points", "template"],
			"not": {"anyOf": [{"required": ["ids"]}, {"required": ["neurons"]}]}
		},
		{
			"properties": {
				"kind": {"const": "neurons"},
				"neurons": {
					"type": "array", "minItems": 1,
					"items": {
						"type": "object",
						"required": ["id", "swc"],
						"properties": {
							"id": {"type": ["string", "integer"]},
							"template": {"type": "string"},
							"swc": {"type": "string"}
						}
					}
				}
			},
			"required": ["neurons"],
			"not": {"anyOf": [{"required": ["ids"]}, {"required": ["points"]}]}
		}
	]
}`

var compiledSchema = jsonschema.MustCompileString("request.schema.json", requestSchema)

// flexID accepts identifiers written as JSON strings or integers without
// losing precision on 64-bit ids.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

type jsonNeuron struct {
	ID       flexID `json:"id"`
	Template string `json:"template"`
	SWC      string `json:"swc"`
}

type jsonRequest struct {
	Kind     string       `json:"kind"`
	IDs      []flexID     `json:"ids"`
	Template string       `json:"template"`
	Points   [][3]float64 `json:"points"`
	Neurons  []jsonNeuron `json:"neurons"`
	Mirror   *bool        `json:"mirror"`
}

// Decode parses a JSON request after validating it against the request schema.
// Identifiers may be given as JSON strings or integers.
func Decode(data []byte) (Request, error) {
	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return Request{}, fmt.Errorf("request is not valid JSON: %v", err)
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return Request{}, fmt.Errorf("request does not match schema: %v", err)
	}

	var jr jsonRequest
	dec = json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&jr); err != nil {
		return Request{}, err
	}
	kind, err := ParseKind(jr.Kind)
	if err != nil {
		return Request{}, err
	}
	r := Request{Kind: kind, Mirror: jr.Mirror}
	switch kind {
	case ShapeIdentifierList:
		for _, id := range jr.IDs {
			r.IDs = append(r.IDs, neuprep.Identifier(id))
		}
	case CoordinateList:
		r.Template = jr.Template
		for _, p := range jr.Points {
			r.Points = append(r.Points, neuprep.Vector3d(p))
		}
	case NeuronCollection:
		r.Neurons = make(skeleton.Collection, len(jr.Neurons))
		for _, n := range jr.Neurons {
			s, err := skeleton.ReadSWC(strings.NewReader(n.SWC))
			if err != nil {
				return Request{}, fmt.Errorf("neuron %s: %v", n.ID, err)
			}
			s.ID = neuprep.Identifier(n.ID)
			if n.Template != "" {
				s.Template = n.Template
			}
			r.Neurons[s.ID] = s
		}
	}
	if err := r.Validate(); err != nil {
		return Request{}, err
	}
	return r, nil
}
