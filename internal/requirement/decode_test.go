package requirement

import (
	"reflect"
	"testing"

	"github.com/strogmv/forge/internal/planner"
)

const jsonReq = `{
	"name": "crm",
	"forms": [
		{"name": "Lead", "fields": [{"name": "email", "type": "string", "required": true}]}
	],
	"processes": [{"name": "Approval", "steps": ["submit", "review"]}]
}`

const cueReq = `
name: "crm"
forms: [
	{name: "Lead", fields: [{name: "email", type: "string", required: true}]},
]
processes: [{name: "Approval", steps: ["submit", "review"]}]
`

func TestJSONAndCUEDecodeIdentically(t *testing.T) {
	fromJSON, err := DecodeJSON([]byte(jsonReq))
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	fromCUE, err := DecodeCUE([]byte(cueReq))
	if err != nil {
		t.Fatalf("cue: %v", err)
	}
	if !reflect.DeepEqual(fromJSON, fromCUE) {
		t.Fatalf("decoded requirements differ:\n json: %+v\n cue:  %+v", fromJSON, fromCUE)
	}

	planA := planner.Build(fromJSON)
	planB := planner.Build(fromCUE)
	if !reflect.DeepEqual(planA, planB) {
		t.Fatal("plans differ between encodings")
	}
}

func TestDecodeCUERejectsInvalidSource(t *testing.T) {
	if _, err := DecodeCUE([]byte(`name: string & int`)); err == nil {
		t.Fatal("expected compile error")
	}
}

func TestDecodeJSONRejectsGarbage(t *testing.T) {
	if _, err := DecodeJSON([]byte(`{not json`)); err == nil {
		t.Fatal("expected decode error")
	}
}
