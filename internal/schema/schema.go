// Package schema holds the JSON contracts the generation backend must honour and
// validates backend output against them.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/mohammad-safakhou/aisearch/internal/helpers"
	"github.com/mohammad-safakhou/aisearch/models"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	QuerySet = "query_set"
	Answer   = "answer"
)

//go:embed query_set.json answer.json
var files embed.FS

var (
	compileOnce sync.Once
	compiled    map[string]*jsonschema.Schema
	compileErr  error
)

func compileAll() {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiled = make(map[string]*jsonschema.Schema, 2)
	for _, name := range []string{QuerySet, Answer} {
		raw, err := files.ReadFile(name + ".json")
		if err != nil {
			compileErr = fmt.Errorf("read %s schema: %w", name, err)
			return
		}
		if err := compiler.AddResource(name+".json", strings.NewReader(string(raw))); err != nil {
			compileErr = fmt.Errorf("add %s schema resource: %w", name, err)
			return
		}
		s, err := compiler.Compile(name + ".json")
		if err != nil {
			compileErr = fmt.Errorf("compile %s schema: %w", name, err)
			return
		}
		compiled[name] = s
	}
}

func lookup(name string) (*jsonschema.Schema, error) {
	compileOnce.Do(compileAll)
	if compileErr != nil {
		return nil, compileErr
	}
	s, ok := compiled[name]
	if !ok {
		return nil, fmt.Errorf("unknown schema %q", name)
	}
	return s, nil
}

// Raw returns the schema document sent to the backend alongside a request.
func Raw(name string) (json.RawMessage, error) {
	raw, err := files.ReadFile(name + ".json")
	if err != nil {
		return nil, fmt.Errorf("unknown schema %q", name)
	}
	return json.RawMessage(raw), nil
}

// Validate checks data against the named schema. Any mismatch, including data
// that is not JSON at all, is a *models.SchemaViolationError.
func Validate(name string, data []byte) error {
	s, err := lookup(name)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return &models.SchemaViolationError{Schema: name, Problems: []string{"not valid JSON: " + err.Error()}}
	}
	if err := s.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return &models.SchemaViolationError{Schema: name, Problems: problems(ve)}
		}
		return &models.SchemaViolationError{Schema: name, Problems: []string{err.Error()}}
	}
	return nil
}

// Decode validates a backend reply and unmarshals it into out. After
// helpers.UnwrapReply the reply must be exactly one JSON value; leading prose,
// trailing text or a second value is a violation.
func Decode(name string, reply []byte, out any) error {
	body, err := single([]byte(helpers.UnwrapReply(string(reply))))
	if err != nil {
		return &models.SchemaViolationError{Schema: name, Problems: []string{err.Error()}}
	}
	if err := Validate(name, body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &models.SchemaViolationError{Schema: name, Problems: []string{err.Error()}}
	}
	return nil
}

// single returns data when it holds exactly one JSON value.
func single(data []byte) (json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var v json.RawMessage
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("reply is not JSON: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("reply has content after the JSON value")
	}
	return v, nil
}

func problems(ve *jsonschema.ValidationError) []string {
	var out []string
	for _, e := range ve.BasicOutput().Errors {
		if e.Error == "" || strings.HasPrefix(e.Error, "doesn't validate with") {
			continue
		}
		loc := e.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		out = append(out, loc+": "+e.Error)
	}
	if len(out) == 0 {
		out = append(out, ve.Message)
	}
	return out
}
