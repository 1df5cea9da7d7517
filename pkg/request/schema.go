package request

import (
	_ "embed"
	"strings"

	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaJSON []byte

// CheckSchema validates raw request JSON against the embedded request schema.
func CheckSchema(data []byte) (err error) {
	schemaLoader := gojsonschema.NewBytesLoader(schemaJSON)
	docLoader := gojsonschema.NewBytesLoader(data)

	var result *gojsonschema.Result
	result, err = gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		err = errors.Wrap(err, "failed to validate request JSON")
		return err
	}

	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		err = errors.Errorf("request does not match schema: %s", strings.Join(problems, "; "))
		return err
	}

	return err
}
