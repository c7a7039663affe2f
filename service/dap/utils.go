package dap

import (
	"encoding/json"
	"fmt"
)

// min returns the lowest-valued integer
// between the two passed into it.
func min(i, j int) int {
	if i < j {
		return i
	}
	return j
}

// unmarshalArguments decodes request arguments into the struct type
// object, reformatting type errors so the offending attribute is named
// in the response.
func unmarshalArguments(input json.RawMessage, output interface{}) error {
	if len(input) == 0 {
		return nil
	}
	if err := json.Unmarshal(input, output); err != nil {
		if uerr, ok := err.(*json.UnmarshalTypeError); ok {
			// Format json.UnmarshalTypeError error string in our own way. E.g.,
			//   "json: cannot unmarshal number into Go struct field AttachConfig.program of type string"
			//   => "cannot unmarshal number into 'program' of type string"
			return fmt.Errorf("cannot unmarshal %v into %q of type %v", uerr.Value, uerr.Field, uerr.Type.String())
		}
		return err
	}
	return nil
}
