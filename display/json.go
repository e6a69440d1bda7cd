// Package display formats command output for people or for scripts.
package display

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/rfbridge/errors"
)

// OutputEnv forces JSON output when set to "json".
const OutputEnv = "RFBRIDGE_OUTPUT"

// ShouldOutputJSON reports whether cmd should print JSON: an explicit --json
// flag wins, otherwise RFBRIDGE_OUTPUT decides.
func ShouldOutputJSON(cmd *cobra.Command) bool {
	if cmd != nil {
		if f := cmd.Flags().Lookup("json"); f != nil && f.Changed {
			on, _ := cmd.Flags().GetBool("json")
			return on
		}
	}
	return os.Getenv(OutputEnv) == "json"
}

// OutputJSON writes v as indented JSON followed by a newline.
func OutputJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal JSON")
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
