package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/grailbio/base/errors"
	"gopkg.in/yaml.v3"
)

// Print writes every top-level key of c followed by its value, for
// diagnostics:
//
//   > refs
//   grch38: genomes/grch38.fa
func Print(w io.Writer, c *Config) error {
	if c == nil {
		return errors.E(errors.Invalid, "config.Print: nil config")
	}
	for _, key := range c.keys() {
		data, err := yaml.Marshal(c.value(key))
		if err != nil {
			return errors.E(err, "config.Print:", key)
		}
		if _, err := fmt.Fprintf(w, "\n> %s\n%s\n", key, strings.TrimRight(string(data), "\n")); err != nil {
			return err
		}
	}
	return nil
}
