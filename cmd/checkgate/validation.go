package main

import (
	"fmt"
	"strings"
)

// flagSet represents a flag that is either set (true) or not set (false).
type flagSet struct {
	name  string
	isSet bool
}

func flagNames(flags []flagSet) string {
	names := make([]string, len(flags))
	for i, f := range flags {
		names[i] = f.name
	}
	return strings.Join(names, ", ")
}

// requireAtMostOne returns an error if more than one of the given flags is set.
func requireAtMostOne(flags ...flagSet) error {
	count := 0
	for _, f := range flags {
		if f.isSet {
			count++
		}
	}
	if count > 1 {
		return fmt.Errorf("only one of %s can be specified", flagNames(flags))
	}
	return nil
}

// requireAllOrNone returns an error if some but not all of the given flags are set.
func requireAllOrNone(flags ...flagSet) error {
	count := 0
	for _, f := range flags {
		if f.isSet {
			count++
		}
	}
	if count != 0 && count != len(flags) {
		return fmt.Errorf("%s must be given together", flagNames(flags))
	}
	return nil
}
