package loader

import "fmt"

var errNoGenericEdge = fmt.Errorf("derived_relationships declared but no relationship spec carries the discriminator property")

func errUnknownEntry(item string) error {
	return fmt.Errorf("unrecognized load_order entry %q", item)
}
