//go:build !go1.22

package inspect

import "go/types"

// go/types before 1.22 has no Alias nodes, so there is nothing to unwrap.
func unalias(t types.Type) types.Type { return t }
