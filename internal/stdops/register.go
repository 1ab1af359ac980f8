package stdops

import "github.com/tberndt/weft/internal/exec"

// RegisterAll installs the full built-in operation set.
func RegisterAll(r *exec.Registry) {
	registerMath(r)
	registerStrings(r)
	registerJSON(r)
	registerFile(r)
	registerHTTP(r)
	registerTools(r)
	registerCombinators(r)
}
