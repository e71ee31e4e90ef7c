// Package rt is the guest program entry. It runs guest code against the
// process environment and ends the run with Finalize and HALT.
package rt

import (
	zkerrors "github.com/reglet-dev/zkguest/errors"
	"github.com/reglet-dev/zkguest/env"
)

// Run executes main against the process environment, which must already be
// initialized. Unless main finalized the run itself, the Finalization Result
// is written to the layout's RESULT region. A fault anywhere in the run is
// returned as an error and no HALT is signaled.
func Run(main func()) (err error) {
	defer zkerrors.Recover(&err)

	e := env.Get()
	main()
	if !e.Finalized() {
		e.Finalize(e.Layout().Result.Start)
	}
	e.Halt()
	return nil
}
