// Package cli provides the shared pieces of the chronal command line:
// configuration loading, output formatting and terminal rendering of beat
// markers.
//
// Configuration lives in a single YAML file:
//
//	$CHRONAL_CONFIG_DIR/config.yaml
//	os.UserConfigDir()/chronal/config.yaml   (when the variable is unset)
//
// A missing file yields the defaults. Flags given to a command override the
// file for that invocation only.
package cli
