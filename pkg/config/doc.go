// Package config loads the CLI's configuration file: which service is
// being mocked or intercepted, where its spec and fixtures live, and the
// transport, recorder, and logging settings. YAML and JSON are both
// accepted, detected by file extension.
package config
