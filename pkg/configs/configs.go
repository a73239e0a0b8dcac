// Package configs provides the embedded default configuration file.
package configs

import _ "embed"

// DefaultConfigBytes is the default configuration template
// printed by the `yggdrasil config` command.
//
//go:embed config.yml
var DefaultConfigBytes []byte
