package log

import (
	hclog "github.com/hashicorp/go-hclog"
)

// SetLevel parses a level name such as "debug" or "trace". Unknown names
// leave the level alone and report false.
func SetLevel(name string) bool {
	lvl := hclog.LevelFromString(name)
	if lvl == hclog.NoLevel {
		return false
	}

	L.SetLevel(lvl)
	return true
}
