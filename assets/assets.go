package assets

import "embed"

// Assets holds the map page and its client script.
//
//go:embed static
var Assets embed.FS
