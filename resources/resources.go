package resources

import "embed"

//go:embed i18n migrations
var FS embed.FS
