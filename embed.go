package readdash

import "embed"

// EmbeddedAssets contains static assets shipped with the server:
// poll.js, readdash.css
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
