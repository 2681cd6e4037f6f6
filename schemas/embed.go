// Package schemas embeds the JSON Schemas describing file-store output.
package schemas

import _ "embed"

// Page validates pages.json.
//
//go:embed page.schema.json
var Page string

// Chunk validates chunks.json.
//
//go:embed chunk.schema.json
var Chunk string

// Site validates sites.json.
//
//go:embed site.schema.json
var Site string

// FailedURL validates failed_urls.json.
//
//go:embed failed_url.schema.json
var FailedURL string
