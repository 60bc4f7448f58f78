// Package artifact allocates capture destinations and publishes finished
// captures.
//
// Every artifact gets a UUID name under <root>/print, so concurrent captures
// never share a path. LocalStore serves artifacts straight from the web
// root; S3Store uploads them to any S3-compatible bucket and hands out a
// presigned download URL.
package artifact
