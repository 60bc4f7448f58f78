// Package assets provides the base print stylesheet for planning views.
//
// # Loader Architecture
//
//	StyleLoader (interface)
//	    │
//	    ├── EmbeddedLoader    - loads from go:embed filesystem (built-in print.css)
//	    ├── FilesystemLoader  - loads from a custom directory on disk
//	    └── AssetResolver     - combines both with custom-first fallback
//
// AssetResolver lets operators override the built-in print rules by placing
// {basePath}/styles/print.css next to their deployment.
//
// EnsureBaseStylesheet installs the resolved style at
// {webRoot}/planner/css/print.css, the file overlays are generated from,
// unless one is already there.
//
// # Security
//
// Style names are validated to prevent path traversal attacks.
// FilesystemLoader resolves symlinks and verifies paths stay within basePath.
package assets
