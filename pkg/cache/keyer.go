package cache

// Keyer builds cache keys.
type Keyer interface {
	// ParseKey identifies the parse result of one file.
	ParseKey(opts ParseKeyOpts) string
	// ArtifactKey identifies a rendering of a source document, such as an
	// SVG rendered from DOT.
	ArtifactKey(sourceHash string, opts ArtifactKeyOpts) string
}

// ParseKeyOpts are the inputs that determine a parse result.
type ParseKeyOpts struct {
	Parser  string `json:"parser"`
	Version string `json:"version"`
	Path    string `json:"path"`
	Hash    string `json:"hash"`
}

// ArtifactKeyOpts are the inputs that determine a rendered artifact.
type ArtifactKeyOpts struct {
	Format   string `json:"format"`
	Detailed bool   `json:"detailed,omitempty"`
}

// DefaultKeyer hashes key inputs under a fixed prefix per kind.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ParseKey returns "parse:" followed by a hash of opts.
func (DefaultKeyer) ParseKey(opts ParseKeyOpts) string {
	return hashKey("parse", opts)
}

// ArtifactKey returns "artifact:" followed by a hash of the source and opts.
func (DefaultKeyer) ArtifactKey(sourceHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", sourceHash, opts)
}
