package cache

// ScopedKeyer prefixes every key of an inner [Keyer], so several corpora can
// share one backend:
//
//	core := NewScopedKeyer(nil, "rubystubs34:")
//	gems := NewScopedKeyer(nil, "gems:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner, or the default keyer when inner is nil.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) ParseKey(opts ParseKeyOpts) string {
	return k.prefix + k.inner.ParseKey(opts)
}

func (k *ScopedKeyer) ArtifactKey(sourceHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(sourceHash, opts)
}
