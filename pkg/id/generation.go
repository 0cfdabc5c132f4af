package id

// Generation is a monotonic token minted whenever a ServerPeekCursor's
// underlying endpoint changes (e.g. on cluster membership shift). The cursor
// exposes its current Generation for diagnostics; peek requests and replies
// do not carry it.
type Generation ID

// GenerationSource mints increasing Generation values. It wraps a
// Generator rather than re-implementing clock/sequence handling.
type GenerationSource struct {
	gen *Generator
}

// NewGenerationSource returns a GenerationSource backed by a fresh Generator.
func NewGenerationSource() *GenerationSource {
	return &GenerationSource{gen: NewGenerator()}
}

// Next mints the next Generation.
func (s *GenerationSource) Next() Generation { return Generation(s.gen.Next()) }

// Compare orders two Generations the same way ID.Compare does.
func (g Generation) Compare(other Generation) int { return ID(g).Compare(ID(other)) }
