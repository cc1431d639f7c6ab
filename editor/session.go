package editor

import (
	"sync"

	"github.com/meikuraledutech/dialog"
	"github.com/meikuraledutech/dialog/compilelog"
	"github.com/meikuraledutech/dialog/compiler"
	"github.com/meikuraledutech/dialog/script"
)

// Session is the editing state of one graph. Its mutex serializes compile
// passes and mutations of the graph.
type Session struct {
	GraphID string

	mu       sync.Mutex
	compiler *compiler.Compiler
	listing  *compilelog.Listing
}

func newSession(graphID, path string, scripts *script.Compiler) *Session {
	return &Session{
		GraphID:  graphID,
		compiler: compiler.New(compiler.NewAsset(graphID, path), compiler.WithScripts(scripts)),
		listing:  compilelog.NewListing(),
	}
}

// Asset returns the compiled asset of the graph.
func (s *Session) Asset() *compiler.Asset { return s.compiler.Asset() }

// Listing returns the compile results listing.
func (s *Session) Listing() *compilelog.Listing { return s.listing }

// Cached reports whether the node has a compiled entry.
func (s *Session) Cached(nodeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.compiler.Cache().Get(nodeID)
	return ok
}

func (s *Session) invalidate(idx *dialog.Index, ids ...string) {
	for _, id := range ids {
		s.compiler.Cache().Invalidate(id, idx.ChildIDs)
	}
}
