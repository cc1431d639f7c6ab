package compiler

import (
	"sync/atomic"

	"github.com/meikuraledutech/dialog/runtime"
)

// Asset is a compiled dialog asset. It owns the live runtime tree; readers
// get an immutable snapshot.
type Asset struct {
	ID   string
	Path string

	tree atomic.Pointer[runtime.Tree]
}

// NewAsset returns an asset with no compiled tree.
func NewAsset(id, path string) *Asset {
	return &Asset{ID: id, Path: path}
}

// Tree returns the installed tree, or nil if nothing was compiled yet.
func (a *Asset) Tree() *runtime.Tree {
	return a.tree.Load()
}

// Install replaces the live tree and returns the previous one.
func (a *Asset) Install(t *runtime.Tree) *runtime.Tree {
	return a.tree.Swap(t)
}
