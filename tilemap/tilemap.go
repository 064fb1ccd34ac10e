/*
Package tilemap implements a decoder for the chunked map resources found in
Rayman 3 game data.

A map resource is a 7 byte header followed by a packed run of reusable tile
chunks and a chunk index grid. Each chunk is a block of chunkWidth by
chunkHeight one-byte visual tile identifiers, stored once and referenced
from any number of grid cells; the grid holds one chunk identifier per
chunk-sized region of the map. A chunk may also carry a single trailing
collision value read doublets bytes past the chunk base, where a doublets
of zero means the resource has no collision layer. The index grid begins
doublets*2 bytes past the header regardless of how many chunks are stored,
an oddity of the format that is reproduced here as-is.

Decoding expands the resource into two dense matrices of tile identifiers,
mapWidth*chunkWidth wide and mapHeight*chunkHeight tall. Reads that land
outside the resource window default to zero rather than failing, matching
the engine's tolerance of truncated map data; every such read is counted
in Stats so corruption stays observable.
*/
package tilemap

import "errors"

// HeaderSize is the fixed size of a map resource header in bytes.
const HeaderSize = 7

// ErrInvalidHeader is returned when a resource window holds fewer than
// HeaderSize bytes or the header declares a zero chunk dimension.
var ErrInvalidHeader = errors.New("tilemap: invalid header")

// Header holds the seven fields of a map resource header, one byte each in
// stored order.
type Header struct {
	ChunkWidth    int // tiles per chunk row
	ChunkHeight   int // tiles per chunk column
	Reserved      int // carried but not interpreted
	TilesPerChunk int // stored chunk stride, normally ChunkWidth*ChunkHeight
	MapWidth      int // map width in chunks
	MapHeight     int // map height in chunks
	Doublets      int // collision region size in bytes, 0 disables collision
}

// Width returns the map width in tiles.
func (h Header) Width() int {
	return h.MapWidth * h.ChunkWidth
}

// Height returns the map height in tiles.
func (h Header) Height() int {
	return h.MapHeight * h.ChunkHeight
}

// Stats records reads that fell outside the resource window and were
// defaulted to zero, broken down by what was being read at the time.
type Stats struct {
	DefaultedIndex     int
	DefaultedVisual    int
	DefaultedCollision int

	// StrideMismatch is set when the stored TilesPerChunk disagrees with
	// ChunkWidth*ChunkHeight. The stored value still wins for chunk
	// addressing.
	StrideMismatch bool
}

// Defaulted returns the total number of defaulted reads.
func (s Stats) Defaulted() int {
	return s.DefaultedIndex + s.DefaultedVisual + s.DefaultedCollision
}

func (s *Stats) add(t Stats) {
	s.DefaultedIndex += t.DefaultedIndex
	s.DefaultedVisual += t.DefaultedVisual
	s.DefaultedCollision += t.DefaultedCollision
}

// Map is a fully decoded map resource. Visual and Collision always hold
// Height rows of Width tile identifiers each; a resource without a
// collision layer decodes to an all-zero Collision matrix.
type Map struct {
	Header Header

	// Width and Height are the map dimensions in tiles.
	Width  int
	Height int

	Visual    [][]byte
	Collision [][]byte

	Stats Stats
}
