package tilemap

import (
	"fmt"
	"sync"
)

// DecodeOptions configures DecodeWithOptions.
type DecodeOptions struct {
	// Workers is the number of goroutines used to decode bands of rows.
	// Values below 2 decode on the calling goroutine. Output is identical
	// either way as every tile is a pure function of the source bytes.
	Workers int
}

// window slices the resource out of the surrounding buffer. An offset or
// size that makes no sense yields an empty window which then fails header
// validation.
func window(data []byte, offset, size int) []byte {
	if offset < 0 || size < 0 || offset > len(data) {
		return nil
	}
	end := len(data)
	if size < len(data)-offset {
		end = offset + size
	}
	return data[offset:end]
}

func readHeader(res []byte) (Header, error) {
	if len(res) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d of %d bytes", ErrInvalidHeader, len(res), HeaderSize)
	}

	h := Header{
		ChunkWidth:    int(res[0]),
		ChunkHeight:   int(res[1]),
		Reserved:      int(res[2]),
		TilesPerChunk: int(res[3]),
		MapWidth:      int(res[4]),
		MapHeight:     int(res[5]),
		Doublets:      int(res[6]),
	}

	if h.ChunkWidth == 0 || h.ChunkHeight == 0 {
		return Header{}, fmt.Errorf("%w: zero chunk dimensions", ErrInvalidHeader)
	}

	return h, nil
}

type decoder struct {
	res []byte
	hdr Header

	vis [][]byte
	col [][]byte
}

// byteAt is the single bounds check for all resource reads; every read
// that misses the window degrades to zero through here.
func (d *decoder) byteAt(addr int) (byte, bool) {
	if addr < 0 || addr >= len(d.res) {
		return 0, false
	}
	return d.res[addr], true
}

// chunkIDAt reads the index grid cell for a chunk coordinate. The grid
// base is doublets*2 bytes past the header, a structural constant of the
// format independent of the number of stored chunks.
func (d *decoder) chunkIDAt(chunkX, chunkY int, s *Stats) byte {
	id, ok := d.byteAt(HeaderSize + d.hdr.Doublets*2 + chunkX + chunkY*d.hdr.MapWidth)
	if !ok {
		s.DefaultedIndex++
	}
	return id
}

// resolveTile reads the visual and collision values for one local
// coordinate of a chunk. The stored stride addresses the chunk while
// ChunkWidth decomposes the local coordinate. The collision value is a
// chunk-level scalar at a fixed displacement from the chunk base, not a
// per-tile array.
func (d *decoder) resolveTile(id byte, localX, localY int, s *Stats) (visual, collision byte) {
	base := HeaderSize + int(id)*d.hdr.TilesPerChunk

	visual, ok := d.byteAt(base + localX + localY*d.hdr.ChunkWidth)
	if !ok {
		s.DefaultedVisual++
	}

	if d.hdr.Doublets > 0 {
		if collision, ok = d.byteAt(base + d.hdr.Doublets); !ok {
			s.DefaultedCollision++
		}
	}

	return visual, collision
}

func (d *decoder) decodeRows(y0, y1 int) Stats {
	var s Stats

	w := d.hdr.Width()
	cw, ch := d.hdr.ChunkWidth, d.hdr.ChunkHeight

	for y := y0; y < y1; y++ {
		for x := 0; x < w; x++ {
			id := d.chunkIDAt(x/cw, y/ch, &s)
			d.vis[y][x], d.col[y][x] = d.resolveTile(id, x%cw, y%ch, &s)
		}
	}

	return s
}

func (d *decoder) decode(workers int) *Map {
	w, h := d.hdr.Width(), d.hdr.Height()

	d.vis = make([][]byte, h)
	d.col = make([][]byte, h)
	for y := 0; y < h; y++ {
		d.vis[y] = make([]byte, w)
		d.col[y] = make([]byte, w)
	}

	m := &Map{
		Header:    d.hdr,
		Width:     w,
		Height:    h,
		Visual:    d.vis,
		Collision: d.col,
	}
	m.Stats.StrideMismatch = d.hdr.TilesPerChunk != d.hdr.ChunkWidth*d.hdr.ChunkHeight

	if w == 0 || h == 0 {
		return m
	}

	if workers < 2 {
		m.Stats.add(d.decodeRows(0, h))
		return m
	}

	if workers > h {
		workers = h
	}

	// Rows are written disjointly so bands only need their stats merging
	// once every worker is done.
	stats := make([]Stats, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			stats[i] = d.decodeRows(i*h/workers, (i+1)*h/workers)
		}(i)
	}
	wg.Wait()

	for _, s := range stats {
		m.Stats.add(s)
	}

	return m
}

// DecodeHeader reads and validates the header of the map resource
// occupying data[offset:offset+size] without decoding any tiles.
func DecodeHeader(data []byte, offset, size int) (Header, error) {
	return readHeader(window(data, offset, size))
}

// Decode expands the map resource occupying data[offset:offset+size] into
// its visual and collision matrices. The resource window is never read
// outside of; reads addressed past its end default to zero and are counted
// in the returned Stats.
func Decode(data []byte, offset, size int) (*Map, error) {
	return DecodeWithOptions(data, offset, size, nil)
}

// DecodeWithOptions is Decode with explicit options. A nil options value
// behaves exactly like Decode.
func DecodeWithOptions(data []byte, offset, size int, o *DecodeOptions) (*Map, error) {
	res := window(data, offset, size)

	hdr, err := readHeader(res)
	if err != nil {
		return nil, err
	}

	workers := 0
	if o != nil {
		workers = o.Workers
	}

	d := decoder{res: res, hdr: hdr}

	return d.decode(workers), nil
}
