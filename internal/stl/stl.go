// Package stl reads STL meshes into the indexed form the drawing
// pipeline consumes. Both ASCII and binary STL are supported; the
// format is detected from the file header. STL stores triangle soup,
// so vertices are welded on read to recover the shared edges that
// feature-edge extraction needs.
package stl

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/gobim/drafter"
)

// weldEps quantizes vertex positions for welding. STL files written by
// most exporters repeat shared vertices bit-exact, so a tight epsilon
// is enough and never merges distinct corners.
const weldEps = 1e-6

// Load reads an STL file and returns an indexed mesh. The solid name
// (ASCII) or header text (binary) is stored as the mesh IfcType so
// downstream hatching has something to key on.
func Load(filename string) (*drafter.Mesh, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open stl: %w", err)
	}
	defer file.Close()

	header := make([]byte, 5)
	n, err := file.Read(header)
	if err != nil {
		return nil, fmt.Errorf("read stl header: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek stl: %w", err)
	}

	if n >= 5 && string(header) == "solid" {
		// ASCII unless the body turns out to be binary; some binary
		// files start with "solid" in the comment header.
		m, err := readASCII(file)
		if err == nil && m.TriangleCount() > 0 {
			return m, nil
		}
		if _, serr := file.Seek(0, io.SeekStart); serr != nil {
			return nil, fmt.Errorf("seek stl: %w", serr)
		}
	}
	return readBinary(file)
}

// Read parses STL from a reader, detecting the format from the first
// bytes. Use Load for files; Read serves pipes and embedded data.
func Read(r io.Reader) (*drafter.Mesh, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read stl: %w", err)
	}
	if bytes.HasPrefix(data, []byte("solid")) {
		m, err := readASCII(bytes.NewReader(data))
		if err == nil && m.TriangleCount() > 0 {
			return m, nil
		}
	}
	return readBinary(bytes.NewReader(data))
}

type welder struct {
	mesh  *drafter.Mesh
	index map[[3]int64]uint32
}

func newWelder() *welder {
	return &welder{mesh: &drafter.Mesh{}, index: map[[3]int64]uint32{}}
}

func (w *welder) add(x, y, z float64) uint32 {
	key := [3]int64{
		int64(x / weldEps),
		int64(y / weldEps),
		int64(z / weldEps),
	}
	if id, ok := w.index[key]; ok {
		return id
	}
	id := uint32(len(w.mesh.Positions) / 3)
	w.mesh.Positions = append(w.mesh.Positions, float32(x), float32(y), float32(z))
	w.index[key] = id
	return id
}

func (w *welder) addTriangle(v [3][3]float64) {
	a := w.add(v[0][0], v[0][1], v[0][2])
	b := w.add(v[1][0], v[1][1], v[1][2])
	c := w.add(v[2][0], v[2][1], v[2][2])
	// Degenerate facets collapse under welding; drop them.
	if a == b || b == c || a == c {
		return
	}
	w.mesh.Indices = append(w.mesh.Indices, a, b, c)
}

func readASCII(r io.Reader) (*drafter.Mesh, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	w := newWelder()
	var verts [][3]float64

	for scanner.Scan() {
		fields := strings.Fields(strings.TrimSpace(scanner.Text()))
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "solid":
			if len(fields) > 1 && w.mesh.IfcType == "" {
				w.mesh.IfcType = strings.Join(fields[1:], " ")
			}
		case "vertex":
			if len(fields) < 4 {
				return nil, fmt.Errorf("malformed vertex line: %q", strings.Join(fields, " "))
			}
			x, err1 := strconv.ParseFloat(fields[1], 64)
			y, err2 := strconv.ParseFloat(fields[2], 64)
			z, err3 := strconv.ParseFloat(fields[3], 64)
			if err1 != nil || err2 != nil || err3 != nil {
				return nil, fmt.Errorf("malformed vertex line: %q", strings.Join(fields, " "))
			}
			verts = append(verts, [3]float64{x, y, z})
		case "endfacet":
			if len(verts) == 3 {
				w.addTriangle([3][3]float64{verts[0], verts[1], verts[2]})
			}
			verts = verts[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ascii stl: %w", err)
	}
	return w.mesh, nil
}

func readBinary(r io.Reader) (*drafter.Mesh, error) {
	header := make([]byte, 80)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("read binary stl header: %w", err)
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("read triangle count: %w", err)
	}

	w := newWelder()
	if name := string(bytes.TrimRight(header, "\x00 ")); name != "" {
		w.mesh.IfcType = name
	}

	// 50 bytes per facet: normal, three vertices, attribute count.
	buf := make([]byte, 50)
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("read facet %d: %w", i, err)
		}
		var v [3][3]float64
		for j := 0; j < 3; j++ {
			o := 12 + j*12
			for k := 0; k < 3; k++ {
				bits := binary.LittleEndian.Uint32(buf[o+k*4:])
				v[j][k] = float64(math.Float32frombits(bits))
			}
		}
		w.addTriangle(v)
	}
	return w.mesh, nil
}
