package assembler

import (
	"io"

	"github.com/pkg/errors"
)

const memoryPageSize = 4096

type memoryPage struct {
	initialized [memoryPageSize]bool
	block       [memoryPageSize]byte
}

// MemoryTarget is a sparse in-memory output image. Bytes never written
// read back as zero.
type MemoryTarget struct {
	pages  map[int64]*memoryPage
	cursor int64
	size   int64
}

func NewMemoryTarget() *MemoryTarget {
	return &MemoryTarget{pages: map[int64]*memoryPage{}}
}

func (m *MemoryTarget) page(address int64, allocate bool) *memoryPage {
	p, ok := m.pages[address/memoryPageSize]
	if !ok && allocate {
		p = &memoryPage{}
		m.pages[address/memoryPageSize] = p
	}
	return p
}

func (m *MemoryTarget) Write(data []byte) (int, error) {
	for _, b := range data {
		p := m.page(m.cursor, true)
		offset := m.cursor % memoryPageSize
		p.block[offset] = b
		p.initialized[offset] = true
		m.cursor++
		if m.cursor > m.size {
			m.size = m.cursor
		}
	}
	return len(data), nil
}

func (m *MemoryTarget) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset += m.cursor
	case io.SeekEnd:
		offset += m.size
	default:
		return m.cursor, errors.New("invalid whence")
	}
	if offset < 0 {
		return m.cursor, errors.New("negative position")
	}
	m.cursor = offset
	return offset, nil
}

func (m *MemoryTarget) ReadAt(data []byte, offset int64) (int, error) {
	if offset < 0 {
		return 0, errors.New("negative offset")
	}
	for n := range data {
		address := offset + int64(n)
		if address >= m.size {
			return n, io.EOF
		}
		if p := m.page(address, false); p != nil {
			data[n] = p.block[address%memoryPageSize]
		} else {
			data[n] = 0
		}
	}
	return len(data), nil
}

func (m *MemoryTarget) Close() error {
	return nil
}

// Initialized reports whether address has been written.
func (m *MemoryTarget) Initialized(address int64) bool {
	p := m.page(address, false)
	return p != nil && p.initialized[address%memoryPageSize]
}

// Size is one past the highest address written.
func (m *MemoryTarget) Size() int64 {
	return m.size
}

// Bytes returns the image from address zero to Size.
func (m *MemoryTarget) Bytes() []byte {
	data := make([]byte, m.size)
	_, _ = m.ReadAt(data, 0)
	return data
}
