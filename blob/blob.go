// Package blob implements the BlobProvider described in frogfs's design:
// it yields a contiguous, read-only byte region to the rest of the system,
// either over already-resident memory (FromBytes) or by memory-mapping a
// file the way a platform's flash driver would map a partition (FromFile).
// There is no provider that reads a file into memory.
package blob

import (
	"os"

	mmap "github.com/edsrzf/mmap-go"
	"golang.org/x/xerrors"
)

// Provider yields a contiguous read-only byte range. Implementations are
// expected to be backed by memory that outlives every reader obtained from
// Bytes, since frogfs never copies out of the returned slice.
type Provider interface {
	// Bytes returns the full blob. The returned slice must not be mutated
	// or retained past Close.
	Bytes() []byte

	// Close releases any resources backing the blob (an mmap region, an
	// open file descriptor). Close is a no-op for in-memory blobs.
	Close() error
}

// memProvider wraps an already-resident byte slice, e.g. firmware data
// linked directly into the binary.
type memProvider struct {
	b []byte
}

// FromBytes returns a Provider over an existing in-memory region. No copy
// is made; the caller retains ownership and must keep b alive for the
// lifetime of the Provider.
func FromBytes(b []byte) Provider {
	return &memProvider{b: b}
}

func (m *memProvider) Bytes() []byte { return m.b }
func (m *memProvider) Close() error  { return nil }

// mmapProvider wraps a memory-mapped file, modeling a platform's
// memory-mapped flash partition.
type mmapProvider struct {
	f *os.File
	m mmap.MMap
}

// FromFile memory-maps the file at path read-only and returns a Provider
// over its contents. This is the general-purpose stand-in for a
// platform-specific flash mapping API: on an embedded target the
// equivalent would map a partition directly; here it maps a regular file.
func FromFile(path string) (Provider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Errorf("blob.FromFile: %w", err)
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, xerrors.Errorf("blob.FromFile: mmap: %w", err)
	}

	return &mmapProvider{f: f, m: m}, nil
}

func (p *mmapProvider) Bytes() []byte { return p.m }

func (p *mmapProvider) Close() error {
	if err := p.m.Unmap(); err != nil {
		p.f.Close()
		return xerrors.Errorf("blob: unmap: %w", err)
	}
	return p.f.Close()
}
