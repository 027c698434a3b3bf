package internal

import "bytes"

const (
	// MinPendingSize is the first allocation made for a pending buffer.
	MinPendingSize = 4 * 1024
	// DefaultChunkSize is the read size used for io.Reader backed sources.
	DefaultChunkSize = 32 * 1024
)

// Pending holds bytes received from a source that have not been emitted as a
// complete line yet.
//
// Layout: buf[start:scan] has already been searched and holds no delimiter,
// buf[scan:end] has not been searched yet.
type Pending struct {
	buf              []byte
	start, scan, end int
}

// Len returns the number of bytes not yet emitted.
func (p *Pending) Len() int {
	return p.end - p.start
}

// Cap returns the size of the backing storage. It stays zero until the first
// non-empty Append.
func (p *Pending) Cap() int {
	return len(p.buf)
}

// Scanned returns how many unemitted bytes are known to be delimiter-free.
func (p *Pending) Scanned() int {
	return p.scan - p.start
}

// Window returns the unemitted bytes.
func (p *Pending) Window() []byte {
	return p.buf[p.start:p.end]
}

// Cut returns the bytes before the next delim and consumes them along with
// the delimiter. The search resumes where the previous unsuccessful Cut
// stopped, so each byte is examined once.
//
// The returned slice aliases the buffer and is only valid until the next
// Append.
func (p *Pending) Cut(delim byte) ([]byte, bool) {
	i := bytes.IndexByte(p.buf[p.scan:p.end], delim)
	if i < 0 {
		p.scan = p.end
		return nil, false
	}

	line := p.buf[p.start : p.scan+i]
	p.scan += i + 1
	p.start = p.scan
	if p.start == p.end {
		p.start, p.scan, p.end = 0, 0, 0
	}
	return line, true
}

// Drain returns every unemitted byte and leaves the buffer empty. The
// returned slice aliases the buffer like the one returned by Cut.
func (p *Pending) Drain() []byte {
	rest := p.buf[p.start:p.end]
	p.start, p.scan, p.end = 0, 0, 0
	return rest
}

// Append copies chunk after the unemitted bytes, compacting or growing the
// backing storage as needed.
func (p *Pending) Append(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	p.ensureWriteSpace(len(chunk))
	p.end += copy(p.buf[p.end:], chunk)
}

func (p *Pending) compact() {
	if p.start == 0 {
		return
	}
	copy(p.buf, p.buf[p.start:p.end])
	p.scan -= p.start
	p.end -= p.start
	p.start = 0
}

func (p *Pending) ensureWriteSpace(n int) {
	if p.end+n <= len(p.buf) {
		return
	}
	if p.start > 0 {
		p.compact()
		if p.end+n <= len(p.buf) {
			return
		}
	}

	// No space and cannot compact: grow.
	newLen := len(p.buf) * 2
	if newLen < MinPendingSize {
		newLen = MinPendingSize
	}
	for newLen < p.end+n {
		newLen *= 2
	}

	nb := make([]byte, newLen)
	copy(nb, p.buf[:p.end])
	p.buf = nb
}
