package pencil

import (
	"errors"
	"fmt"

	"github.com/sbl8/spectral/core"
	"github.com/sbl8/spectral/grid"
)

// ErrBadTransfer is returned when two pencils cannot be paired for a
// redistribution.
var ErrBadTransfer = errors.New("pencil: invalid transfer pair")

// block is an axis-aligned region in local index coordinates.
type block struct {
	lo, hi []int
	n      int
}

// Transfer redistributes arrays between two pencils of the same global
// shape whose local axes differ. Every rank computes, locally, the
// intersection of its slice with each peer's slice on the other side; the
// payloads move in one all-to-all per direction.
type Transfer struct {
	comm *grid.Comm
	a, b *Pencil

	send []block // forward send to peer q, in a-local coordinates
	recv []block // forward recv from peer q, in b-local coordinates

	cxSend, cxRecv [][]complex128
	reSend, reRecv [][]float64
}

// NewTransfer plans the exchange from a to b. The pencils must share the
// global shape and b must be a's repartition onto its own local axis.
func NewTransfer(a, b *Pencil) (*Transfer, error) {
	if len(a.shape) != len(b.shape) {
		return nil, fmt.Errorf("%w: rank mismatch", ErrBadTransfer)
	}
	for i := range a.shape {
		if a.shape[i] != b.shape[i] {
			return nil, fmt.Errorf("%w: global shapes %v vs %v", ErrBadTransfer, a.shape, b.shape)
		}
	}
	if a.axis == b.axis {
		return nil, fmt.Errorf("%w: both pencils local in axis %d", ErrBadTransfer, a.axis)
	}
	// The exchange happens over the communicator that distributes b's
	// local axis in a; on the b side the same processes distribute a's
	// old axis.
	comm := a.comms[b.axis]
	if b.comms[a.axis] != comm || comm.Size() != b.sizes[a.axis] {
		return nil, fmt.Errorf("%w: pencils are not repartitions of each other", ErrBadTransfer)
	}
	for i := range a.shape {
		if i != a.axis && i != b.axis {
			if a.sizes[i] != b.sizes[i] || a.coords[i] != b.coords[i] {
				return nil, fmt.Errorf("%w: axis %d ownership differs", ErrBadTransfer, i)
			}
		}
	}

	t := &Transfer{comm: comm, a: a, b: b}
	nd := len(a.shape)
	p := comm.Size()
	for q := 0; q < p; q++ {
		// Peer q's slice of a's local axis on the b side, and of b's
		// local axis on the a side.
		bLoA, bExtA := blockPartition(a.shape[a.axis], p, q)
		aLoB, aExtB := blockPartition(a.shape[b.axis], p, q)

		sb := block{lo: make([]int, nd), hi: make([]int, nd)}
		rb := block{lo: make([]int, nd), hi: make([]int, nd)}
		for i := 0; i < nd; i++ {
			switch i {
			case a.axis:
				sb.lo[i], sb.hi[i] = bLoA, bLoA+bExtA
				rb.lo[i], rb.hi[i] = 0, b.subshape[i]
			case b.axis:
				sb.lo[i], sb.hi[i] = 0, a.subshape[i]
				rb.lo[i], rb.hi[i] = aLoB, aLoB+aExtB
			default:
				sb.lo[i], sb.hi[i] = 0, a.subshape[i]
				rb.lo[i], rb.hi[i] = 0, b.subshape[i]
			}
		}
		sb.n = core.BlockLen(sb.lo, sb.hi)
		rb.n = core.BlockLen(rb.lo, rb.hi)
		t.send = append(t.send, sb)
		t.recv = append(t.recv, rb)
	}
	return t, nil
}

// A returns the source pencil.
func (t *Transfer) A() *Pencil { return t.a }

// B returns the destination pencil.
func (t *Transfer) B() *Pencil { return t.b }

func (t *Transfer) complexBuffers() ([][]complex128, [][]complex128) {
	if t.cxSend == nil {
		t.cxSend = make([][]complex128, len(t.send))
		t.cxRecv = make([][]complex128, len(t.recv))
		for q := range t.send {
			t.cxSend[q] = make([]complex128, t.send[q].n)
			t.cxRecv[q] = make([]complex128, t.recv[q].n)
		}
	}
	return t.cxSend, t.cxRecv
}

func (t *Transfer) realBuffers() ([][]float64, [][]float64) {
	if t.reSend == nil {
		t.reSend = make([][]float64, len(t.send))
		t.reRecv = make([][]float64, len(t.recv))
		for q := range t.send {
			t.reSend[q] = make([]float64, t.send[q].n)
			t.reRecv[q] = make([]float64, t.recv[q].n)
		}
	}
	return t.reSend, t.reRecv
}

func (t *Transfer) check(src, dst *core.Array, sp, dp *Pencil) error {
	if src.Dtype() != dst.Dtype() {
		return fmt.Errorf("%w: dtype %v vs %v", ErrBadTransfer, src.Dtype(), dst.Dtype())
	}
	for i, n := range sp.subshape {
		if src.Extent(i) != n {
			return fmt.Errorf("%w: source shape %v, pencil wants %v", ErrBadTransfer, src.Shape(), sp.subshape)
		}
	}
	for i, n := range dp.subshape {
		if dst.Extent(i) != n {
			return fmt.Errorf("%w: destination shape %v, pencil wants %v", ErrBadTransfer, dst.Shape(), dp.subshape)
		}
	}
	return nil
}

// Forward moves src, laid out on pencil A, into dst on pencil B.
func (t *Transfer) Forward(src, dst *core.Array) error {
	if err := t.check(src, dst, t.a, t.b); err != nil {
		return err
	}
	return t.exchange(src, dst, t.send, t.recv, false)
}

// Backward moves src, laid out on pencil B, back onto pencil A in dst.
func (t *Transfer) Backward(src, dst *core.Array) error {
	if err := t.check(src, dst, t.b, t.a); err != nil {
		return err
	}
	return t.exchange(src, dst, t.recv, t.send, true)
}

func (t *Transfer) exchange(src, dst *core.Array, out, in []block, swapped bool) error {
	if src.Dtype() == core.Complex {
		sendBuf, recvBuf := t.complexBuffers()
		// Backward reuses the forward buffers with roles swapped.
		if swapped {
			sendBuf, recvBuf = recvBuf, sendBuf
		}
		for q := range out {
			src.PackBlockComplex(out[q].lo, out[q].hi, sendBuf[q])
		}
		t.comm.AllToAllComplex(sendBuf, recvBuf)
		for q := range in {
			dst.UnpackBlockComplex(in[q].lo, in[q].hi, recvBuf[q])
		}
		return nil
	}
	sendBuf, recvBuf := t.realBuffers()
	if swapped {
		sendBuf, recvBuf = recvBuf, sendBuf
	}
	for q := range out {
		src.PackBlockReal(out[q].lo, out[q].hi, sendBuf[q])
	}
	t.comm.AllToAllReal(sendBuf, recvBuf)
	for q := range in {
		dst.UnpackBlockReal(in[q].lo, in[q].hi, recvBuf[q])
	}
	return nil
}
