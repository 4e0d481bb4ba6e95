package book

import (
	"bufio"
	"io"
	"strconv"
)

// flushEvery is how many rows accumulate before the writer's buffered sink
// is explicitly flushed, independent of the buffer's own byte-size
// threshold.
const flushEvery = 100

// Writer formats depth snapshots into the 47-column CSV layout and writes
// them to a buffered sink, flushing every flushEvery rows and once more at
// Finalize. It reuses a scratch buffer across rows to keep row formatting
// allocation-free.
type Writer struct {
	buf     *bufio.Writer
	rows    uint64
	scratch []byte
}

// NewWriter wraps w in a buffered CSV sink and writes the header row
// immediately, before any snapshot is processed, so a truncated run still
// leaves a file with a header.
func NewWriter(w io.Writer) (*Writer, error) {
	sw := &Writer{
		buf:     bufio.NewWriterSize(w, 64*1024),
		scratch: make([]byte, 0, 512),
	}
	if err := sw.writeHeader(); err != nil {
		return nil, err
	}
	return sw, nil
}

func (w *Writer) writeHeader() error {
	w.scratch = w.scratch[:0]
	w.scratch = append(w.scratch, "timestamp"...)
	for i := 1; i <= Depth; i++ {
		w.scratch = strconv.AppendInt(append(w.scratch, ','), int64(i), 10)
		w.scratch = append(w.scratch, "_bid_price,"...)
		w.scratch = strconv.AppendInt(w.scratch, int64(i), 10)
		w.scratch = append(w.scratch, "_bid_vol,"...)
		w.scratch = strconv.AppendInt(w.scratch, int64(i), 10)
		w.scratch = append(w.scratch, "_ask_price,"...)
		w.scratch = strconv.AppendInt(w.scratch, int64(i), 10)
		w.scratch = append(w.scratch, "_ask_vol"...)
	}
	w.scratch = append(w.scratch, ",mid_price,orderbook_imbalance\n"...)
	_, err := w.buf.Write(w.scratch)
	return err
}

// Write implements Sink. bids and asks must already be depth-10, best
// first, zero-padded.
func (w *Writer) Write(timestamp uint64, bids, asks [Depth]DepthLevel) error {
	bestBid := bids[0].Price
	bestAsk := asks[0].Price
	mid := float64(uint64(bestBid)+uint64(bestAsk)) / 20000.0
	imbalance := computeImbalance(bids, asks)

	w.scratch = w.scratch[:0]
	w.scratch = strconv.AppendUint(w.scratch, timestamp, 10)
	for i := 0; i < Depth; i++ {
		w.scratch = append(w.scratch, ',')
		w.scratch = appendFixedPrice(w.scratch, bids[i].Price)
		w.scratch = append(w.scratch, ',')
		w.scratch = strconv.AppendUint(w.scratch, bids[i].Volume, 10)
		w.scratch = append(w.scratch, ',')
		w.scratch = appendFixedPrice(w.scratch, asks[i].Price)
		w.scratch = append(w.scratch, ',')
		w.scratch = strconv.AppendUint(w.scratch, asks[i].Volume, 10)
	}
	w.scratch = append(w.scratch, ',')
	w.scratch = strconv.AppendFloat(w.scratch, mid, 'f', 4, 64)
	w.scratch = append(w.scratch, ',')
	w.scratch = strconv.AppendFloat(w.scratch, imbalance, 'f', 6, 64)
	w.scratch = append(w.scratch, '\n')

	if _, err := w.buf.Write(w.scratch); err != nil {
		return err
	}

	w.rows++
	if w.rows%flushEvery == 0 {
		return w.buf.Flush()
	}
	return nil
}

// Finalize flushes any buffered rows. Callers should invoke it once at
// end-of-buffer regardless of the flushEvery cadence.
func (w *Writer) Finalize() error {
	return w.buf.Flush()
}

// computeImbalance sums volume over the depth-10 slice only, never the
// whole book.
func computeImbalance(bids, asks [Depth]DepthLevel) float64 {
	var bidVol, askVol uint64
	for i := 0; i < Depth; i++ {
		bidVol += bids[i].Volume
		askVol += asks[i].Volume
	}
	if bidVol == 0 && askVol == 0 {
		return 0.0
	}
	return (float64(bidVol) - float64(askVol)) / (float64(bidVol) + float64(askVol))
}

// appendFixedPrice appends price (scaled ×10,000) as "int.dddd": the
// integer part followed by exactly four zero-padded decimal digits.
func appendFixedPrice(dst []byte, price uint32) []byte {
	dst = strconv.AppendUint(dst, uint64(price/10000), 10)
	dst = append(dst, '.')
	frac := price % 10000
	if frac < 1000 {
		dst = append(dst, '0')
	}
	if frac < 100 {
		dst = append(dst, '0')
	}
	if frac < 10 {
		dst = append(dst, '0')
	}
	return strconv.AppendUint(dst, uint64(frac), 10)
}
