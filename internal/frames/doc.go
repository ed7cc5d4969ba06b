// Package frames reads fixed-size raw 4:2:0 frame records from a decoder's
// output stream and keeps only the luma plane of each record.
//
// The read loop doubles as the consumer that keeps the decoder pipe drained;
// the decoder's exit status is inspected only after end of stream.
package frames
