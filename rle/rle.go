// Package rle implements the run-length encoding used for TinyMLDelta
// chunk payloads: pairs of (count, value) where count==0 means a run of
// 256.
package rle

import "errors"

// ErrOverflow is returned by Decode when the decoded run would exceed the
// destination capacity.
var ErrOverflow = errors.New("rle: decoded length exceeds destination capacity")

// Decode writes the decoded form of in into a newly allocated slice and
// returns it. Only complete count/value pairs are decoded: a trailing
// odd byte (not enough left for a full pair) is silently ignored rather
// than treated as an error.
//
// capacity bounds the maximum decoded length (the scratch buffer capacity
// on the embedded side); decoding that would exceed it fails with
// ErrOverflow.
func Decode(in []byte, capacity int) ([]byte, error) {
	out := make([]byte, 0, capacity)
	for i := 0; i+2 <= len(in); i += 2 {
		count, val := in[i], in[i+1]
		run := int(count)
		if run == 0 {
			run = 256
		}
		if len(out)+run > capacity {
			return nil, ErrOverflow
		}
		for k := 0; k < run; k++ {
			out = append(out, val)
		}
	}
	return out, nil
}

// Encode produces an RLE encoding of in using maximal runs (each run
// capped at 256 bytes per the wire format). It is used by patch-side
// tooling and by the round-trip property test; the device-side decoder
// never needs to encode.
func Encode(in []byte) []byte {
	var out []byte
	for i := 0; i < len(in); {
		v := in[i]
		run := 1
		for i+run < len(in) && in[i+run] == v && run < 256 {
			run++
		}
		count := byte(run)
		if run == 256 {
			count = 0
		}
		out = append(out, count, v)
		i += run
	}
	return out
}
