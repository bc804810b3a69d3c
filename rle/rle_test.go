package rle

import (
	"bytes"
	"testing"
)

func TestDecodeBasic(t *testing.T) {
	// count=5 val=0xAA
	out, err := Decode([]byte{5, 0xAA}, 1024)
	if err != nil {
		t.Fatal(err)
	}
	want := bytes.Repeat([]byte{0xAA}, 5)
	if !bytes.Equal(out, want) {
		t.Errorf("got %x want %x", out, want)
	}
}

func TestDecodeZeroCountIs256(t *testing.T) {
	out, err := Decode([]byte{0, 0x11}, 1024)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 256 {
		t.Fatalf("got len %d want 256", len(out))
	}
}

func TestDecodeOddTrailingByteIgnored(t *testing.T) {
	out, err := Decode([]byte{2, 0xFF, 0x01}, 1024)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0xFF, 0xFF}
	if !bytes.Equal(out, want) {
		t.Errorf("got %x want %x", out, want)
	}
}

func TestDecodeOverflow(t *testing.T) {
	_, err := Decode([]byte{0, 0x11, 0, 0x22}, 400)
	if err != ErrOverflow {
		t.Fatalf("got %v want ErrOverflow", err)
	}
}

func TestRoundTrip(t *testing.T) {
	cases := [][]byte{
		nil,
		{1},
		bytes.Repeat([]byte{7}, 1),
		bytes.Repeat([]byte{7}, 255),
		bytes.Repeat([]byte{7}, 256),
		bytes.Repeat([]byte{7}, 257),
		append(bytes.Repeat([]byte{1}, 10), bytes.Repeat([]byte{2}, 600)...),
	}
	for _, c := range cases {
		enc := Encode(c)
		got, err := Decode(enc, 1024)
		if err != nil {
			t.Fatalf("decode(%x): %v", enc, err)
		}
		if !bytes.Equal(got, c) && !(len(got) == 0 && len(c) == 0) {
			t.Errorf("round trip mismatch: in=%x enc=%x out=%x", c, enc, got)
		}
	}
}
