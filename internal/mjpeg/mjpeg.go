// mjpeg.go

// Copyright (C) 2025  The toydrone authors

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package mjpeg synthesises the minimal JPEG container framing (SOI, DQT,
// SOF0, DHT, SOS, EOI) for video streams that transmit bare entropy-coded
// scan data.  The WiFi-UAV family strips every JPEG header on the wire; the
// paired mobile app regenerates them on the phone, and we do the same here so
// downstream consumers receive directly decodable images.
package mjpeg

import "fmt"

// SOI and EOI are the JPEG start-of-image / end-of-image markers.
var (
	SOI = []byte{0xff, 0xd8}
	EOI = []byte{0xff, 0xd9}
)

// Standard luminance quantisation table (zigzag order).
var stdLuminanceQT = []byte{
	16, 11, 10, 16, 24, 40, 51, 61,
	12, 12, 14, 19, 26, 58, 60, 55,
	14, 13, 16, 24, 40, 57, 69, 56,
	14, 17, 22, 29, 51, 87, 80, 62,
	18, 22, 37, 56, 68, 109, 103, 77,
	24, 35, 55, 64, 81, 104, 113, 92,
	49, 64, 78, 87, 103, 121, 120, 101,
	72, 92, 95, 98, 112, 100, 103, 99,
}

// Standard chrominance quantisation table (zigzag order).
var stdChrominanceQT = []byte{
	17, 18, 24, 47, 99, 99, 99, 99,
	18, 21, 26, 66, 99, 99, 99, 99,
	24, 26, 56, 99, 99, 99, 99, 99,
	47, 66, 99, 99, 99, 99, 99, 99,
	99, 99, 99, 99, 99, 99, 99, 99,
	99, 99, 99, 99, 99, 99, 99, 99,
	99, 99, 99, 99, 99, 99, 99, 99,
	99, 99, 99, 99, 99, 99, 99, 99,
}

// Standard Huffman tables from ITU-T T.81 Annex K.3.3.
var (
	dcLuminanceBits = []byte{0, 1, 5, 1, 1, 1, 1, 1, 1, 0, 0, 0, 0, 0, 0, 0}
	dcLuminanceVals = []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}

	dcChrominanceBits = []byte{0, 3, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0, 0, 0, 0, 0}
	dcChrominanceVals = []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}

	acLuminanceBits = []byte{0, 2, 1, 3, 3, 2, 4, 3, 5, 5, 4, 4, 0, 0, 1, 0x7d}
	acLuminanceVals = []byte{
		0x01, 0x02, 0x03, 0x00, 0x04, 0x11, 0x05, 0x12, 0x21, 0x31, 0x41, 0x06, 0x13, 0x51, 0x61, 0x07,
		0x22, 0x71, 0x14, 0x32, 0x81, 0x91, 0xa1, 0x08, 0x23, 0x42, 0xb1, 0xc1, 0x15, 0x52, 0xd1, 0xf0,
		0x24, 0x33, 0x62, 0x72, 0x82, 0x09, 0x0a, 0x16, 0x17, 0x18, 0x19, 0x1a, 0x25, 0x26, 0x27, 0x28,
		0x29, 0x2a, 0x34, 0x35, 0x36, 0x37, 0x38, 0x39, 0x3a, 0x43, 0x44, 0x45, 0x46, 0x47, 0x48, 0x49,
		0x4a, 0x53, 0x54, 0x55, 0x56, 0x57, 0x58, 0x59, 0x5a, 0x63, 0x64, 0x65, 0x66, 0x67, 0x68, 0x69,
		0x6a, 0x73, 0x74, 0x75, 0x76, 0x77, 0x78, 0x79, 0x7a, 0x83, 0x84, 0x85, 0x86, 0x87, 0x88, 0x89,
		0x8a, 0x92, 0x93, 0x94, 0x95, 0x96, 0x97, 0x98, 0x99, 0x9a, 0xa2, 0xa3, 0xa4, 0xa5, 0xa6, 0xa7,
		0xa8, 0xa9, 0xaa, 0xb2, 0xb3, 0xb4, 0xb5, 0xb6, 0xb7, 0xb8, 0xb9, 0xba, 0xc2, 0xc3, 0xc4, 0xc5,
		0xc6, 0xc7, 0xc8, 0xc9, 0xca, 0xd2, 0xd3, 0xd4, 0xd5, 0xd6, 0xd7, 0xd8, 0xd9, 0xda, 0xe1, 0xe2,
		0xe3, 0xe4, 0xe5, 0xe6, 0xe7, 0xe8, 0xe9, 0xea, 0xf1, 0xf2, 0xf3, 0xf4, 0xf5, 0xf6, 0xf7, 0xf8,
		0xf9, 0xfa,
	}

	acChrominanceBits = []byte{0, 2, 1, 2, 4, 4, 3, 4, 7, 5, 4, 4, 0, 1, 2, 0x77}
	acChrominanceVals = []byte{
		0x00, 0x01, 0x02, 0x03, 0x11, 0x04, 0x05, 0x21, 0x31, 0x06, 0x12, 0x41, 0x51, 0x07, 0x61, 0x71,
		0x13, 0x22, 0x32, 0x81, 0x08, 0x14, 0x42, 0x91, 0xa1, 0xb1, 0xc1, 0x09, 0x23, 0x33, 0x52, 0xf0,
		0x15, 0x62, 0x72, 0xd1, 0x0a, 0x16, 0x24, 0x34, 0xe1, 0x25, 0xf1, 0x17, 0x18, 0x19, 0x1a, 0x26,
		0x27, 0x28, 0x29, 0x2a, 0x35, 0x36, 0x37, 0x38, 0x39, 0x3a, 0x43, 0x44, 0x45, 0x46, 0x47, 0x48,
		0x49, 0x4a, 0x53, 0x54, 0x55, 0x56, 0x57, 0x58, 0x59, 0x5a, 0x63, 0x64, 0x65, 0x66, 0x67, 0x68,
		0x69, 0x6a, 0x73, 0x74, 0x75, 0x76, 0x77, 0x78, 0x79, 0x7a, 0x82, 0x83, 0x84, 0x85, 0x86, 0x87,
		0x88, 0x89, 0x8a, 0x92, 0x93, 0x94, 0x95, 0x96, 0x97, 0x98, 0x99, 0x9a, 0xa2, 0xa3, 0xa4, 0xa5,
		0xa6, 0xa7, 0xa8, 0xa9, 0xaa, 0xb2, 0xb3, 0xb4, 0xb5, 0xb6, 0xb7, 0xb8, 0xb9, 0xba, 0xc2, 0xc3,
		0xc4, 0xc5, 0xc6, 0xc7, 0xc8, 0xc9, 0xca, 0xd2, 0xd3, 0xd4, 0xd5, 0xd6, 0xd7, 0xd8, 0xd9, 0xda,
		0xe2, 0xe3, 0xe4, 0xe5, 0xe6, 0xe7, 0xe8, 0xe9, 0xea, 0xf2, 0xf3, 0xf4, 0xf5, 0xf6, 0xf7, 0xf8,
		0xf9, 0xfa,
	}
)

// Header builds the complete JPEG preamble (everything before the scan data)
// for a baseline 8-bit image of the given geometry.  components is 1 for
// grayscale or 3 for YCbCr with 4:4:4 subsampling.
func Header(width, height, components int) ([]byte, error) {
	if width < 1 || width > 0xffff || height < 1 || height > 0xffff {
		return nil, fmt.Errorf("mjpeg: geometry %dx%d out of range", width, height)
	}
	if components != 1 && components != 3 {
		return nil, fmt.Errorf("mjpeg: %d components unsupported (want 1 or 3)", components)
	}

	h := make([]byte, 0, 660)
	h = append(h, SOI...)
	h = append(h, dqtSegment(0, stdLuminanceQT)...)
	if components == 3 {
		h = append(h, dqtSegment(1, stdChrominanceQT)...)
	}
	h = append(h, sof0Segment(width, height, components)...)
	h = append(h, dhtSegment(0, 0, dcLuminanceBits, dcLuminanceVals)...)
	h = append(h, dhtSegment(1, 0, acLuminanceBits, acLuminanceVals)...)
	if components == 3 {
		h = append(h, dhtSegment(0, 1, dcChrominanceBits, dcChrominanceVals)...)
		h = append(h, dhtSegment(1, 1, acChrominanceBits, acChrominanceVals)...)
	}
	h = append(h, sosSegment(components)...)
	return h, nil
}

// dqtSegment encodes one 8-bit Define-Quantisation-Table segment.
func dqtSegment(id int, table []byte) []byte {
	seg := []byte{0xff, 0xdb, 0x00, 0x43, byte(id)}
	return append(seg, table...)
}

// sof0Segment encodes a baseline Start-of-Frame for 8-bit samples.
func sof0Segment(width, height, components int) []byte {
	length := 8 + 3*components
	seg := []byte{
		0xff, 0xc0,
		byte(length >> 8), byte(length),
		0x08, // sample precision
		byte(height >> 8), byte(height),
		byte(width >> 8), byte(width),
		byte(components),
	}
	if components == 1 {
		seg = append(seg, 0x01, 0x11, 0x00)
	} else {
		seg = append(seg,
			0x01, 0x11, 0x00, // Y,  1x1, QT 0
			0x02, 0x11, 0x01, // Cb, 1x1, QT 1
			0x03, 0x11, 0x01, // Cr, 1x1, QT 1
		)
	}
	return seg
}

// dhtSegment encodes one Define-Huffman-Table segment.
// class is 0 for DC, 1 for AC.
func dhtSegment(class, id int, bits, vals []byte) []byte {
	length := 2 + 1 + len(bits) + len(vals)
	seg := []byte{0xff, 0xc4, byte(length >> 8), byte(length), byte(class<<4 | id)}
	seg = append(seg, bits...)
	return append(seg, vals...)
}

// sosSegment encodes the Start-of-Scan header for a full-frame scan.
func sosSegment(components int) []byte {
	if components == 1 {
		return []byte{0xff, 0xda, 0x00, 0x08, 0x01, 0x01, 0x00, 0x00, 0x3f, 0x00}
	}
	return []byte{
		0xff, 0xda, 0x00, 0x0c, 0x03,
		0x01, 0x00, // Y  -> DC 0 / AC 0
		0x02, 0x11, // Cb -> DC 1 / AC 1
		0x03, 0x11, // Cr -> DC 1 / AC 1
		0x00, 0x3f, 0x00,
	}
}
