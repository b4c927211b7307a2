// main.go

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

// pcapreplay feeds the drone-to-host video datagrams of a packet capture
// through the frame reassembler, for working on a family's video protocol
// without the drone in the air.  Completed frames can be written out as
// JPEG files for inspection.
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"github.com/openuav/toydrone/internal/profile"
	"github.com/openuav/toydrone/internal/protocol"
	"github.com/openuav/toydrone/internal/video"
)

func main() {
	var (
		family  = flag.String("drone", "s2x", "drone family the capture came from")
		file    = flag.String("pcap", "", "capture file to replay (required)")
		outDir  = flag.String("out", "", "write completed frames to this directory")
		speed   = flag.Float64("speed", 0, "replay pacing: 1 = original timing, 2 = double speed, 0 = no pacing")
		verbose = flag.Bool("v", false, "log every datagram")
	)
	flag.Parse()
	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	p, err := profile.ForFamily(*family)
	if err != nil {
		log.Fatal(err)
	}
	if !p.HasVideo {
		log.Fatalf("family %s has no UDP video to replay", p.Family)
	}
	adapter, err := protocol.New(p, net.IPv4(192, 168, 1, 2))
	if err != nil {
		log.Fatal(err)
	}
	if *outDir != "" {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			log.Fatal(err)
		}
	}

	handle, err := pcap.OpenOffline(*file)
	if err != nil {
		log.Fatalf("open capture: %v", err)
	}
	defer handle.Close()

	queue := video.NewQueue(64)
	// Generous frame timeout: a capture replay should never trip the
	// in-flight deadline.
	r := video.NewReassembler(adapter, queue, p.FrameCounterWrap, time.Hour)

	droneIP := net.ParseIP(p.Addr)
	datagrams := 0

	src := gopacket.NewPacketSource(handle, handle.LinkType())
	var prev time.Time
	for packet := range src.Packets() {
		udp, ok := packet.TransportLayer().(*layers.UDP)
		if !ok || len(udp.Payload) == 0 {
			continue
		}
		ipl, ok := packet.NetworkLayer().(*layers.IPv4)
		if !ok || !ipl.SrcIP.Equal(droneIP) {
			continue // only drone-to-host traffic carries video
		}
		if int(udp.SrcPort) != p.VideoPort && int(udp.DstPort) != p.VideoPort {
			continue
		}

		ts := packet.Metadata().Timestamp
		if *speed > 0 && !prev.IsZero() && ts.After(prev) {
			time.Sleep(time.Duration(float64(ts.Sub(prev)) / *speed))
		}
		prev = ts

		datagrams++
		frameNo, completed, err := r.Ingest(udp.Payload, ts)
		if *verbose {
			log.Printf("dgram %d: %d bytes, completed=%v err=%v", datagrams, len(udp.Payload), completed, err)
		}
		if !completed {
			continue
		}
		select {
		case f := <-queue.Frames():
			if *outDir != "" {
				name := filepath.Join(*outDir, fmt.Sprintf("frame_%06d.jpg", f.Number))
				if err := os.WriteFile(name, f.Data, 0o644); err != nil {
					log.Fatal(err)
				}
			}
		default:
			log.Printf("frame %d completed but not queued", frameNo)
		}
	}

	st := r.Stats()
	log.Printf("replayed %d datagrams: %d frames ok, %d dropped, %d bad, %d stale",
		datagrams, st.FramesOK, st.FramesDropped, st.BadDatagrams, st.Stale)
}
