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

// toydrone flies cheap WiFi camera quadcopters over their native UDP
// protocols.  It reads JSON command messages, one per line, on stdin and
// emits completed video frames to an optional dump directory.
//
// Configuration comes from the environment (DRONE_TYPE, DRONE_IP, tuning
// overrides) with the flags below taking precedence.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/openuav/toydrone/internal/follow"
	"github.com/openuav/toydrone/internal/profile"
	"github.com/openuav/toydrone/internal/session"
	"github.com/openuav/toydrone/internal/video"
)

func main() {
	var (
		family  = flag.String("drone", "", "drone family: "+strings.Join(profile.Families(), " | "))
		preset  = flag.String("preset", "", "control preset (normal | precise | aggressive)")
		dumpDir = flag.String("dump", "", "write each completed video frame to this directory")
	)
	flag.Parse()

	cfg, err := profile.Resolve(*family)
	if err != nil {
		log.Fatalf("configuration: %v", err)
	}
	if *preset != "" {
		if _, err := cfg.Profile.Preset(*preset); err != nil {
			log.Fatalf("configuration: %v", err)
		}
		cfg.Preset = *preset
	}
	if *dumpDir != "" {
		if err := os.MkdirAll(*dumpDir, 0o755); err != nil {
			log.Fatalf("dump directory: %v", err)
		}
	}

	sess, err := session.Open(cfg)
	if err != nil {
		log.Fatalf("session: %v", err)
	}
	fol := follow.New(cfg, sess.Flight)

	sess.Start()

	if frames := sess.Frames(); frames != nil {
		go consumeFrames(frames, *dumpDir)
	}
	go commandLoop(sess, fol)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Println("landing and shutting down")
	sess.Flight.Land()
	time.Sleep(500 * time.Millisecond) // let the land packet go out a few times
	sess.Close()
	if sess.Engine != nil {
		st := sess.Engine.Stats()
		log.Printf("video: %d frames ok, %d dropped, %d retries, %d bad datagrams",
			st.FramesOK, st.FramesDropped, st.Retries, st.BadDatagrams)
	}
}

// commandLoop routes stdin JSON lines: follow-plugin messages go to the
// follow controller, everything else to the flight controller.
func commandLoop(sess *session.Session, fol *follow.Controller) {
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var head struct {
			Type string `json:"type"`
			follow.Box
		}
		if err := json.Unmarshal(line, &head); err != nil {
			log.Printf("command: bad message: %v", err)
			continue
		}
		var err error
		switch head.Type {
		case "follow_start":
			err = fol.Start()
		case "follow_stop":
			fol.Stop()
		case "follow_box":
			err = fol.Observe(head.Box)
		case "follow_lost":
			err = fol.Lost()
		default:
			err = sess.Flight.HandleCommand(line)
		}
		if err != nil {
			log.Printf("command %s: %v", head.Type, err)
		}
	}
}

// consumeFrames drains the frame queue so the engine never stalls, writing
// each frame out when a dump directory was given.
func consumeFrames(frames <-chan video.Frame, dumpDir string) {
	n := 0
	for f := range frames {
		if dumpDir == "" {
			continue
		}
		name := filepath.Join(dumpDir, fmt.Sprintf("frame_%06d.jpg", n))
		if err := os.WriteFile(name, f.Data, 0o644); err != nil {
			log.Printf("frame dump: %v", err)
			return
		}
		n++
	}
}
