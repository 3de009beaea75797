// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/facegate/lib/session"
)

// errFramesExhausted is returned by Detect once every frame in the
// file has been used.
var errFramesExhausted = errors.New("no more frames in capture file")

// frameDetector replays captured frames from a JSONL file: one line per
// frame, each line a JSON array of face descriptors. "[]" is a frame
// with no face. Blank lines and lines starting with "//" are skipped.
type frameDetector struct {
	path string

	mu     sync.Mutex
	frames [][]session.Face
	next   int
	closed bool
}

func newFrameDetector(path string) *frameDetector {
	return &frameDetector{path: path}
}

// Load reads the whole file. A missing file reads as an unavailable
// camera, an unreadable one as denied permission.
func (d *frameDetector) Load(ctx context.Context) error {
	file, err := os.Open(d.path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("%w: %w", session.ErrPermissionDenied, err)
		}
		return fmt.Errorf("%w: %w", session.ErrCameraUnavailable, err)
	}
	defer file.Close()

	var frames [][]session.Face
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 || bytes.HasPrefix(text, []byte("//")) {
			continue
		}
		var descriptors [][]float64
		if err := json.Unmarshal(jsonc.ToJSON(text), &descriptors); err != nil {
			return fmt.Errorf("%s line %d: %w", d.path, line, err)
		}
		faces := make([]session.Face, len(descriptors))
		for i, descriptor := range descriptors {
			faces[i] = session.Face{Descriptor: descriptor}
		}
		frames = append(frames, faces)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", d.path, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.frames = frames
	d.next = 0
	d.closed = false
	return nil
}

// Detect returns the next frame.
func (d *frameDetector) Detect(ctx context.Context) ([]session.Face, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, errors.New("capture file closed")
	}
	if d.next >= len(d.frames) {
		return nil, errFramesExhausted
	}
	frame := d.frames[d.next]
	d.next++
	return frame, nil
}

func (d *frameDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.frames = nil
	return nil
}
