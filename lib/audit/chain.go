// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/zeebo/blake3"
)

// ErrChainBroken means a journal's hash chain does not verify.
var ErrChainBroken = errors.New("audit: hash chain broken")

// chainDomainKey separates journal hashes from any other BLAKE3 use of
// the same bytes. Changing it invalidates every existing journal.
var chainDomainKey = [32]byte{
	'f', 'a', 'c', 'e', 'g', 'a', 't', 'e', '.', 'a', 'u', 'd', 'i', 't', '.',
	'c', 'h', 'a', 'i', 'n', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// maxLineSize bounds a single journal line when scanning.
const maxLineSize = 64 * 1024

// canonicalBytes is the JSON encoding of record with Hash cleared.
// Struct field order makes it deterministic.
func canonicalBytes(record Record) ([]byte, error) {
	record.Hash = ""
	return json.Marshal(record)
}

// chainHash is the keyed BLAKE3 digest of the previous hash followed
// by the canonical record bytes, hex encoded.
func chainHash(previous string, canonical []byte) string {
	hasher, err := blake3.NewKeyed(chainDomainKey[:])
	if err != nil {
		panic("audit: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write([]byte(previous))
	hasher.Write([]byte{'\n'})
	hasher.Write(canonical)
	return hex.EncodeToString(hasher.Sum(nil))
}

// seal sets PreviousHash and Hash on record and returns the journal
// line, newline included.
func seal(record *Record, previous string) ([]byte, error) {
	record.PreviousHash = previous
	canonical, err := canonicalBytes(*record)
	if err != nil {
		return nil, fmt.Errorf("audit: encoding record: %w", err)
	}
	record.Hash = chainHash(previous, canonical)
	line, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("audit: encoding record: %w", err)
	}
	return append(line, '\n'), nil
}

// VerifyChain reads journal lines from r and checks every link. It
// returns the number of records verified. On failure the error wraps
// ErrChainBroken and names the 1-based line.
func VerifyChain(r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)

	previous := ""
	count := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		count++

		var record Record
		if err := json.Unmarshal(line, &record); err != nil {
			return count - 1, fmt.Errorf("%w: line %d: %v", ErrChainBroken, count, err)
		}
		if record.PreviousHash != previous {
			return count - 1, fmt.Errorf("%w: line %d: previous_hash does not match line %d", ErrChainBroken, count, count-1)
		}
		canonical, err := canonicalBytes(record)
		if err != nil {
			return count - 1, fmt.Errorf("%w: line %d: %v", ErrChainBroken, count, err)
		}
		if want := chainHash(previous, canonical); record.Hash != want {
			return count - 1, fmt.Errorf("%w: line %d: hash mismatch", ErrChainBroken, count)
		}
		previous = record.Hash
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("audit: reading journal: %w", err)
	}
	return count, nil
}

// lastHash scans r and returns the Hash of its final record, or "" for
// an empty journal.
func lastHash(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)

	var last []byte
	for scanner.Scan() {
		if len(scanner.Bytes()) > 0 {
			last = append(last[:0], scanner.Bytes()...)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("audit: reading journal: %w", err)
	}
	if last == nil {
		return "", nil
	}
	var tail struct {
		Hash string `json:"hash"`
	}
	if err := json.Unmarshal(last, &tail); err != nil || tail.Hash == "" {
		return "", fmt.Errorf("%w: last line is not a sealed record", ErrChainBroken)
	}
	return tail.Hash, nil
}
