// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const groupSessionInfo = "opcua-agent-group-session"

// GroupSession is an AEAD ratchet standing in for the original's Megolm
// group session: every message derives a fresh key and nonce from the root
// secret and a monotonically increasing counter via HKDF, then seals with
// secretbox (XSalsa20-Poly1305). The counter is prepended to the ciphertext
// so a holder of the same root secret can re-derive the key/nonce without
// separate state transport.
type GroupSession struct {
	mu      sync.Mutex
	root    [32]byte
	counter uint64
}

// NewRootSecret generates a fresh base64-encoded 32-byte root secret, the
// value cmd/codec-tool's keygen subcommand prints for cloud.groupSessionPickle.
// Stands in for the original's megolmctl binary minting a new group session.
func NewRootSecret() (string, error) {
	var root [32]byte
	if _, err := io.ReadFull(rand.Reader, root[:]); err != nil {
		return "", fmt.Errorf("codec: generate root secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(root[:]), nil
}

// NewGroupSession loads a GroupSession from a base64-encoded 32-byte root
// secret, the cloud.groupSessionPickle configuration value.
func NewGroupSession(pickle string) (*GroupSession, error) {
	raw, err := base64.StdEncoding.DecodeString(pickle)
	if err != nil {
		return nil, fmt.Errorf("codec: decode group session pickle: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("codec: group session pickle must decode to 32 bytes, got %d", len(raw))
	}

	var root [32]byte
	copy(root[:], raw)
	return &GroupSession{root: root}, nil
}

// Encode implements Codec. Concurrent calls are serialized by a mutex, so
// each message gets its own counter value; GroupSession is owned
// exclusively by the cloudmqtt Adapter goroutine.
func (g *GroupSession) Encode(payload []byte) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var counterBuf [8]byte
	binary.BigEndian.PutUint64(counterBuf[:], g.counter)

	kdf := hkdf.New(sha256.New, g.root[:], counterBuf[:], []byte(groupSessionInfo))

	var key [32]byte
	if _, err := io.ReadFull(kdf, key[:]); err != nil {
		return nil, fmt.Errorf("codec: derive key: %w", err)
	}
	var nonce [24]byte
	if _, err := io.ReadFull(kdf, nonce[:]); err != nil {
		return nil, fmt.Errorf("codec: derive nonce: %w", err)
	}

	sealed := secretbox.Seal(nil, payload, &nonce, &key)

	out := make([]byte, 0, len(counterBuf)+len(sealed))
	out = append(out, counterBuf[:]...)
	out = append(out, sealed...)

	g.counter++
	return out, nil
}

// Decode reverses Encode: it reads the counter prefix, re-derives the same
// key/nonce, and opens the secretbox. It does not advance or otherwise
// consult g's own counter, so a GroupSession can decode messages out of
// order; used by cmd/codec-tool's decode subcommand.
func (g *GroupSession) Decode(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < 8 {
		return nil, fmt.Errorf("codec: ciphertext too short")
	}
	counter := binary.BigEndian.Uint64(ciphertext[:8])

	var counterBuf [8]byte
	binary.BigEndian.PutUint64(counterBuf[:], counter)

	kdf := hkdf.New(sha256.New, g.root[:], counterBuf[:], []byte(groupSessionInfo))

	var key [32]byte
	if _, err := io.ReadFull(kdf, key[:]); err != nil {
		return nil, fmt.Errorf("codec: derive key: %w", err)
	}
	var nonce [24]byte
	if _, err := io.ReadFull(kdf, nonce[:]); err != nil {
		return nil, fmt.Errorf("codec: derive nonce: %w", err)
	}

	opened, ok := secretbox.Open(nil, ciphertext[8:], &nonce, &key)
	if !ok {
		return nil, fmt.Errorf("codec: decryption failed")
	}
	return opened, nil
}
