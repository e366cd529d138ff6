// Package phonetic implements the Soundex code used to block surname and
// given-name comparisons.
package phonetic

import (
	"strings"
	"sync"
)

var codes = map[rune]byte{
	'B': '1', 'F': '1', 'P': '1', 'V': '1',
	'C': '2', 'G': '2', 'J': '2', 'K': '2', 'Q': '2', 'S': '2', 'X': '2', 'Z': '2',
	'D': '3', 'T': '3',
	'L': '4',
	'M': '5', 'N': '5',
	'R': '6',
}

// Code returns the four-character Soundex code of s.
//
// Non-letters are ignored. The first letter is kept verbatim. A letter whose
// code repeats the previous coded letter is dropped; vowels and H, W, Y carry
// no code and do not reset the previous one. Empty input returns "".
func Code(s string) string {
	var letters []rune
	for _, r := range strings.ToUpper(s) {
		if r >= 'A' && r <= 'Z' {
			letters = append(letters, r)
		}
	}
	if len(letters) == 0 {
		return ""
	}

	out := []byte{byte(letters[0])}
	prev := codes[letters[0]]
	for _, r := range letters[1:] {
		c, ok := codes[r]
		if !ok {
			continue
		}
		if c != prev {
			out = append(out, c)
		}
		prev = c
		if len(out) == 4 {
			break
		}
	}
	for len(out) < 4 {
		out = append(out, '0')
	}
	return string(out)
}

// Memo caches codes for the lifetime of one detection run.
type Memo struct {
	mu    sync.Mutex
	codes map[string]string
}

// NewMemo creates an empty memo
func NewMemo() *Memo {
	return &Memo{codes: make(map[string]string)}
}

// Code returns the memoized Soundex code of s.
func (m *Memo) Code(s string) string {
	if m == nil {
		return Code(s)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.codes[s]; ok {
		return c
	}
	c := Code(s)
	m.codes[s] = c
	return c
}

// Len returns the number of memoized inputs
func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.codes)
}
