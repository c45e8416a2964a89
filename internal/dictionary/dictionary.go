// Package dictionary provides the word-membership index used to judge
// submissions. The index is a prefix tree built once before first use and
// read-only afterwards, so concurrent lookups need no synchronization.
package dictionary

import (
	"bufio"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
)

// MinWordLength is the shortest word the contest accepts.
const MinWordLength = 3

type node struct {
	children map[byte]*node
	isWord   bool
}

func newNode() *node {
	return &node{children: make(map[byte]*node)}
}

// Dictionary answers word and prefix membership queries.
type Dictionary struct {
	root *node
	size int
}

// New builds a dictionary from a word list. Entries are trimmed and
// upper-cased; anything shorter than MinWordLength or containing
// non-alphabetic characters is dropped.
func New(words []string) *Dictionary {
	d := &Dictionary{root: newNode()}
	for _, w := range words {
		normalized := Normalize(w)
		if !IsNormalWord(normalized) {
			continue
		}
		d.insert(normalized)
	}
	log.Info().Int("words", d.size).Msg("built dictionary")
	return d
}

// FromReader builds a dictionary from newline-separated words.
func FromReader(r io.Reader) (*Dictionary, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		words = append(words, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return New(words), nil
}

// Normalize trims and upper-cases a candidate word.
func Normalize(word string) string {
	return strings.ToUpper(strings.TrimSpace(word))
}

// IsNormalWord reports whether an already-normalized word has the accepted
// shape: at least MinWordLength letters, A-Z only.
func IsNormalWord(word string) bool {
	if len(word) < MinWordLength {
		return false
	}
	for i := 0; i < len(word); i++ {
		if word[i] < 'A' || word[i] > 'Z' {
			return false
		}
	}
	return true
}

func (d *Dictionary) insert(word string) {
	n := d.root
	for i := 0; i < len(word); i++ {
		next, ok := n.children[word[i]]
		if !ok {
			next = newNode()
			n.children[word[i]] = next
		}
		n = next
	}
	if !n.isWord {
		n.isWord = true
		d.size++
	}
}

// Contains reports whether the word is a dictionary entry.
func (d *Dictionary) Contains(word string) bool {
	n := d.walk(Normalize(word))
	return n != nil && n.isWord
}

// HasPrefix reports whether any dictionary entry starts with the prefix.
func (d *Dictionary) HasPrefix(prefix string) bool {
	return d.walk(Normalize(prefix)) != nil
}

// Size returns the number of distinct entries.
func (d *Dictionary) Size() int {
	return d.size
}

func (d *Dictionary) walk(s string) *node {
	n := d.root
	for i := 0; i < len(s); i++ {
		next, ok := n.children[s[i]]
		if !ok {
			return nil
		}
		n = next
	}
	return n
}
