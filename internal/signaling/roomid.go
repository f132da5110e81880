package signaling

import (
	"crypto/rand"
	"log"
	"math/big"
)

// Words used for the readable half of a room id.
var roomWords = []string{
	"otter", "panda", "koala", "fox", "robin", "toucan", "narwhal", "penguin", "beaver", "falcon",
	"maple", "willow", "ember", "meadow", "breeze", "pebble", "comet", "orbit", "nebula", "canyon",
	"waffle", "ramen", "curry", "taco", "dumpling", "biscuit", "toffee", "cocoa", "hazel", "pepper",
	"lantern", "rocket", "sprout", "marble", "glimmer", "puddle", "button", "thimble", "ridge", "echo",
}

const (
	suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	suffixLength   = 4
)

// IDGenerator returns a fresh room id. exists reports whether an id is
// already taken; generators must keep trying until it returns false.
type IDGenerator func(exists func(id string) bool) string

// NewIDGenerator builds the default room id generator.
// Format: prefix-xxxx (e.g. "assma-ab12"). An empty prefix picks a random word
// per id (e.g. "otter-7k3q").
func NewIDGenerator(prefix string) IDGenerator {
	return func(exists func(string) bool) string {
		for {
			word := prefix
			if word == "" {
				word = roomWords[randomIndex(len(roomWords))]
			}

			suffix := make([]byte, suffixLength)
			for i := range suffix {
				suffix[i] = suffixAlphabet[randomIndex(len(suffixAlphabet))]
			}

			id := word + "-" + string(suffix)
			if !exists(id) {
				return id
			}
		}
	}
}

// randomIndex returns a cryptographically secure random index for a slice of given length.
func randomIndex(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		log.Panic("Failed to generate random index:", err)
	}
	return int(n.Int64())
}
