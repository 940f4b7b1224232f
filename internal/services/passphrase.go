package services

import (
	"fmt"
	"math/rand"
)

// Word lists for user codes. Small on purpose: codes are meant to be read
// over the phone, collisions are handled by the retry loop in
// GenerateUserCode.
var (
	passphraseAdjectives = []string{
		"red", "blue", "green", "yellow", "purple", "orange", "pink", "brown",
		"big", "small", "tiny", "huge", "fast", "slow", "quick", "swift",
		"hot", "cold", "warm", "cool", "new", "old", "happy", "calm",
		"bright", "dark", "soft", "loud", "quiet", "super", "nice", "kind",
	}
	passphraseNouns = []string{
		"cat", "dog", "bird", "fish", "mouse", "rabbit", "turtle", "horse",
		"tree", "flower", "sun", "moon", "star", "cloud", "rock", "river",
		"car", "bike", "boat", "book", "desk", "phone", "clock", "key",
		"apple", "pizza", "cake", "coffee", "robot", "button", "app",
	}
)

func newPassphrase() string {
	adj := passphraseAdjectives[rand.Intn(len(passphraseAdjectives))]
	noun := passphraseNouns[rand.Intn(len(passphraseNouns))]
	return fmt.Sprintf("%s-%s-%d", adj, noun, rand.Intn(10))
}
