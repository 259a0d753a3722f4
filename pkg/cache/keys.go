package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Keyer derives cache keys for the pipeline stages. Each key covers every
// input that influences the stage result, so a stale hit is impossible as
// long as the inputs hash differently.
type Keyer interface {
	// MelodyKey identifies an extracted melody: the input file content
	// plus the extraction options.
	MelodyKey(fileHash string, opts any) string

	// TranspositionKey identifies a transposition choice: the melody plus
	// the box configuration and search options.
	TranspositionKey(melodyHash string, box any, opts any) string

	// LayoutKey identifies a computed layout: the melody, the chosen
	// shift, the box and the page geometry.
	LayoutKey(melodyHash string, shift int, box any, geometry any) string
}

// DefaultKeyer hashes key components with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

func (DefaultKeyer) MelodyKey(fileHash string, opts any) string {
	return hashKey("melody", fileHash, opts)
}

func (DefaultKeyer) TranspositionKey(melodyHash string, box, opts any) string {
	return hashKey("transpose", melodyHash, box, opts)
}

func (DefaultKeyer) LayoutKey(melodyHash string, shift int, box, geometry any) string {
	return hashKey("layout", melodyHash, shift, box, geometry)
}

// hashKey generates a cache key by hashing the components.
// The key format is: prefix:hash(parts...)
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}

// Hash computes the SHA-256 hash of data as a 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
