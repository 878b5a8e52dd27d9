package voucher

import (
	"crypto/sha256"
	"fmt"
	"io"
	"sort"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// MaxKeyID is the largest key id that fits the 3-bit header.
	MaxKeyID = 1<<keyIDBits - 1

	pbkdf2Iterations = 390000
	masterKeyLen     = 32
)

type codecKey struct {
	mac []byte
	enc []byte
}

// Keyring holds every key that may decode a voucher and names the one that
// encodes new vouchers. Old keys stay in the ring after rotation so codes
// issued under them remain redeemable.
type Keyring struct {
	keys   map[uint8]codecKey
	active uint8
}

// DeriveMasterKey stretches an operator passphrase into a 32-byte master key
// with PBKDF2-HMAC-SHA256.
func DeriveMasterKey(passphrase, salt string) []byte {
	return pbkdf2.Key([]byte(passphrase), []byte(salt), pbkdf2Iterations, masterKeyLen, sha256.New)
}

// NewKeyring builds a keyring from master keys indexed by key id.
func NewKeyring(active uint8, masters map[uint8][]byte) (*Keyring, error) {
	if len(masters) == 0 {
		return nil, fmt.Errorf("keyring: no keys")
	}
	ring := &Keyring{keys: make(map[uint8]codecKey, len(masters)), active: active}
	for id, master := range masters {
		if id > MaxKeyID {
			return nil, fmt.Errorf("keyring: key id %d out of range 0-%d", id, MaxKeyID)
		}
		if len(master) < 16 {
			return nil, fmt.Errorf("keyring: key %d is shorter than 16 bytes", id)
		}
		k, err := expandKey(id, master)
		if err != nil {
			return nil, err
		}
		ring.keys[id] = k
	}
	if _, ok := ring.keys[active]; !ok {
		return nil, fmt.Errorf("keyring: active key %d not present", active)
	}
	return ring, nil
}

func expandKey(id uint8, master []byte) (codecKey, error) {
	info := []byte{'t', 'i', 'm', 'o', id}
	r := hkdf.New(sha256.New, master, nil, info)
	k := codecKey{mac: make([]byte, 32), enc: make([]byte, 32)}
	if _, err := io.ReadFull(r, k.mac); err != nil {
		return codecKey{}, fmt.Errorf("keyring: derive mac key %d: %w", id, err)
	}
	if _, err := io.ReadFull(r, k.enc); err != nil {
		return codecKey{}, fmt.Errorf("keyring: derive enc key %d: %w", id, err)
	}
	return k, nil
}

// ActiveKeyID is the id new vouchers are encoded under.
func (k *Keyring) ActiveKeyID() uint8 { return k.active }

// KeyIDs lists configured key ids in ascending order.
func (k *Keyring) KeyIDs() []uint8 {
	ids := make([]uint8, 0, len(k.keys))
	for id := range k.keys {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (k *Keyring) lookup(id uint8) (codecKey, bool) {
	key, ok := k.keys[id]
	return key, ok
}
