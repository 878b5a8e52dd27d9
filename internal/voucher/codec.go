// Package voucher encodes voucher value and validity into short authenticated
// codes of the form Timo + 16 symbols, and decodes them back.
//
// A code carries 80 bits: a 3-bit key id, a 32-bit tag and 45 bits of
// encrypted body. The tag is a truncated HMAC-SHA256 over the key id and the
// plaintext body; the body is encrypted with a ChaCha20 keystream whose nonce
// is the tag (a synthetic-IV construction). A random nonce inside the body
// keeps two vouchers with the same value distinct.
package voucher

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/bits"
	"regexp"
	"time"

	"golang.org/x/crypto/chacha20"

	"tcoin-wallet/internal/util"
)

const (
	// Prefix starts every voucher code.
	Prefix = "Timo"
	// Alphabet has no 0, 1, O or I.
	Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	MinCodeSymbols = 6
	MaxCodeSymbols = 16

	keyIDBits      = 3
	tagBits        = 32
	bodyBits       = 45
	encodedSymbols = (keyIDBits + tagBits + bodyBits) / 5

	flagBits     = 2
	expBits      = 2
	widthBits    = 4
	dayBits      = 14
	spanBits     = 9
	minNonceBits = 8
)

var (
	codeGrammar = regexp.MustCompile(`^Timo[A-HJ-NP-Z2-9]{6,16}$`)
	encoding    = base32.NewEncoding(Alphabet).WithPadding(base32.NoPadding)

	// Day numbers in codes count from here.
	epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	pow10 = [4]int64{1, 10, 100, 1000}
)

// Payload is what a self-describing voucher carries. Encoded validity bounds
// must fall on 00:00 UTC; the window [ValidFrom, ValidUntil] is inclusive.
type Payload struct {
	TCoins     int64
	ValidFrom  *time.Time
	ValidUntil *time.Time
	Notes      string
}

// Codec encodes and decodes vouchers with the keys of a Keyring. It holds no
// mutable state and is safe for concurrent use.
type Codec struct {
	ring *Keyring
}

// NewCodec creates a Codec over ring.
func NewCodec(ring *Keyring) *Codec {
	return &Codec{ring: ring}
}

// ValidCode reports whether code matches the wire grammar Timo[A-Z2-9]{6,16}
// without ambiguous characters.
func ValidCode(code string) bool {
	return codeGrammar.MatchString(code)
}

// Fingerprint is the hex SHA-256 of a code, used as its exclusivity-marker key.
func Fingerprint(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// KeyID returns the key id stored in an encoded code without authenticating it.
func KeyID(code string) (uint8, error) {
	raw, err := rawBits(code)
	if err != nil {
		return 0, err
	}
	return raw[0] >> (8 - keyIDBits), nil
}

// CheckWindow reports whether now lies inside [from, until]. A nil bound is open.
func CheckWindow(from, until *time.Time, now time.Time) error {
	if from != nil && now.Before(*from) {
		return util.ErrCodeNotYetValid
	}
	if until != nil && now.After(*until) {
		return util.ErrCodeExpired
	}
	return nil
}

// Encode serializes p under the active key. Notes are never carried inside a
// code, so a payload with notes is util.ErrPayloadTooLarge. A bound that is
// not 00:00 UTC is util.ErrInvalidValidityWindow; it is never rounded.
func (c *Codec) Encode(p Payload) (string, error) {
	body, err := packBody(p)
	if err != nil {
		return "", err
	}

	id := c.ring.ActiveKeyID()
	key, _ := c.ring.lookup(id)

	tag := computeTag(key.mac, id, body)
	ct, err := applyKeystream(key.enc, tag, body)
	if err != nil {
		return "", err
	}

	ctBits, _ := newBitReader(ct, bodyBits).read(bodyBits)
	w := &bitWriter{}
	w.write(uint64(id), keyIDBits)
	w.write(uint64(tag), tagBits)
	w.write(ctBits, bodyBits)
	return Prefix + encoding.EncodeToString(w.bytes()), nil
}

// Decode authenticates and decrypts code. It has no side effects.
func (c *Codec) Decode(code string) (Payload, error) {
	raw, err := rawBits(code)
	if err != nil {
		return Payload{}, err
	}

	r := newBitReader(raw, keyIDBits+tagBits+bodyBits)
	idBits, _ := r.read(keyIDBits)
	tagVal, _ := r.read(tagBits)
	ctBits, _ := r.read(bodyBits)

	id := uint8(idBits)
	key, ok := c.ring.lookup(id)
	if !ok {
		return Payload{}, fmt.Errorf("%w: unknown key id %d", util.ErrAuthenticationFailed, id)
	}

	w := &bitWriter{}
	w.write(ctBits, bodyBits)
	body, err := applyKeystream(key.enc, uint32(tagVal), w.bytes())
	if err != nil {
		return Payload{}, err
	}

	expected := computeTag(key.mac, id, body)
	if subtle.ConstantTimeEq(int32(expected), int32(uint32(tagVal))) != 1 {
		return Payload{}, util.ErrAuthenticationFailed
	}

	p, err := unpackBody(body)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", util.ErrInvalidFormat, err)
	}
	return p, nil
}

// GenerateRandom returns a random code with n symbols after the prefix, for
// registered vouchers that do not encode their own payload.
func GenerateRandom(n int) (string, error) {
	if n < MinCodeSymbols || n > MaxCodeSymbols {
		return "", fmt.Errorf("%w: code length %d outside %d-%d", util.ErrInvalidInput, n, MinCodeSymbols, MaxCodeSymbols)
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate voucher code: %w", err)
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = Alphabet[b&31] // 256 is a multiple of 32, so no bias
	}
	return Prefix + string(out), nil
}

func rawBits(code string) ([]byte, error) {
	if len(code) != len(Prefix)+encodedSymbols || !ValidCode(code) {
		return nil, util.ErrInvalidFormat
	}
	raw, err := encoding.DecodeString(code[len(Prefix):])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrInvalidFormat, err)
	}
	return raw, nil
}

func computeTag(macKey []byte, id uint8, body []byte) uint32 {
	h := hmac.New(sha256.New, macKey)
	h.Write([]byte{id})
	h.Write(body)
	return binary.BigEndian.Uint32(h.Sum(nil))
}

// applyKeystream XORs body with a ChaCha20 keystream selected by tag. It is its own inverse.
func applyKeystream(encKey []byte, tag uint32, body []byte) ([]byte, error) {
	nonce := make([]byte, chacha20.NonceSize)
	binary.BigEndian.PutUint32(nonce, tag)
	stream, err := chacha20.NewUnauthenticatedCipher(encKey, nonce)
	if err != nil {
		return nil, fmt.Errorf("voucher cipher: %w", err)
	}
	out := make([]byte, len(body))
	stream.XORKeyStream(out, body)
	if pad := len(out)*8 - bodyBits; pad > 0 {
		out[len(out)-1] &= 0xFF << uint(pad)
	}
	return out, nil
}

// Body layout, MSB first:
//
//	has_from:1 has_until:1 exp:2 width:4 mantissa:width+1
//	[from_day:14] [until: span_days:9 when from is set, else until_day:14]
//	nonce: the remaining bits, at least 8
//
// tcoins = mantissa * 10^exp.
func packBody(p Payload) ([]byte, error) {
	if p.TCoins < 1 {
		return nil, util.ErrInvalidAmount
	}
	if p.Notes != "" {
		return nil, fmt.Errorf("%w: notes cannot be embedded in a code", util.ErrPayloadTooLarge)
	}

	exp, mantissa := splitAmount(p.TCoins)
	width := bits.Len64(uint64(mantissa))
	if width > 1<<widthBits {
		return nil, fmt.Errorf("%w: %d tcoins", util.ErrPayloadTooLarge, p.TCoins)
	}

	w := &bitWriter{}
	w.write(boolBit(p.ValidFrom != nil), 1)
	w.write(boolBit(p.ValidUntil != nil), 1)
	w.write(uint64(exp), expBits)
	w.write(uint64(width-1), widthBits)
	w.write(uint64(mantissa), width)

	var fromDay int64
	if p.ValidFrom != nil {
		d, err := dayNumber(*p.ValidFrom)
		if err != nil {
			return nil, err
		}
		fromDay = d
		w.write(uint64(d), dayBits)
	}
	if p.ValidUntil != nil {
		d, err := dayNumber(*p.ValidUntil)
		if err != nil {
			return nil, err
		}
		if p.ValidFrom != nil {
			span := d - fromDay
			if span < 0 {
				return nil, util.ErrInvalidValidityWindow
			}
			if span >= 1<<spanBits {
				return nil, fmt.Errorf("%w: validity window of %d days", util.ErrPayloadTooLarge, span+1)
			}
			w.write(uint64(span), spanBits)
		} else {
			w.write(uint64(d), dayBits)
		}
	}

	nonceBits := bodyBits - w.n
	if nonceBits < minNonceBits {
		return nil, fmt.Errorf("%w: %d bits left for the nonce", util.ErrPayloadTooLarge, nonceBits)
	}
	var nonce [8]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("voucher nonce: %w", err)
	}
	w.write(binary.BigEndian.Uint64(nonce[:])&(1<<uint(nonceBits)-1), nonceBits)
	return w.bytes(), nil
}

func unpackBody(body []byte) (Payload, error) {
	r := newBitReader(body, bodyBits)
	hasFrom, _ := r.read(1)
	hasUntil, _ := r.read(1)
	exp, _ := r.read(expBits)
	width, _ := r.read(widthBits)
	mantissa, err := r.read(int(width) + 1)
	if err != nil {
		return Payload{}, err
	}
	if mantissa == 0 {
		return Payload{}, fmt.Errorf("zero amount")
	}

	p := Payload{TCoins: int64(mantissa) * pow10[exp]}
	var fromDay uint64
	if hasFrom == 1 {
		if fromDay, err = r.read(dayBits); err != nil {
			return Payload{}, err
		}
		t := epoch.AddDate(0, 0, int(fromDay))
		p.ValidFrom = &t
	}
	if hasUntil == 1 {
		var untilDay uint64
		if hasFrom == 1 {
			span, err := r.read(spanBits)
			if err != nil {
				return Payload{}, err
			}
			untilDay = fromDay + span
		} else if untilDay, err = r.read(dayBits); err != nil {
			return Payload{}, err
		}
		t := epoch.AddDate(0, 0, int(untilDay))
		p.ValidUntil = &t
	}
	if r.remaining() < minNonceBits {
		return Payload{}, fmt.Errorf("nonce truncated")
	}
	return p, nil
}

// splitAmount picks the largest power of ten dividing tcoins, which keeps
// round amounts such as 500 or 3000 to a few mantissa bits.
func splitAmount(tcoins int64) (int, int64) {
	for exp := len(pow10) - 1; exp > 0; exp-- {
		if tcoins%pow10[exp] == 0 {
			return exp, tcoins / pow10[exp]
		}
	}
	return 0, tcoins
}

func dayNumber(t time.Time) (int64, error) {
	t = t.UTC()
	if !t.Equal(dayStart(t)) {
		return 0, fmt.Errorf("%w: %s is not 00:00 UTC", util.ErrInvalidValidityWindow, t.Format(time.RFC3339Nano))
	}
	if t.Before(epoch) {
		return 0, fmt.Errorf("%w: %s is before %s", util.ErrInvalidValidityWindow, t.Format(time.DateOnly), epoch.Format(time.DateOnly))
	}
	d := int64(t.Sub(epoch) / (24 * time.Hour))
	if d >= 1<<dayBits {
		return 0, fmt.Errorf("%w: date %s too far out", util.ErrPayloadTooLarge, t.Format(time.DateOnly))
	}
	return d, nil
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func boolBit(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
