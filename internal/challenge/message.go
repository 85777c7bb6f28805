package challenge

import (
	"bytes"
	"encoding/json"
	"strings"

	"golang.org/x/crypto/sha3"
)

// MessageType is the fixed type field of the signable message.
const MessageType = "Personal signature"

// Message is the canonical signable payload. The wallet UI signs the JSON
// serialization of exactly these fields in exactly this order, so field
// order here is load-bearing: it must produce the same bytes as the
// client's JSON.stringify.
type Message struct {
	Domain    string `json:"domain"`
	Address   string `json:"address"`
	ChainID   string `json:"chainId"`
	URI       string `json:"uri"`
	Version   string `json:"version"`
	Statement string `json:"statement"`
	Type      string `json:"type"`
	Nonce     string `json:"nonce"`
}

// Canonical serializes the message to the exact byte sequence the client
// is expected to have signed. HTML escaping is disabled because
// JSON.stringify does not escape & < >.
func (m Message) Canonical() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	// Encode appends a newline the client never signs.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ChecksumAddress renders a hex address in EIP-55 mixed-case form for
// display. Storage and comparison always use the lower-cased form.
func ChecksumAddress(address string) string {
	addr := strings.ToLower(strings.TrimPrefix(address, "0x"))

	hasher := sha3.NewLegacyKeccak256()
	hasher.Write([]byte(addr))
	hash := hasher.Sum(nil)

	out := make([]byte, len(addr))
	for i := 0; i < len(addr); i++ {
		c := addr[i]
		if c >= 'a' && c <= 'f' {
			nibble := hash[i/2]
			if i%2 == 0 {
				nibble >>= 4
			}
			if nibble&0x0f >= 8 {
				c -= 'a' - 'A'
			}
		}
		out[i] = c
	}
	return "0x" + string(out)
}
