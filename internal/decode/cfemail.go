package decode

import "strconv"

// decodeCFEmail reverses the Cloudflare email-protection encoding: the
// payload is hex, the first byte is a symmetric XOR key for the rest.
func decodeCFEmail(encoded string) string {
	if len(encoded) < 4 || len(encoded)%2 != 0 {
		return ""
	}
	key, err := strconv.ParseUint(encoded[:2], 16, 8)
	if err != nil {
		return ""
	}
	decoded := make([]byte, 0, len(encoded)/2-1)
	for i := 2; i < len(encoded); i += 2 {
		b, err := strconv.ParseUint(encoded[i:i+2], 16, 8)
		if err != nil {
			return ""
		}
		decoded = append(decoded, byte(b)^byte(key))
	}
	return string(decoded)
}
