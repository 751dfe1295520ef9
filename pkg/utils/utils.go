package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	StripDataURI(data string) string
	DecodeBase64(data string) ([]byte, error)
	DecodeBase64Lenient(data string) []byte
	NewStorageKey(prefix string, ext string, t time.Time) string
}

type utils struct{}

func New() IUtils {
	return &utils{}
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

var dataURIPrefix = regexp.MustCompile(`^data:(image|video)/(png|jpg|jpeg|webm|mp4|ogg);base64,`)

func (u *utils) StripDataURI(data string) string {
	return dataURIPrefix.ReplaceAllString(data, "")
}

func (u *utils) DecodeBase64(data string) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}
	return decoded, nil
}

// DecodeBase64Lenient decodes the way permissive runtimes do: characters
// outside the base64 alphabet are skipped and missing padding is tolerated,
// so any input yields some bytes instead of an error.
func (u *utils) DecodeBase64Lenient(data string) []byte {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '+', r == '/':
			return r
		}
		return -1
	}, data)

	if len(cleaned)%4 == 1 {
		cleaned = cleaned[:len(cleaned)-1]
	}

	decoded, err := base64.RawStdEncoding.DecodeString(cleaned)
	if err != nil {
		return nil
	}
	return decoded
}

const suffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewStorageKey builds keys like "videos/20250131-142501337-x4k2p.webm".
func (u *utils) NewStorageKey(prefix string, ext string, t time.Time) string {
	stamp := fmt.Sprintf("%s%03d", t.Format("20060102-150405"), t.Nanosecond()/int(time.Millisecond))

	suffix := make([]byte, 5)
	for i := range suffix {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(suffixAlphabet))))
		if err != nil {
			n = big.NewInt(int64(i))
		}
		suffix[i] = suffixAlphabet[n.Int64()]
	}

	return fmt.Sprintf("%s/%s-%s.%s", prefix, stamp, suffix, ext)
}
