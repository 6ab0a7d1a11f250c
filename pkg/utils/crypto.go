package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// EnvelopeDelimiter 密文信封分隔符
// 落库格式为 base64(密文)::base64(nonce)，判断字段是否已加密就看有没有这个分隔符
const EnvelopeDelimiter = "::"

// ErrMalformedEnvelope 存储值不符合信封格式
var ErrMalformedEnvelope = errors.New("malformed ciphertext envelope")

// DeriveKey 由任意长度的密钥素材派生 32 字节 AES-256 密钥
func DeriveKey(material string) []byte {
	sum := sha256.Sum256([]byte(material))
	return sum[:]
}

// EncryptString 用 AES-GCM 加密字符串，返回信封格式 base64(密文)::base64(nonce)
// 每次加密生成新的 12 字节随机 nonce
func EncryptString(plaintext string, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	ciphertext := aesgcm.Seal(nil, nonce, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(ciphertext) +
		EnvelopeDelimiter +
		base64.StdEncoding.EncodeToString(nonce), nil
}

// DecryptString 解开 EncryptString 产出的信封
// 格式不对或密钥不匹配都返回错误，由调用方决定如何上报
func DecryptString(envelope string, key []byte) (string, error) {
	parts := strings.SplitN(envelope, EnvelopeDelimiter, 2)
	if len(parts) != 2 {
		return "", ErrMalformedEnvelope
	}

	ciphertext, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	nonce, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	if len(nonce) != aesgcm.NonceSize() {
		return "", ErrMalformedEnvelope
	}

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}

// IsEncrypted 判断值是否已经是信封格式，防止二次加密
func IsEncrypted(value string) bool {
	return strings.Contains(value, EnvelopeDelimiter)
}
