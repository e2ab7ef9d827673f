package qr

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"time"

	"ms-gatepass/internal/models"

	"github.com/skip2/go-qrcode"
)

// BadgePayload is what a gate scanner recovers from the QR code
type BadgePayload struct {
	PassID    int64     `json:"pass_id"`
	Name      string    `json:"name"`
	DateStart time.Time `json:"date_start"`
	DateEnd   time.Time `json:"date_end"`
}

type QRGenerator struct {
	secret []byte
	size   int
}

func NewQRGenerator(secret string, size int) *QRGenerator {
	hashed := sha256.Sum256([]byte(secret))
	if size <= 0 {
		size = 256
	}
	return &QRGenerator{secret: hashed[:], size: size}
}

// GeneratePassQR renders a PNG whose content is the encrypted badge token
func (q *QRGenerator) GeneratePassQR(pass models.VisitorPass) ([]byte, error) {
	token, err := q.EncryptPass(pass)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(token, qrcode.Medium, q.size)
}

// EncryptPass returns the URL-safe base64 AES-GCM token for a pass
func (q *QRGenerator) EncryptPass(pass models.VisitorPass) (string, error) {
	data, err := json.Marshal(BadgePayload{
		PassID:    pass.ID,
		Name:      pass.Name,
		DateStart: pass.DateStart.UTC(),
		DateEnd:   pass.DateEnd.UTC(),
	})
	if err != nil {
		return "", err
	}

	gcm, err := q.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, data, nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// DecryptPass reverses EncryptPass and rejects tampered tokens
func (q *QRGenerator) DecryptPass(token string) (*BadgePayload, error) {
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, err
	}

	gcm, err := q.aead()
	if err != nil {
		return nil, err
	}
	if len(raw) < gcm.NonceSize() {
		return nil, errors.New("badge token too short")
	}

	nonce, ciphertext := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	data, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, err
	}

	var payload BadgePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (q *QRGenerator) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(q.secret)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
