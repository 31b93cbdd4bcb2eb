package source

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 16
	nonceSize  = 16
	tagSize    = 16
	kdfRounds  = 100000
	keyLength  = 32
	headerSize = saltSize + nonceSize + tagSize
)

// Encrypted AES-256-GCM 加密的导出文件
// 文件格式: salt(16) + nonce(16) + tag(16) + ciphertext
type Encrypted struct {
	Path     string
	Password string
}

func (e Encrypted) FetchRawText(ctx context.Context) (string, error) {
	plaintext, err := DecryptFile(e.Path, e.Password)
	if err != nil {
		return "", err
	}
	text := strings.TrimPrefix(string(plaintext), "\ufeff")

	// 清除内存中的明文
	for i := range plaintext {
		plaintext[i] = 0
	}
	return text, nil
}

func (e Encrypted) Kind() Kind { return KindExport }

// DecryptFile 解密 AES-256-GCM 加密的文件
func DecryptFile(path string, password string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return Decrypt(data, password)
}

// Decrypt 解密 salt+nonce+tag+ciphertext 格式的数据
func Decrypt(data []byte, password string) ([]byte, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("file too small")
	}

	salt := data[:saltSize]
	nonce := data[saltSize : saltSize+nonceSize]
	tag := data[saltSize+nonceSize : headerSize]
	ciphertext := data[headerSize:]

	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}

	// GCM 的 decrypt 需要 ciphertext+tag 拼在一起
	ciphertextWithTag := make([]byte, 0, len(ciphertext)+tagSize)
	ciphertextWithTag = append(ciphertextWithTag, ciphertext...)
	ciphertextWithTag = append(ciphertextWithTag, tag...)
	plaintext, err := gcm.Open(nil, nonce, ciphertextWithTag, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}

	return plaintext, nil
}

// Encrypt 生成 Decrypt 能读取的数据，用于把导出文件加密存放
func Encrypt(plaintext []byte, password string) ([]byte, error) {
	salt := make([]byte, saltSize)
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("read salt: %w", err)
	}
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}

	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	ciphertext, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	out := make([]byte, 0, headerSize+len(ciphertext))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, tag...)
	out = append(out, ciphertext...)
	return out, nil
}

func newGCM(password string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(password), salt, kdfRounds, keyLength, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}

	gcm, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return gcm, nil
}
