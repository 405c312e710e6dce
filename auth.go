package oracle

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"
)

// AuthenticationMode is the bit-field combining a small set of role
// bits with fixed mask bits describing the logon itself.
type AuthenticationMode uint32

const (
	AuthDefault AuthenticationMode = 1 << iota
	AuthPrelim
	AuthSysASM
	AuthSysBKP
	AuthSysDBA
	AuthSysDGD
	AuthSysKMT
	AuthSysOPER
	AuthSysRAC
)

const (
	authMaskLogon          AuthenticationMode = 0x0001
	authMaskChangePassword AuthenticationMode = 0x0002
	authMaskSysDBA         AuthenticationMode = 0x0020
	authMaskSysOper        AuthenticationMode = 0x0040
	authMaskPrelim         AuthenticationMode = 0x0080
	authMaskWithPassword   AuthenticationMode = 0x0100
	authMaskSysASM         AuthenticationMode = 0x00400000
	authMaskSysBKP         AuthenticationMode = 0x00800000
	authMaskSysDGD         AuthenticationMode = 0x01000000
	authMaskSysKMT         AuthenticationMode = 0x02000000
	authMaskSysRAC         AuthenticationMode = 0x04000000
	authMaskIAMToken       AuthenticationMode = 0x20000000
)

// VerifierType distinguishes the password-verifier scheme the server
// offers in authentication phase one.
type VerifierType int

const (
	Verifier11G1 VerifierType = iota
	Verifier11G2
	Verifier12C
)

// Credential abstracts over the ways a caller may authenticate,
// since IAM tokens and OS-auth variants are both selected from
// AuthenticationMode bits. This file provides password, IAM-token and
// OS-authenticated implementations; the logon dialogue only asks them
// for the mode bits and the phase-two wire bytes.
type Credential interface {
	// Mode returns the authentication mode bits this credential implies.
	Mode() AuthenticationMode
	// EncryptedPassword returns the phase-two ciphertext given the
	// session key derived from the server's nonce material.
	EncryptedPassword(sessionKey []byte) ([]byte, error)
}

// PasswordCredential is a conventional username/password logon.
type PasswordCredential struct {
	Username string
	Password string
}

func (c *PasswordCredential) Mode() AuthenticationMode { return AuthDefault }

func (c *PasswordCredential) EncryptedPassword(sessionKey []byte) ([]byte, error) {
	return aesCBCEncrypt(sessionKey, []byte(c.Password))
}

// IAMTokenCredential authenticates using an Oracle Cloud IAM token
// instead of a database password.
type IAMTokenCredential struct {
	Token string
}

func (c *IAMTokenCredential) Mode() AuthenticationMode { return authMaskIAMToken }

func (c *IAMTokenCredential) EncryptedPassword(sessionKey []byte) ([]byte, error) {
	return aesCBCEncrypt(sessionKey, []byte(c.Token))
}

// OSAuthenticatedCredential relies on the OS user identity; no password
// material is sent.
type OSAuthenticatedCredential struct{}

func (c *OSAuthenticatedCredential) Mode() AuthenticationMode { return AuthDefault }

func (c *OSAuthenticatedCredential) EncryptedPassword(sessionKey []byte) ([]byte, error) {
	return nil, nil
}

// authVerifierParams is the material phase one's PARAMETER message
// hands back: the server's nonce/salt and verifier type selector.
type authVerifierParams struct {
	Type      VerifierType
	Salt      []byte
	Nonce     []byte
	SessionID uint32
	SerialNum uint32
}

// deriveSessionKey12c computes the AES session key for the 12c verifier:
// PBKDF2-SHA2-224 over the password and salt yields the speedy key, then
// AES-CBC (IV=0) decrypts the server's nonce with it. 11g verifiers use a
// simpler SHA-1-derived key; only the 12c path is modeled in depth here.
func deriveSessionKey12c(password string, params authVerifierParams) ([]byte, error) {
	const iterations = 4096
	const keyLen = 32
	speedyKey := pbkdf2.Key([]byte(password), params.Salt, iterations, keyLen, sha256.New224)
	zeroIV := make([]byte, aes.BlockSize)
	return aesCBCDecrypt(speedyKey, zeroIV, params.Nonce)
}

func aesCBCEncrypt(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(padKey(key))
	if err != nil {
		return nil, newError(KindConnection, "aes cipher: %v", err)
	}
	padded := pkcs5Pad(plaintext, aes.BlockSize)
	iv := make([]byte, aes.BlockSize) // IV=0, matching the server verifier
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

func aesCBCDecrypt(key, iv, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(padKey(key))
	if err != nil {
		return nil, newError(KindConnection, "aes cipher: %v", err)
	}
	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, newError(KindConnection, "ciphertext not block aligned")
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return out, nil
}

// padKey right-pads/truncates to a valid AES key size (16/24/32 bytes).
func padKey(key []byte) []byte {
	switch {
	case len(key) >= 32:
		return key[:32]
	case len(key) >= 24:
		return key[:24]
	case len(key) >= 16:
		return key[:16]
	default:
		out := make([]byte, 16)
		copy(out, key)
		return out
	}
}

func pkcs5Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

func randomNonce(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}
