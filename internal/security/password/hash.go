package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

type Params struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	KeyLen      uint32
}

var Default = Params{Memory: 64 * 1024, Time: 3, Parallelism: 1, KeyLen: 32}

var ErrEmptyPassword = errors.New("empty password")

// Hash devuelve un PHC string: $argon2id$v=19$m=...,t=...,p=...$<saltB64>$<dkB64>
func Hash(p Params, plain string) (string, error) {
	if plain == "" {
		return "", ErrEmptyPassword
	}
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	dk := argon2.IDKey([]byte(plain), salt, p.Time, p.Memory, p.Parallelism, p.KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(dk),
	), nil
}

// Verify compara en tiempo constante. Acepta argon2id (PHC) y bcrypt
// ($2a$/$2b$/$2y$, hashes heredados). Cualquier formato desconocido es false.
func Verify(plain, encoded string) bool {
	switch {
	case strings.HasPrefix(encoded, "$argon2id$"):
		return verifyArgon2id(plain, encoded)
	case strings.HasPrefix(encoded, "$2a$"), strings.HasPrefix(encoded, "$2b$"), strings.HasPrefix(encoded, "$2y$"):
		return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(plain)) == nil
	default:
		return false
	}
}

// NeedsRehash indica si el hash no es argon2id con los parámetros dados.
func NeedsRehash(p Params, encoded string) bool {
	ph, err := parsePHC(encoded)
	if err != nil {
		return true
	}
	return ph.params.Memory != p.Memory || ph.params.Time != p.Time ||
		ph.params.Parallelism != p.Parallelism || uint32(len(ph.dk)) != p.KeyLen
}

var (
	dummyOnce sync.Once
	dummy     string
)

// Dummy retorna un hash válido para comparar cuando el usuario no existe,
// así el tiempo de respuesta no revela si el email está registrado.
func Dummy() string {
	dummyOnce.Do(func() {
		dummy, _ = Hash(Default, "not-a-real-password")
	})
	return dummy
}

type phc struct {
	params Params
	salt   []byte
	dk     []byte
}

func parsePHC(s string) (phc, error) {
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, dk
	parts := strings.Split(s, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return phc{}, errors.New("password: not an argon2id PHC string")
	}
	var v int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &v); err != nil || v != argon2.Version {
		return phc{}, errors.New("password: unsupported argon2 version")
	}
	var m, t uint32
	var p uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &m, &t, &p); err != nil {
		return phc{}, fmt.Errorf("password: bad params: %w", err)
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return phc{}, err
	}
	dk, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(dk) == 0 {
		return phc{}, errors.New("password: bad derived key")
	}
	return phc{params: Params{Memory: m, Time: t, Parallelism: p, KeyLen: uint32(len(dk))}, salt: salt, dk: dk}, nil
}

func verifyArgon2id(plain, encoded string) bool {
	ph, err := parsePHC(encoded)
	if err != nil {
		return false
	}
	key := argon2.IDKey([]byte(plain), ph.salt, ph.params.Time, ph.params.Memory, ph.params.Parallelism, ph.params.KeyLen)
	return subtle.ConstantTimeCompare(key, ph.dk) == 1
}
