// Package jwt emite y valida los bearer tokens de acceso (HS256).
//
// No existe revocación: un token vale hasta su exp (más el leeway). Para
// invalidación más rápida hay que acortar el TTL.
package jwt

import (
	"errors"
	"strings"
	"time"

	"github.com/dropDatabas3/gatekeeper/internal/domain/types"
	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMalformed        = errors.New("token: malformed")
	ErrSignatureInvalid = errors.New("token: signature invalid")
	ErrExpired          = errors.New("token: expired")
	ErrMissingSecret    = errors.New("token: signing secret is required")
)

// DefaultLeeway es la tolerancia de reloj aplicada a exp/nbf/iat.
const DefaultLeeway = 30 * time.Second

type Config struct {
	Issuer string
	Secret string
	TTL    time.Duration
	Leeway time.Duration
	// Now reemplaza el reloj (tests). Nil = time.Now.
	Now func() time.Time
}

// Token es el bearer emitido al cliente.
type Token struct {
	Value     string    `json:"access_token"`
	Type      string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Claims es la vista validada de un token.
type Claims struct {
	UserID    string
	Role      string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type accessClaims struct {
	Role string `json:"role"`
	jwtv5.RegisteredClaims
}

type Service struct {
	secret []byte
	issuer string
	ttl    time.Duration
	leeway time.Duration
	now    func() time.Time
}

func NewService(cfg Config) (*Service, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, ErrMissingSecret
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	if cfg.Leeway <= 0 {
		cfg.Leeway = DefaultLeeway
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
		leeway: cfg.Leeway,
		now:    cfg.Now,
	}, nil
}

// TTL retorna la vida útil de los tokens emitidos.
func (s *Service) TTL() time.Duration { return s.ttl }

// Issue firma un token con el id y el rol actual del usuario.
func (s *Service) Issue(u types.User) (Token, error) {
	if u.ID == "" || u.Role == "" {
		return Token{}, errors.New("token: user id and role are required")
	}
	now := s.now().UTC().Truncate(time.Second)
	exp := now.Add(s.ttl)

	claims := accessClaims{
		Role: u.Role,
		RegisteredClaims: jwtv5.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   u.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwtv5.NewNumericDate(now),
			NotBefore: jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(exp),
		},
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	tk.Header["typ"] = "JWT"

	signed, err := tk.SignedString(s.secret)
	if err != nil {
		return Token{}, err
	}
	return Token{Value: signed, Type: "Bearer", ExpiresAt: exp}, nil
}

// Validate verifica firma, algoritmo, issuer y ventana temporal.
func (s *Service) Validate(raw string) (Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Claims{}, ErrMalformed
	}
	opts := []jwtv5.ParserOption{
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
		jwtv5.WithLeeway(s.leeway),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithIssuedAt(),
		jwtv5.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwtv5.WithIssuer(s.issuer))
	}

	var ac accessClaims
	_, err := jwtv5.ParseWithClaims(raw, &ac, func(*jwtv5.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return Claims{}, classify(err)
	}
	if ac.Subject == "" || ac.Role == "" || ac.IssuedAt == nil {
		return Claims{}, ErrMalformed
	}
	return Claims{
		UserID:    ac.Subject,
		Role:      ac.Role,
		TokenID:   ac.ID,
		IssuedAt:  ac.IssuedAt.Time,
		ExpiresAt: ac.ExpiresAt.Time,
	}, nil
}

// classify traduce errores de jwtv5 a la taxonomía del paquete. La firma se
// chequea antes que los claims temporales, así que un token expirado con
// firma inválida reporta ErrSignatureInvalid.
func classify(err error) error {
	switch {
	case errors.Is(err, jwtv5.ErrTokenSignatureInvalid), errors.Is(err, jwtv5.ErrTokenUnverifiable):
		return ErrSignatureInvalid
	case errors.Is(err, jwtv5.ErrTokenExpired), errors.Is(err, jwtv5.ErrTokenNotValidYet), errors.Is(err, jwtv5.ErrTokenUsedBeforeIssued):
		return ErrExpired
	default:
		return ErrMalformed
	}
}
