package domain

import "time"

// SecretCipher encrypts values at rest. Decrypt returns an error for
// values that were never encrypted; Secret.Reveal absorbs that case.
type SecretCipher interface {
	Encrypt(plain string) (string, error)
	Decrypt(stored string) (string, error)
}

// Secret wraps a stored credential. Reveal decrypts it and falls back
// to the stored value verbatim when decryption fails, so rows written
// before encryption was enabled keep working.
type Secret struct {
	stored string
	cipher SecretCipher
}

func NewSecret(stored string, cipher SecretCipher) Secret {
	return Secret{stored: stored, cipher: cipher}
}

func (s Secret) Reveal() string {
	if s.stored == "" {
		return ""
	}
	if s.cipher == nil {
		return s.stored
	}
	plain, err := s.cipher.Decrypt(s.stored)
	if err != nil {
		return s.stored
	}
	return plain
}

func (s Secret) IsSet() bool {
	return s.stored != ""
}

// Stored returns the at-rest representation for persistence.
func (s Secret) Stored() string {
	return s.stored
}

// Masked renders the secret for API responses: *** plus the last four
// characters of the revealed value.
func (s Secret) Masked() string {
	plain := s.Reveal()
	if plain == "" {
		return ""
	}
	if len(plain) <= 4 {
		return "***"
	}
	return "***" + plain[len(plain)-4:]
}

// IsMaskedValue reports whether an incoming settings field still holds
// a masked placeholder and must therefore keep the current secret.
func IsMaskedValue(v string) bool {
	return len(v) >= 3 && v[:3] == "***"
}

type Settings struct {
	LLMModel   string
	LLMBaseURL string
	LLMAPIKey  Secret

	EmbeddingModel      string
	EmbeddingBaseURL    string
	EmbeddingAPIKey     Secret
	EmbeddingDimensions int

	RerankerModel  string
	RerankerAPIKey Secret

	UpdatedAt time.Time
}
