package timeoff

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/warp/timee/generic"
)

// =============================================================================
// PENDING CONFIRMATION
// =============================================================================
// Submit computes everything the user sees before confirming. Confirm trusts
// it as-is, so the warnings persisted are exactly the warnings shown. A
// confirmation leaves the server either as a token or as a sealed payload;
// both are single-use and expire after ConfirmationTTL.

// ConfirmationTTL bounds how long a submitted request can wait for confirm.
const ConfirmationTTL = 10 * time.Minute

type PendingConfirmation struct {
	Token          string         `json:"token"`
	UserID         generic.UserID `json:"userId"`
	Username       string         `json:"username"`
	Type           RequestType    `json:"type"`
	Form           FormData       `json:"form"`
	Message        MessageData    `json:"message"`
	Warnings       []Warning      `json:"warnings"`
	RemainingAfter generic.Amount `json:"remainingAfter"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// ConfirmationStore keeps submitted requests server-side under a token and
// seals them for clients that round-trip the payload instead.
type ConfirmationStore struct {
	now    func() time.Time
	secret []byte
	cache  *generic.TTLCache[string, PendingConfirmation]
	spent  *generic.TTLCache[string, struct{}]
}

// NewConfirmationStore creates a store with a random sealing key. Payloads
// sealed by one store do not open in another.
func NewConfirmationStore(now func() time.Time) *ConfirmationStore {
	if now == nil {
		now = time.Now
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic(fmt.Sprintf("confirmation key: %v", err))
	}
	return &ConfirmationStore{
		now:    now,
		secret: secret,
		cache:  generic.NewTTLCache[string, PendingConfirmation](ConfirmationTTL, now),
		spent:  generic.NewTTLCache[string, struct{}](ConfirmationTTL, now),
	}
}

// Put assigns a fresh token to p and stores it.
func (s *ConfirmationStore) Put(p PendingConfirmation) PendingConfirmation {
	p.Token = uuid.NewString()
	s.cache.Set(p.Token, p)
	return p
}

// Take removes and returns the confirmation of token. A token can be taken
// once, whether by token or by its sealed payload; unknown and expired
// tokens yield ErrExpired.
func (s *ConfirmationStore) Take(token string) (PendingConfirmation, error) {
	p, ok := s.cache.Take(token)
	if !ok || !s.spent.SetIfAbsent(token, struct{}{}) {
		return PendingConfirmation{}, fmt.Errorf("confirmation %q: %w", token, generic.ErrExpired)
	}
	return p, nil
}

// Seal encodes p with a MAC so that Open can tell it was issued here
// unchanged.
func (s *ConfirmationStore) Seal(p PendingConfirmation) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	body := base64.RawURLEncoding.EncodeToString(b)
	return body + "." + base64.RawURLEncoding.EncodeToString(s.mac(body)), nil
}

// Open verifies and decodes a sealed payload. Tampered or malformed payloads
// yield ErrInvalidInput, stale ones ErrExpired. Open does not consume the
// payload; see Spend.
func (s *ConfirmationStore) Open(sealed string) (PendingConfirmation, error) {
	var p PendingConfirmation

	body, sig, ok := strings.Cut(sealed, ".")
	if !ok {
		return p, fmt.Errorf("%w: confirmation payload is not sealed", generic.ErrInvalidInput)
	}
	mac, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil || !hmac.Equal(mac, s.mac(body)) {
		return p, fmt.Errorf("%w: confirmation payload signature mismatch", generic.ErrInvalidInput)
	}
	b, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return p, fmt.Errorf("%w: confirmation payload: %v", generic.ErrInvalidInput, err)
	}
	if err := json.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("%w: confirmation payload: %v", generic.ErrInvalidInput, err)
	}
	if !p.Type.Valid() || p.UserID == "" || p.Token == "" {
		return p, fmt.Errorf("%w: confirmation payload is incomplete", generic.ErrInvalidInput)
	}
	if !s.now().Before(p.CreatedAt.Add(ConfirmationTTL)) {
		return p, fmt.Errorf("confirmation %q: %w", p.Token, generic.ErrExpired)
	}
	return p, nil
}

// Spend marks an opened payload as used. The second spend of the same
// request, by payload or by token, yields ErrExpired.
func (s *ConfirmationStore) Spend(p PendingConfirmation) error {
	if !s.spent.SetIfAbsent(p.Token, struct{}{}) {
		return fmt.Errorf("confirmation %q: %w", p.Token, generic.ErrExpired)
	}
	s.cache.Delete(p.Token)
	return nil
}

func (s *ConfirmationStore) mac(body string) []byte {
	m := hmac.New(sha256.New, s.secret)
	m.Write([]byte(body))
	return m.Sum(nil)
}
