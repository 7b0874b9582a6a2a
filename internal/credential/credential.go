// Package credential builds and parses the verifiable credentials this
// system produces and consumes: StatusCredential (input, an issuer's
// opinion on a snap), TrustScoreCredential (output, a computed score),
// and Manifest (bundle metadata). Every outgoing credential is
// canonicalised with JCS and hashed with Keccak-256 before its id is
// set, per spec.md §4.2.5.
package credential

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// ErrParse is returned when a StatusCredential JSON payload is malformed
// or carries an unrecognized type/currentStatus.
var ErrParse = errors.New("credential: malformed or unrecognized credential")

// typeSet unmarshals a JSON-LD "type" field that may be written either as
// a bare string (the original's StatusCredential wire form, compared as a
// scalar) or as an array (TrustScoreCredential's wire form).
type typeSet []string

func (t *typeSet) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*t = []string{single}
		return nil
	}
	var multi []string
	if err := json.Unmarshal(data, &multi); err != nil {
		return err
	}
	*t = multi
	return nil
}

// StatusCredential carries an issuer's opinion about a snap.
type StatusCredential struct {
	Type              typeSet `json:"type"`
	Issuer            string  `json:"issuer"`
	CredentialSubject struct {
		ID            string `json:"id"`
		CurrentStatus string `json:"currentStatus"`
	} `json:"credentialSubject"`
}

// Opinion is the numeric value a parsed StatusCredential resolves to.
type Opinion float64

const (
	OpinionEndorsed Opinion = 1.0
	OpinionDisputed Opinion = 0.0
)

// ParseStatusCredential parses raw as a StatusCredential and resolves its
// currentStatus to a numeric opinion. Any type other than
// "StatusCredential", or any currentStatus other than Endorsed/Disputed,
// is ErrParse — the caller logs a per-entry warning and discards it.
func ParseStatusCredential(raw []byte) (StatusCredential, Opinion, error) {
	var sc StatusCredential
	if err := json.Unmarshal(raw, &sc); err != nil {
		return StatusCredential{}, 0, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if !hasType(sc.Type, "StatusCredential") {
		return StatusCredential{}, 0, fmt.Errorf("%w: type %v", ErrParse, sc.Type)
	}
	switch sc.CredentialSubject.CurrentStatus {
	case "Endorsed":
		return sc, OpinionEndorsed, nil
	case "Disputed":
		return sc, OpinionDisputed, nil
	default:
		return StatusCredential{}, 0, fmt.Errorf("%w: currentStatus %q", ErrParse, sc.CredentialSubject.CurrentStatus)
	}
}

func hasType(types []string, want string) bool {
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}

// TrustScore is the value/confidence pair inside a TrustScoreCredential's
// subject. Confidence is omitted (nil) for EigenTrust-typed credentials.
type TrustScore struct {
	Value      float64  `json:"value"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// TrustScoreCredential is a computed, published score for one subject DID.
type TrustScoreCredential struct {
	Context           []string `json:"@context"`
	ID                string   `json:"id"`
	Type              []string `json:"type"`
	Issuer            string   `json:"issuer"`
	IssuanceDate      string   `json:"issuanceDate"`
	CredentialSubject struct {
		ID             string     `json:"id"`
		TrustScoreType string     `json:"trustScoreType"`
		TrustScore     TrustScore `json:"trustScore"`
	} `json:"credentialSubject"`
	Proof map[string]interface{} `json:"proof"`
}

const (
	TrustScoreTypeEigenTrust                 = "EigenTrust"
	TrustScoreTypeIssuerTrustWeightedAverage = "IssuerTrustWeightedAverage"
)

// NewTrustScoreCredential builds, canonicalises, hashes, and seals a
// TrustScoreCredential: JCS-canonicalise the id-less body, Keccak-256 it,
// set id to "0x"+hex(hash), then re-serialise without rehashing.
func NewTrustScoreCredential(issuer, subjectDID, issuanceDate, scoreType string, value float64, confidence *float64) (TrustScoreCredential, []byte, error) {
	vc := TrustScoreCredential{
		Context:      []string{"https://www.w3.org/2018/credentials/v1"},
		Type:         []string{"VerifiableCredential", "TrustScoreCredential"},
		Issuer:       issuer,
		IssuanceDate: issuanceDate,
		Proof:        map[string]interface{}{},
	}
	vc.CredentialSubject.ID = subjectDID
	vc.CredentialSubject.TrustScoreType = scoreType
	vc.CredentialSubject.TrustScore = TrustScore{Value: value, Confidence: confidence}

	sealed, raw, err := seal(vc, func(v TrustScoreCredential, id string) TrustScoreCredential {
		v.ID = id
		return v
	})
	if err != nil {
		return TrustScoreCredential{}, nil, err
	}
	return sealed, raw, nil
}

// Manifest is the bundle-level metadata credential.
type Manifest struct {
	ID           string                  `json:"id,omitempty"`
	Issuer       string                  `json:"issuer"`
	IssuanceDate string                  `json:"issuanceDate"`
	Locations    []string                `json:"locations,omitempty"`
	Proof        map[string]interface{} `json:"proof"`
}

// NewManifest builds, canonicalises, hashes, and seals a Manifest.
func NewManifest(issuer, issuanceDate string, locations []string) (Manifest, []byte, error) {
	m := Manifest{
		Issuer:       issuer,
		IssuanceDate: issuanceDate,
		Locations:    locations,
		Proof:        map[string]interface{}{},
	}
	sealed, raw, err := seal(m, func(v Manifest, id string) Manifest {
		v.ID = id
		return v
	})
	if err != nil {
		return Manifest{}, nil, err
	}
	return sealed, raw, nil
}

// seal marshals v (with no id set), JCS-canonicalises it, hashes it with
// Keccak-256, sets the id via setID, and re-serialises the sealed value
// without rehashing — the generic core of spec.md §4.2.5's sealing step.
func seal[T any](v T, setID func(T, string) T) (T, []byte, error) {
	var zero T
	body, err := json.Marshal(v)
	if err != nil {
		return zero, nil, fmt.Errorf("credential: marshal: %w", err)
	}
	canon, err := canonicalizeJSON(body)
	if err != nil {
		return zero, nil, fmt.Errorf("credential: canonicalize: %w", err)
	}
	d := sha3.NewLegacyKeccak256()
	d.Write(canon)
	hash := d.Sum(nil)
	id := "0x" + hex.EncodeToString(hash)
	sealed := setID(v, id)
	raw, err := json.Marshal(sealed)
	if err != nil {
		return zero, nil, fmt.Errorf("credential: re-marshal sealed: %w", err)
	}
	return sealed, raw, nil
}
