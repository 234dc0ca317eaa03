package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

type License string

const (
	LicenseLiberationV1 License = "liberation_v1"
	LicenseCCBY         License = "cc_by"
	LicenseCCBYSA       License = "cc_by_sa"
	LicenseCCBYNC       License = "cc_by_nc"
	LicenseCCBYNCSA     License = "cc_by_nc_sa"
	LicenseAllRights    License = "all_rights_reserved"
	LicensePublicDomain License = "public_domain"
)

var knownLicenses = map[License]bool{
	LicenseLiberationV1: true,
	LicenseCCBY:         true,
	LicenseCCBYSA:       true,
	LicenseCCBYNC:       true,
	LicenseCCBYNCSA:     true,
	LicenseAllRights:    true,
	LicensePublicDomain: true,
}

func ValidateLicense(license License) error {
	if !knownLicenses[license] {
		return ErrInvalidLicense
	}
	return nil
}

type LedgerSyncState string

const (
	LedgerSyncPending   LedgerSyncState = "pending"
	LedgerSyncConfirmed LedgerSyncState = "confirmed"
	LedgerSyncFailed    LedgerSyncState = "failed"
)

const contentHashPrefix = "sha256:"

// ComputeContentHash derives the canonical content address for a work.
// Only the digest is ever stored, never the content itself.
func ComputeContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return contentHashPrefix + hex.EncodeToString(sum[:])
}

// ValidateContentHash enforces the sha256:<64 hex> format (71 chars total).
func ValidateContentHash(hash string) error {
	if !strings.HasPrefix(hash, contentHashPrefix) || len(hash) != len(contentHashPrefix)+64 {
		return ErrInvalidContentHash
	}
	for _, r := range hash[len(contentHashPrefix):] {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		default:
			return ErrInvalidContentHash
		}
	}
	return nil
}

// PlatformAttestation carries the optional platform-side evidence supplied at
// registration. It supports a timestamp correlation check only, not
// cryptographic proof of authorship.
type PlatformAttestation struct {
	ContentID   string
	URL         string
	PublishDate *time.Time
}

// ContentOwnership is the authoritative local record of a registered work.
// The owner is mutated only through a Transfer.
type ContentOwnership struct {
	ID              string
	ContentHash     string
	OwnerID         string
	OwnerKey        string
	License         License
	Title           string
	WordCount       int
	RegisteredAt    time.Time
	Attestation     PlatformAttestation
	LedgerSyncState LedgerSyncState
	LedgerTxRef     string
	CreatedAt       time.Time
}

// OwnershipTransfer is the append-only audit trail of record. Rows are never
// updated or deleted.
type OwnershipTransfer struct {
	ID           string
	ContentHash  string
	FromIdentity string
	ToIdentity   string
	Reason       string
	BrokerDomain string
	CreatedAt    time.Time
}
