package proof

import (
	"fmt"
	"strings"
	"time"
)

// Metadata is the descriptive part of a bundle. It ends up in the summary only.
type Metadata struct {
	CreatedAt               time.Time
	SignaturePath           string
	EncryptedSigPath        string
	CounterpartyKeyPath     string
	LocalKeyFingerprint     string
	CounterpartyFingerprint string
}

// Bundle is a complete proof: the commit id, its signature, the encrypted
// signature and a human readable summary. A Bundle with any empty part is
// never produced by AssembleBundle.
type Bundle struct {
	CommitID           string
	Signature          []byte
	EncryptedSignature string
	Summary            string
}

// AssembleBundle groups already computed parts into a Bundle. It performs no
// cryptographic work.
func AssembleBundle(commitID string, sig []byte, encryptedSig string, meta Metadata) (Bundle, error) {
	switch {
	case commitID == "":
		return Bundle{}, fmt.Errorf("%w: commit identifier", ErrIncompleteBundle)
	case len(sig) == 0:
		return Bundle{}, fmt.Errorf("%w: signature", ErrIncompleteBundle)
	case encryptedSig == "":
		return Bundle{}, fmt.Errorf("%w: encrypted signature", ErrIncompleteBundle)
	}

	return Bundle{
		CommitID:           commitID,
		Signature:          sig,
		EncryptedSignature: encryptedSig,
		Summary:            renderSummary(commitID, meta),
	}, nil
}

func renderSummary(commitID string, meta Metadata) string {
	createdAt := meta.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var b strings.Builder
	b.WriteString("Proof Generation Summary\n")
	fmt.Fprintf(&b, "Timestamp: %s\n", createdAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Commit Hash: %s\n", commitID)
	fmt.Fprintf(&b, "Signature: %s\n", meta.SignaturePath)
	fmt.Fprintf(&b, "Encrypted Signature: %s\n", meta.EncryptedSigPath)
	fmt.Fprintf(&b, "Instructor Public Key: %s\n", meta.CounterpartyKeyPath)
	if meta.LocalKeyFingerprint != "" {
		fmt.Fprintf(&b, "Signing Key Fingerprint: %s\n", meta.LocalKeyFingerprint)
	}
	if meta.CounterpartyFingerprint != "" {
		fmt.Fprintf(&b, "Instructor Key Fingerprint: %s\n", meta.CounterpartyFingerprint)
	}
	return b.String()
}
