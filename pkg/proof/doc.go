// Package proof produces signed and encrypted proof-of-authorship bundles for
// a commit identifier.
//
// The commit id is signed with RSA-PSS over its SHA-256 digest using the
// largest salt the key allows. The raw signature is then encrypted for the
// counterparty with RSA-OAEP (SHA-256 digest and MGF1, empty label) and Base64
// encoded. Both results plus a plain-text summary form a Bundle.
//
// Generate performs all cryptographic work in memory. Writer then persists the
// bundle as loose files and a tar.gz archive without ever leaving a partial set
// of artifacts behind:
//
//	bundle, err := proof.Generate(priv, counterparty, commitID, proof.Metadata{})
//	if err != nil {
//		return err
//	}
//	if err := proof.NewWriter(proof.WithLogger(log)).Write(bundle, paths); err != nil {
//		return err
//	}
//
// OAEP limits the plaintext to the counterparty modulus size minus 66 bytes,
// so the counterparty key must be larger than the signing key. With equally
// sized keys EncryptForCounterparty returns ErrEncryptionFailed.
package proof
