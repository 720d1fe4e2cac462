// Package pqshield seals device integrity reports for a server using
// post-quantum cryptography.
//
// A device signs its report with ML-DSA-65 and encrypts the report and
// signature to the server's ML-KEM-768 public key with AES-256-GCM. Only the
// server can open the resulting blob, and any change to it is detected.
//
// Device side:
//
//	signer, err := pqshield.GenerateSigningKey()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	report := integrity.Evaluate(evidence)
//	report.SetSignerKey(signer.VerifyingKey)
//	data, err := report.Marshal()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// The signing key is consumed by BuildBlob.
//	blob, err := pqshield.BuildBlob(data, serverPublicKey, pqshield.WithSigningKey(signer.SigningKey))
//
// Server side:
//
//	key, err := pqshield.LoadServerKey(secretKey)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer key.Close()
//
//	opened, err := pqshield.OpenBlob(blob, key)
//	switch {
//	case errors.Is(err, pqshield.ErrInvalidBlob):
//	    // tampered, truncated, or sealed for another key
//	case errors.Is(err, pqshield.ErrForgedReport):
//	    // decrypted, but the signature does not verify
//	}
//
// All byte inputs are length-checked; a wrong length is reported as a
// [FormatError] matching [ErrInvalidFormat].
package pqshield
