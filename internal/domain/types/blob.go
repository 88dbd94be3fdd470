package types

// EncryptedBlob is a symmetric ciphertext plus the asymmetric-wrapped key
// that opens it. Both halves are required; a blob missing either is empty.
type EncryptedBlob struct {
	Ciphertext []byte
	WrappedKey []byte
}

// Empty reports whether either half of the blob is missing.
func (b EncryptedBlob) Empty() bool { return len(b.Ciphertext) == 0 || len(b.WrappedKey) == 0 }
