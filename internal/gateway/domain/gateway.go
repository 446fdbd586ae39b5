// Package domain defines the requests, results and failure categories of the
// external encode/decode transform.
package domain

// EncodeOptions tunes an encode call.
type EncodeOptions struct {
	Compress      bool
	MaxChunkBytes int64
}

// EncodeRequest carries an audio file to be turned into a bundle of images.
// MasterKeyHex must never be logged.
type EncodeRequest struct {
	Audio        []byte
	FileName     string
	UserID       string
	MasterKeyHex string
	Options      EncodeOptions
}

// EncodeResult is the bundle produced by the transform.
type EncodeResult struct {
	Bundle       []byte
	FileName     string
	TotalImages  int
	OriginalSize int64
	Compressed   bool
}

// DecodeRequest carries a bundle to be turned back into audio.
type DecodeRequest struct {
	Bundle         []byte
	UserID         string
	MasterKeyHex   string
	OutputFileName string
}

// DecodeResult is the recovered audio.
type DecodeResult struct {
	Audio       []byte
	FileName    string
	ContentType string
	TotalChunks int
}
