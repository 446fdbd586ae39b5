package domain

// Upload is an audio file spooled to temporary storage until its conversion ends.
type Upload struct {
	Path     string
	FileName string
	Size     int64
}
