package providers

const TesseractName = "tesseract"

// TesseractDefaultLanguages are traineddata names passed to libtesseract.
var TesseractDefaultLanguages = []string{"vie", "eng"}

// TesseractConfig holds configuration for the local OCR client.
type TesseractConfig struct {
	Languages  []string
	Normalizer *Normalizer
}
