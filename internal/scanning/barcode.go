package scanning

import (
	"errors"
	"fmt"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
)

// Detector decodes barcode symbol values from a camera frame. A frame
// with no readable barcode returns an empty slice, not an error.
type Detector interface {
	Detect(imageData []byte, contentType string) ([]string, error)
}

// ZXingDetector implements Detector with the gozxing UPC/EAN readers,
// covering the retail symbologies printed on packaged food: EAN-13,
// UPC-A, UPC-E and EAN-8.
type ZXingDetector struct {
	reader gozxing.Reader
	hints  map[gozxing.DecodeHintType]interface{}
}

// NewZXingDetector creates a detector for retail product barcodes.
func NewZXingDetector() *ZXingDetector {
	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_POSSIBLE_FORMATS: []gozxing.BarcodeFormat{
			gozxing.BarcodeFormat_EAN_13,
			gozxing.BarcodeFormat_UPC_A,
			gozxing.BarcodeFormat_UPC_E,
			gozxing.BarcodeFormat_EAN_8,
		},
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	return &ZXingDetector{
		reader: oned.NewMultiFormatUPCEANReader(hints),
		hints:  hints,
	}
}

// Detect decodes barcodes from a frame. The readers report at most one
// symbol per frame, which matches how the workflow consumes them.
func (d *ZXingDetector) Detect(imageData []byte, contentType string) ([]string, error) {
	img, err := DecodeFrame(imageData, contentType)
	if err != nil {
		return nil, fmt.Errorf("decoding frame: %w", err)
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, fmt.Errorf("preparing bitmap: %w", err)
	}

	result, err := d.reader.Decode(bmp, d.hints)
	if err != nil {
		// NotFoundException is the normal no-barcode-this-frame case.
		var nfe gozxing.NotFoundException
		if errors.As(err, &nfe) {
			return nil, nil
		}
		return nil, fmt.Errorf("decoding barcode: %w", err)
	}

	return []string{result.GetText()}, nil
}
