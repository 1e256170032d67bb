package models

import (
	"fmt"
	"strconv"
)

// Codec identifies one of the image codecs a comparison can exercise.
type Codec int

// Supported codecs. The numeric order is the order used to group and sort
// results, so new codecs must be appended.
const (
	CodecWebP Codec = iota
	CodecWebP2
	CodecJPEGXL
	CodecAVIF
	CodecAVIFExp
	CodecAVIFAVM
	CodecCombination
	CodecJPEGTurbo
	CodecJPEGli
	CodecJPEGSimple
	CodecJPEGMoz
	CodecJP2
	CodecFFV1
	CodecBasis
)

// Codecs lists every supported codec in order.
var Codecs = []Codec{
	CodecWebP, CodecWebP2, CodecJPEGXL, CodecAVIF, CodecAVIFExp, CodecAVIFAVM,
	CodecCombination, CodecJPEGTurbo, CodecJPEGli, CodecJPEGSimple, CodecJPEGMoz,
	CodecJP2, CodecFFV1, CodecBasis,
}

type codecInfo struct {
	name       string
	extension  string
	minQuality int
	maxQuality int // below minQuality when the codec is lossless only
	browsers   bool
}

var codecInfos = map[Codec]codecInfo{
	CodecWebP:        {"webp", "webp", 0, 100, true},
	CodecWebP2:       {"webp2", "wp2", 0, 95, false},
	CodecJPEGXL:      {"jpegxl", "jxl", 0, 99, false},
	CodecAVIF:        {"avif", "avif", 0, 100, true},
	CodecAVIFExp:     {"avifexp", "hmg", 0, 100, false},
	CodecAVIFAVM:     {"avifavm", "avmf", 0, 100, false},
	CodecCombination: {"combination", "comb", 5, 95, false},
	CodecJPEGTurbo:   {"jpegturbo", "turbo.jpg", 0, 100, true},
	CodecJPEGli:      {"jpegli", "li.jpg", 0, 100, true},
	CodecJPEGSimple:  {"jpegsimple", "s.jpg", 0, 100, true},
	CodecJPEGMoz:     {"jpegmoz", "moz.jpg", 0, 100, true},
	CodecJP2:         {"jp2", "jp2", 0, 100, false},
	CodecFFV1:        {"ffv1", "ffv1", 0, -1, false},
	CodecBasis:       {"basis", "basis", 1, 255, false},
}

// String returns the name used on the command line and in the completed-task log.
func (c Codec) String() string {
	if info, ok := codecInfos[c]; ok {
		return info.name
	}
	return "unknown"
}

// Extension returns the file extension of encoded files, without the leading dot.
func (c Codec) Extension() string {
	if info, ok := codecInfos[c]; ok {
		return info.extension
	}
	return "unknown"
}

// QualityRange returns the inclusive range of lossy qualities. ok is false
// for codecs that only support lossless encoding.
func (c Codec) QualityRange() (lo, hi int, ok bool) {
	info, known := codecInfos[c]
	if !known || info.maxQuality < info.minQuality {
		return 0, 0, false
	}
	return info.minQuality, info.maxQuality, true
}

// SupportedByBrowsers reports whether major browsers can display the format.
func (c Codec) SupportedByBrowsers() bool {
	return codecInfos[c].browsers
}

// PrettyName returns a human-readable label for a codec configuration.
func (c Codec) PrettyName(lossless bool, sub Subsampling, effort int) string {
	subStr := " 4:2:0"
	if lossless && (sub == SubsamplingDefault || sub == Subsampling444) {
		subStr = ""
	} else if sub == Subsampling444 {
		subStr = " 4:4:4"
	}
	e := strconv.Itoa(effort)
	switch c {
	case CodecWebP:
		if lossless {
			return "WebP z" + e + subStr
		}
		return "WebP m" + e + subStr
	case CodecWebP2:
		return "WebP2 e" + e + subStr
	case CodecJPEGXL:
		return "JPEG XL e" + e // 4:4:4 only
	case CodecAVIF:
		return "AVIF s" + e + subStr
	case CodecAVIFExp:
		if lossless {
			return "AVIFminiYCgCo s" + e + subStr
		}
		return "AVIFmini s" + e + subStr
	case CodecAVIFAVM:
		return "AVIFminiAVM s" + e + subStr
	case CodecCombination:
		return "combination e" + e + subStr
	case CodecJPEGTurbo:
		return "TurboJPEG" + subStr
	case CodecJPEGli:
		return "Jpegli" + subStr
	case CodecJPEGSimple:
		return "SimpleJPEG m" + e + subStr
	case CodecJPEGMoz:
		return "MozJPEG" + subStr
	case CodecJP2:
		return "JPEG2000" + subStr
	case CodecFFV1:
		return "FFV1" + subStr
	case CodecBasis:
		return "Basis"
	}
	return "unknown" + subStr
}

// ParseCodec returns the codec registered under name.
func ParseCodec(name string) (Codec, error) {
	for _, c := range Codecs {
		if codecInfos[c].name == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown codec %q", ErrInvalidConfiguration, name)
}

// Subsampling is the chroma subsampling mode requested from a codec.
type Subsampling int

const (
	// SubsamplingDefault lets the codec decide, usually based on quality.
	SubsamplingDefault Subsampling = iota
	// Subsampling444 keeps full chroma resolution.
	Subsampling444
	// Subsampling420 halves chroma resolution in both dimensions.
	Subsampling420
)

// String returns the token written to the completed-task log.
func (s Subsampling) String() string {
	switch s {
	case Subsampling444:
		return "444"
	case Subsampling420:
		return "420"
	}
	return "4XX"
}

// ParseSubsampling is the inverse of Subsampling.String.
func ParseSubsampling(token string) (Subsampling, error) {
	switch token {
	case "444":
		return Subsampling444, nil
	case "420":
		return Subsampling420, nil
	case "4XX":
		return SubsamplingDefault, nil
	}
	return 0, fmt.Errorf("%w: unknown subsampling %q", ErrInvalidConfiguration, token)
}
