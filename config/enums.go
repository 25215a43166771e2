package config

import "fmt"

// ParagraphAlignment is the default alignment applied to block elements that
// do not carry their own CSS text-align (§3 Render configuration).
type ParagraphAlignment int

const (
	ParagraphAlignmentJustified ParagraphAlignment = iota
	ParagraphAlignmentLeft
	ParagraphAlignmentCenter
	ParagraphAlignmentRight
)

func (a ParagraphAlignment) String() string {
	switch a {
	case ParagraphAlignmentJustified:
		return "justified"
	case ParagraphAlignmentLeft:
		return "left"
	case ParagraphAlignmentCenter:
		return "center"
	case ParagraphAlignmentRight:
		return "right"
	default:
		return fmt.Sprintf("ParagraphAlignment(%d)", int(a))
	}
}

func ParagraphAlignmentString(s string) (ParagraphAlignment, error) {
	switch s {
	case "justified":
		return ParagraphAlignmentJustified, nil
	case "left":
		return ParagraphAlignmentLeft, nil
	case "center":
		return ParagraphAlignmentCenter, nil
	case "right":
		return ParagraphAlignmentRight, nil
	default:
		return 0, fmt.Errorf("invalid paragraph alignment %q", s)
	}
}

func (a ParagraphAlignment) MarshalYAML() (any, error) {
	return a.String(), nil
}

func (a *ParagraphAlignment) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	v, err := ParagraphAlignmentString(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// SpacingLevel is the extra vertical gap inserted after a paragraph, on top
// of its normal line height (§4.2): none, a quarter of a line ("half"), or a
// full line.
type SpacingLevel int

const (
	SpacingLevelNone SpacingLevel = iota
	SpacingLevelHalf
	SpacingLevelFull
)

func (s SpacingLevel) String() string {
	switch s {
	case SpacingLevelNone:
		return "none"
	case SpacingLevelHalf:
		return "half"
	case SpacingLevelFull:
		return "full"
	default:
		return fmt.Sprintf("SpacingLevel(%d)", int(s))
	}
}

func SpacingLevelString(s string) (SpacingLevel, error) {
	switch s {
	case "none":
		return SpacingLevelNone, nil
	case "half":
		return SpacingLevelHalf, nil
	case "full":
		return SpacingLevelFull, nil
	default:
		return 0, fmt.Errorf("invalid paragraph spacing level %q", s)
	}
}

func (s SpacingLevel) MarshalYAML() (any, error) {
	return s.String(), nil
}

func (s *SpacingLevel) UnmarshalYAML(unmarshal func(any) error) error {
	var str string
	if err := unmarshal(&str); err != nil {
		return err
	}
	v, err := SpacingLevelString(str)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ImageResizeMode controls how the image cache collaborator fits a decoded
// image into the requested bounding box (viewport, for inline images; the
// configured cover box, for the cover pseudo-page).
type ImageResizeMode int

const (
	ImageResizeNone ImageResizeMode = iota
	ImageResizeKeepAR
	ImageResizeStretch
)

func (m ImageResizeMode) String() string {
	switch m {
	case ImageResizeNone:
		return "none"
	case ImageResizeKeepAR:
		return "keepAR"
	case ImageResizeStretch:
		return "stretch"
	default:
		return fmt.Sprintf("ImageResizeMode(%d)", int(m))
	}
}

func ImageResizeModeString(s string) (ImageResizeMode, error) {
	switch s {
	case "none":
		return ImageResizeNone, nil
	case "keepAR":
		return ImageResizeKeepAR, nil
	case "stretch":
		return ImageResizeStretch, nil
	default:
		return 0, fmt.Errorf("invalid image resize mode %q", s)
	}
}

func (m ImageResizeMode) MarshalYAML() (any, error) {
	return m.String(), nil
}

func (m *ImageResizeMode) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	v, err := ImageResizeModeString(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// TinyImagePolicy names which of the two thresholds the source codebase used
// in sibling code paths (§9 Open Questions) applies when C3 decides whether
// a decorative image is too small to bother with.
type TinyImagePolicy int

const (
	// TinyImageDimensionAtMost3 skips images with any dimension <= 3px.
	TinyImageDimensionAtMost3 TinyImagePolicy = iota
	// TinyImageDimensionBelow20 skips images with any dimension < 20px.
	TinyImageDimensionBelow20
)

func (p TinyImagePolicy) String() string {
	switch p {
	case TinyImageDimensionAtMost3:
		return "at-most-3"
	case TinyImageDimensionBelow20:
		return "below-20"
	default:
		return fmt.Sprintf("TinyImagePolicy(%d)", int(p))
	}
}

func TinyImagePolicyString(s string) (TinyImagePolicy, error) {
	switch s {
	case "at-most-3":
		return TinyImageDimensionAtMost3, nil
	case "below-20":
		return TinyImageDimensionBelow20, nil
	default:
		return 0, fmt.Errorf("invalid tiny image policy %q", s)
	}
}

func (p TinyImagePolicy) MarshalYAML() (any, error) {
	return p.String(), nil
}

func (p *TinyImagePolicy) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	v, err := TinyImagePolicyString(s)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Skips reports whether an image of the given dimensions should be dropped
// as decorative, per the selected policy.
func (p TinyImagePolicy) Skips(w, h int) bool {
	switch p {
	case TinyImageDimensionAtMost3:
		return w <= 3 || h <= 3
	case TinyImageDimensionBelow20:
		return w < 20 || h < 20
	default:
		return false
	}
}
