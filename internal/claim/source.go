package claim

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/claimspec/internal/ir"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Source is provenance for a claim: where it comes from and who extracted
// it. It plays no part in evaluation.
type Source struct {
	SourceType    string   `json:"source_type,omitempty" yaml:"source_type,omitempty" validate:"omitempty,max=64"`
	ExtractorType string   `json:"extractor_type,omitempty" yaml:"extractor_type,omitempty" validate:"omitempty,max=128"`
	Locator       string   `json:"locator,omitempty" yaml:"locator,omitempty" validate:"omitempty,max=256"`
	Quote         string   `json:"quote,omitempty" yaml:"quote,omitempty" validate:"omitempty,max=1000"`
	Note          string   `json:"note,omitempty" yaml:"note,omitempty"`
	Confidence    *float64 `json:"confidence,omitempty" yaml:"confidence,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// Validate checks field limits: short identifiers, a short quote and a
// confidence in [0, 1].
func (s Source) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("claim source: %w", err)
	}
	return nil
}

// Encode returns the IR form. Every field is present; unset ones are null.
func (s Source) Encode() ir.IRObject {
	str := func(v string) ir.IRValue {
		if v == "" {
			return ir.IRNull{}
		}
		return ir.IRString(v)
	}
	var conf ir.IRValue = ir.IRNull{}
	if s.Confidence != nil {
		conf = ir.IRFloat(*s.Confidence)
	}
	return ir.Object(
		ir.O("source_type", str(s.SourceType)),
		ir.O("extractor_type", str(s.ExtractorType)),
		ir.O("locator", str(s.Locator)),
		ir.O("quote", str(s.Quote)),
		ir.O("note", str(s.Note)),
		ir.O("confidence", conf),
	)
}

func decodeSource(obj ir.IRObject) (*Source, error) {
	var s Source
	for key, dst := range map[string]*string{
		"source_type":    &s.SourceType,
		"extractor_type": &s.ExtractorType,
		"locator":        &s.Locator,
		"quote":          &s.Quote,
		"note":           &s.Note,
	} {
		v, err := obj.OptString(key)
		if err != nil {
			return nil, err
		}
		*dst = v
	}
	if v, ok := obj.Lookup("confidence"); ok {
		f, ok := ir.AsFloat(v)
		if !ok {
			return nil, &ir.DecodeError{Field: "confidence", Message: fmt.Sprintf("expected number, got %T", v)}
		}
		s.Confidence = &f
	}
	if s == (Source{}) {
		return nil, nil
	}
	return &s, nil
}
