// Package importer turns recipe documents into stored recipes.
//
// A document is a TOML or YAML file with the recipe's metadata and its
// ingredient list: groups holding items, and ungrouped items. An item can
// list "or" alternatives, and an alternative can list "and" members that
// are used together. Every position is allocated while the recipe is
// written, so documents carry no positions of their own.
package importer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Sentinel errors for document parsing and validation.
var (
	// ErrUnsupportedFormat indicates a file extension with no decoder.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrInvalidDocument indicates a document that failed validation.
	ErrInvalidDocument = errors.New("invalid recipe document")
	// ErrTooDeep indicates nesting below the "and" level, or "and"
	// members directly on an item.
	ErrTooDeep = errors.New("ingredient nested too deep")
)

// Format is a document encoding.
type Format string

// Supported formats.
const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatOf returns the format implied by a file name.
func FormatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, true
	case ".yaml", ".yml":
		return FormatYAML, true
	}
	return "", false
}

// Document is a parsed recipe document. Times are Go duration strings
// such as "1h30m".
type Document struct {
	Title           string   `toml:"title" yaml:"title" validate:"required"`
	Description     string   `toml:"description" yaml:"description"`
	Instructions    string   `toml:"instructions" yaml:"instructions"`
	Notes           string   `toml:"notes" yaml:"notes"`
	Author          string   `toml:"author" yaml:"author" validate:"max=255"`
	Cuisine         string   `toml:"cuisine" yaml:"cuisine" validate:"max=255"`
	Categories      []string `toml:"categories" yaml:"categories" validate:"dive,required,max=80"`
	Yields          float64  `toml:"yields" yaml:"yields" validate:"gte=0"`
	YieldUnit       string   `toml:"yield_unit" yaml:"yield_unit"`
	URL             string   `toml:"url" yaml:"url" validate:"omitempty,url"`
	Rating          *int     `toml:"rating" yaml:"rating" validate:"omitempty,gte=0,lte=10"`
	PreparationTime string   `toml:"preparation_time" yaml:"preparation_time" validate:"omitempty,duration"`
	CookingTime     string   `toml:"cooking_time" yaml:"cooking_time" validate:"omitempty,duration"`
	TotalTime       string   `toml:"total_time" yaml:"total_time" validate:"omitempty,duration"`
	Groups          []Group  `toml:"groups" yaml:"groups" validate:"dive"`
	Items           []Item   `toml:"items" yaml:"items" validate:"dive"`

	// Source is the file the document was read from, if any.
	Source string `toml:"-" yaml:"-"`
}

// Group is a named block of items.
type Group struct {
	Name  string `toml:"name" yaml:"name" validate:"required"`
	Items []Item `toml:"items" yaml:"items" validate:"dive"`
}

// Item is an ingredient line. Or lists alternatives of an item; And lists
// the members of an alternative.
type Item struct {
	Ingredient  string   `toml:"ingredient" yaml:"ingredient" validate:"required"`
	Name        string   `toml:"name" yaml:"name"`
	Unit        string   `toml:"unit" yaml:"unit"`
	Amount      *float64 `toml:"amount" yaml:"amount" validate:"omitempty,gt=0"`
	RangeAmount *float64 `toml:"range_amount" yaml:"range_amount" validate:"omitempty,gt=0"`
	Optional    bool     `toml:"optional" yaml:"optional"`
	Or          []Item   `toml:"or" yaml:"or" validate:"dive"`
	And         []Item   `toml:"and" yaml:"and" validate:"dive"`
}

// Entries counts the items of the document, groups included.
func (d *Document) Entries() int {
	var count func(items []Item) int
	count = func(items []Item) int {
		n := len(items)
		for _, it := range items {
			n += count(it.Or) + count(it.And)
		}
		return n
	}
	n := len(d.Groups) + count(d.Items)
	for _, g := range d.Groups {
		n += count(g.Items)
	}
	return n
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("duration", validDuration)
	return v
}

// validDuration accepts a non-negative Go duration string.
func validDuration(fl validator.FieldLevel) bool {
	d, err := time.ParseDuration(fl.Field().String())
	return err == nil && d >= 0
}

// durationOf parses a validated duration field. Empty means unset.
func durationOf(s string) *time.Duration {
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return nil
	}
	return &d
}

// Validate checks field constraints and nesting.
func (d *Document) Validate() error {
	if err := validate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &ValidationError{
				Source: d.Source,
				Field:  fe.Namespace(),
				Err:    fmt.Errorf("%w: failed %q", ErrInvalidDocument, fe.Tag()),
			}
		}
		return &ValidationError{Source: d.Source, Err: fmt.Errorf("%w: %w", ErrInvalidDocument, err)}
	}

	check := func(field string, items []Item) error {
		for i, it := range items {
			if err := checkItem(fmt.Sprintf("%s[%d]", field, i), it); err != nil {
				err.Source = d.Source
				return err
			}
		}
		return nil
	}
	for gi, g := range d.Groups {
		if err := check(fmt.Sprintf("Document.Groups[%d].Items", gi), g.Items); err != nil {
			return err
		}
	}
	return check("Document.Items", d.Items)
}

func checkItem(field string, it Item) *ValidationError {
	if it.RangeAmount != nil && (it.Amount == nil || *it.RangeAmount <= *it.Amount) {
		return &ValidationError{Field: field + ".RangeAmount", Err: fmt.Errorf("%w: range must exceed amount", ErrInvalidDocument)}
	}
	if len(it.And) > 0 {
		return &ValidationError{Field: field + ".And", Err: fmt.Errorf("%w: \"and\" members belong to an alternative", ErrTooDeep)}
	}
	for i, alt := range it.Or {
		altField := fmt.Sprintf("%s.Or[%d]", field, i)
		if len(alt.Or) > 0 {
			return &ValidationError{Field: altField + ".Or", Err: fmt.Errorf("%w: alternatives cannot have alternatives", ErrTooDeep)}
		}
		for j, member := range alt.And {
			memberField := fmt.Sprintf("%s.And[%d]", altField, j)
			if len(member.Or) > 0 || len(member.And) > 0 {
				return &ValidationError{Field: memberField, Err: fmt.Errorf("%w: \"and\" members cannot nest", ErrTooDeep)}
			}
			if member.RangeAmount != nil && (member.Amount == nil || *member.RangeAmount <= *member.Amount) {
				return &ValidationError{Field: memberField + ".RangeAmount", Err: fmt.Errorf("%w: range must exceed amount", ErrInvalidDocument)}
			}
		}
		if alt.RangeAmount != nil && (alt.Amount == nil || *alt.RangeAmount <= *alt.Amount) {
			return &ValidationError{Field: altField + ".RangeAmount", Err: fmt.Errorf("%w: range must exceed amount", ErrInvalidDocument)}
		}
	}
	return nil
}

// Decode parses a document in the given format. The result is not
// validated; ParseFile and Importer.Import call Validate.
func Decode(data []byte, format Format) (*Document, error) {
	var doc Document
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing TOML: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return &doc, nil
}

// ParseFile reads, decodes and validates the document at path.
func ParseFile(path string) (*Document, error) {
	format, ok := FormatOf(path)
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	doc, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.Source = path
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}
